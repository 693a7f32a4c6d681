// Command generate_schema writes internal/database/sqlc/schema.sql from the
// migrations, for sqlc to generate the query layer from.
//
// With -check it only reports whether the file is up to date.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"ortho-go/internal/database"
	"ortho-go/internal/database/migrations"
)

func main() {
	out := flag.String("o", filepath.Join("internal", "database", "sqlc", "schema.sql"), "output file, relative to the module root")
	check := flag.Bool("check", false, "fail if the output file is out of date instead of writing it")
	flag.Parse()

	if err := run(*out, *check); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(outPath string, check bool) error {
	db, err := database.OpenConnection(":memory:")
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	if err := migrations.MigrateUp(db); err != nil {
		return fmt.Errorf("applying migrations: %w", err)
	}

	schema, err := database.ExtractSchema(db)
	if err != nil {
		return err
	}

	if check {
		current, err := os.ReadFile(outPath)
		if err != nil {
			return fmt.Errorf("reading %s: %w", outPath, err)
		}
		if string(current) != schema {
			return fmt.Errorf("%s is out of date; run go generate ./internal/database", outPath)
		}
		fmt.Printf("%s is up to date\n", outPath)
		return nil
	}

	if err := os.WriteFile(outPath, []byte(schema), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", outPath, err)
	}
	fmt.Printf("generated %s\n", outPath)
	return nil
}
