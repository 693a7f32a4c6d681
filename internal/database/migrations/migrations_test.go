package migrations

import (
	"database/sql"
	"errors"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

func TestMigrateUp_FreshDatabase(t *testing.T) {
	db := openTestDB(t)

	if err := MigrateUp(db); err != nil {
		t.Fatalf("MigrateUp() failed: %v", err)
	}

	for _, table := range []string{"files", "operations", "schema_migrations"} {
		var name string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("table %s was not created: %v", table, err)
		}
	}
}

func TestCheckDBMigrationStatus(t *testing.T) {
	t.Run("fresh database needs migration", func(t *testing.T) {
		db := openTestDB(t)

		err := CheckDBMigrationStatus(db)
		if !errors.Is(err, ErrNoVersion) {
			t.Errorf("CheckDBMigrationStatus() error = %v, want ErrNoVersion", err)
		}
	})

	t.Run("migrated database is current", func(t *testing.T) {
		db := openTestDB(t)
		if err := MigrateUp(db); err != nil {
			t.Fatalf("MigrateUp() failed: %v", err)
		}

		if err := CheckDBMigrationStatus(db); err != nil {
			t.Errorf("CheckDBMigrationStatus() error = %v", err)
		}
	})
}

func TestMigrateUp_Idempotent(t *testing.T) {
	db := openTestDB(t)

	if err := MigrateUp(db); err != nil {
		t.Fatalf("first MigrateUp() failed: %v", err)
	}
	if err := MigrateUp(db); err != nil {
		t.Errorf("second MigrateUp() failed: %v", err)
	}

	st, err := GetStatus(db)
	if err != nil {
		t.Fatalf("GetStatus() error = %v", err)
	}
	if st.Version != st.Latest || st.Dirty {
		t.Errorf("GetStatus() = %+v, want clean at latest", st)
	}
}

func TestLatestVersion(t *testing.T) {
	v, err := LatestVersion()
	if err != nil {
		t.Fatalf("LatestVersion() error = %v", err)
	}
	if v != 2 {
		t.Errorf("LatestVersion() = %d, want 2", v)
	}
}

func TestSchema_FilesCategoryConstraint(t *testing.T) {
	db := openTestDB(t)
	if err := MigrateUp(db); err != nil {
		t.Fatalf("MigrateUp() failed: %v", err)
	}

	_, err := db.Exec(`INSERT INTO files (id, owner_id, category, name, size, created_at)
		VALUES ('f1', 'p1', 'docs', 'a.pdf', 3, datetime('now'))`)
	if err != nil {
		t.Fatalf("inserting docs file: %v", err)
	}

	_, err = db.Exec(`INSERT INTO files (id, owner_id, category, name, size, created_at)
		VALUES ('f2', 'p1', 'audio', 'a.mp3', 3, datetime('now'))`)
	if err == nil {
		t.Error("expected check constraint violation for unknown category, insert succeeded")
	}
}

func TestSchema_OperationDefaults(t *testing.T) {
	db := openTestDB(t)
	if err := MigrateUp(db); err != nil {
		t.Fatalf("MigrateUp() failed: %v", err)
	}

	if _, err := db.Exec("INSERT INTO operations (operation, started_at) VALUES ('upload', datetime('now'))"); err != nil {
		t.Fatalf("inserting operation: %v", err)
	}

	var status, params string
	var finished sql.NullTime
	err := db.QueryRow("SELECT status, parameters, finished_at FROM operations").Scan(&status, &params, &finished)
	if err != nil {
		t.Fatalf("reading operation: %v", err)
	}
	if status != "running" || params != "" || finished.Valid {
		t.Errorf("got status=%q parameters=%q finished=%v, want running, empty, null", status, params, finished)
	}
}

// openTestDB opens an in-memory SQLite database for testing.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	return db
}
