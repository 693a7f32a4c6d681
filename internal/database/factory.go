package database

import (
	"fmt"
	"os"
	"path/filepath"

	"ortho-go/internal/config"
	"ortho-go/internal/ortho"
)

// DatabaseFileName is the name of the SQLite file inside the data directory.
const DatabaseFileName = "ortho.db"

// NewDatabaseFromConfig creates a Database implementation based on the database
// config type and brings its schema up to date.
func NewDatabaseFromConfig(cfg config.DatabaseConfig, clock ortho.Clock) (ortho.Database, error) {
	var path string
	switch cfg.Type {
	case "sqlite":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite database")
		}
		if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		path = filepath.Join(cfg.DataDir, DatabaseFileName)
	case "memory":
		path = ":memory:"
	default:
		return nil, fmt.Errorf("unknown database type: %s", cfg.Type)
	}

	db, err := NewSQLiteDatabase(path, clock)
	if err != nil {
		return nil, err
	}
	if err := db.MigrateUp(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}
	return db, nil
}
