package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"ortho-go/internal/database/migrations"
	"ortho-go/internal/database/sqlc"
	"ortho-go/internal/ortho"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteDatabase implements the Database interface using SQLite.
type SQLiteDatabase struct {
	db      *sql.DB
	queries *sqlc.Queries
	path    string
	clock   ortho.Clock
}

// NewSQLiteDatabase creates a new SQLite database connection.
// path can be a file path or ":memory:" for in-memory database.
// clock stamps operation history; nil uses the real clock.
func NewSQLiteDatabase(path string, clock ortho.Clock) (*SQLiteDatabase, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}
	if clock == nil {
		clock = ortho.RealClock{}
	}

	return &SQLiteDatabase{
		db:      db,
		queries: sqlc.New(db),
		path:    path,
		clock:   clock,
	}, nil
}

// OpenConnection opens and configures a SQLite database connection.
// path can be a file path or ":memory:" for in-memory database.
func OpenConnection(path string) (*sql.DB, error) {
	// DSN parameters apply to every pooled connection, unlike PRAGMA statements.
	// Concurrent uploads register from several goroutines at once, hence the busy timeout.
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Every pooled connection to ":memory:" would get its own empty database.
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return db, nil
}

// File operations

func (s *SQLiteDatabase) CreateFile(file *sqlc.File) error {
	ctx := context.Background()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	qtx := s.queries.WithTx(tx)

	// A new upload under an existing name has overwritten the stored object.
	err = qtx.DeleteFilesByName(ctx, sqlc.DeleteFilesByNameParams{
		OwnerID:  file.OwnerID,
		Category: file.Category,
		Name:     file.Name,
	})
	if err != nil {
		return fmt.Errorf("replacing file record: %w", err)
	}

	created, err := qtx.InsertFile(ctx, sqlc.InsertFileParams{
		ID:        file.ID,
		OwnerID:   file.OwnerID,
		Category:  file.Category,
		Name:      file.Name,
		Size:      file.Size,
		Checksum:  file.Checksum,
		Thumbnail: file.Thumbnail,
		CreatedAt: file.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("inserting file: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	*file = created
	return nil
}

func (s *SQLiteDatabase) FindFileByID(id string) (*sqlc.File, error) {
	file, err := s.queries.GetFileByID(context.Background(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding file by id: %w", err)
	}
	return &file, nil
}

func (s *SQLiteDatabase) FindFileByName(ownerID, category, name string) (*sqlc.File, error) {
	file, err := s.queries.GetFileByName(context.Background(), sqlc.GetFileByNameParams{
		OwnerID:  ownerID,
		Category: category,
		Name:     name,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding file by name: %w", err)
	}
	return &file, nil
}

func (s *SQLiteDatabase) ListFiles(ownerID, category string) ([]*sqlc.File, error) {
	files, err := s.queries.GetFilesByOwnerAndCategory(context.Background(), sqlc.GetFilesByOwnerAndCategoryParams{
		OwnerID:  ownerID,
		Category: category,
	})
	if err != nil {
		return nil, fmt.Errorf("listing files: %w", err)
	}

	result := make([]*sqlc.File, len(files))
	for i := range files {
		result[i] = &files[i]
	}
	return result, nil
}

func (s *SQLiteDatabase) DeleteFile(id string) error {
	if err := s.queries.DeleteFileByID(context.Background(), id); err != nil {
		return fmt.Errorf("deleting file: %w", err)
	}
	return nil
}

// Operation history

func (s *SQLiteDatabase) CreateOperation(operation string, parameters string) (*sqlc.Operation, error) {
	op, err := s.queries.InsertOperation(context.Background(), sqlc.InsertOperationParams{
		Operation:  operation,
		Parameters: parameters,
		StartedAt:  s.clock.Now(),
	})
	if err != nil {
		return nil, fmt.Errorf("creating operation: %w", err)
	}
	return &op, nil
}

func (s *SQLiteDatabase) FinishOperation(id int64, status string) error {
	err := s.queries.UpdateOperationFinished(context.Background(), sqlc.UpdateOperationFinishedParams{
		FinishedAt: sql.NullTime{Time: s.clock.Now(), Valid: true},
		Status:     status,
		ID:         id,
	})
	if err != nil {
		return fmt.Errorf("finishing operation: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) ListOperations(limit int) ([]*sqlc.Operation, error) {
	ops, err := s.queries.GetOperations(context.Background(), int64(limit))
	if err != nil {
		return nil, fmt.Errorf("listing operations: %w", err)
	}

	result := make([]*sqlc.Operation, len(ops))
	for i := range ops {
		result[i] = &ops[i]
	}
	return result, nil
}

// Path returns the database file path (or ":memory:" for in-memory databases).
func (s *SQLiteDatabase) Path() string {
	return s.path
}

// CheckMigrations verifies the database schema is up-to-date.
func (s *SQLiteDatabase) CheckMigrations() error {
	return migrations.CheckDBMigrationStatus(s.db)
}

// MigrateUp applies any pending migrations.
func (s *SQLiteDatabase) MigrateUp() error {
	return migrations.MigrateUp(s.db)
}

// BackupTo creates a complete copy of the database at destPath using VACUUM INTO.
func (s *SQLiteDatabase) BackupTo(destPath string) error {
	_, err := s.db.Exec("VACUUM INTO ?", destPath)
	if err != nil {
		return fmt.Errorf("backing up database: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteDatabase) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

var _ ortho.Database = (*SQLiteDatabase)(nil)
