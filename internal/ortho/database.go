package ortho

import "ortho-go/internal/database/sqlc"

// Database provides an interface for metadata storage operations.
// Lookups return nil with no error when nothing matches.
type Database interface {
	// File operations

	// CreateFile inserts a file record. Any existing record for the same
	// owner, category and name is replaced in the same transaction, since it
	// points at the object the new upload just overwrote.
	CreateFile(file *sqlc.File) error

	// FindFileByID returns a file record by its ID.
	FindFileByID(id string) (*sqlc.File, error)

	// FindFileByName returns the newest file record with the given stored name.
	FindFileByName(ownerID, category, name string) (*sqlc.File, error)

	// ListFiles returns the file records of an owner in a category, newest first.
	ListFiles(ownerID, category string) ([]*sqlc.File, error)

	// DeleteFile deletes a file record.
	DeleteFile(id string) error

	// Operation history

	// CreateOperation records the start of a mutating operation.
	CreateOperation(operation, parameters string) (*sqlc.Operation, error)

	// FinishOperation marks an operation as finished with the given status.
	FinishOperation(id int64, status string) error

	// ListOperations returns the most recent operations, newest first.
	ListOperations(limit int) ([]*sqlc.Operation, error)

	// Maintenance

	// CheckMigrations verifies the schema is up to date.
	CheckMigrations() error

	// BackupTo writes a consistent copy of the database to destPath.
	BackupTo(destPath string) error

	// Close closes the database connection.
	Close() error
}
