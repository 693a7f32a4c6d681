package testutil

import (
	"errors"
	"sync"
	"testing"

	"ortho-go/internal/database"
	"ortho-go/internal/database/sqlc"
	"ortho-go/internal/ortho"
)

// NewTestDatabase creates a new in-memory SQLite database with schema applied.
// The database is automatically closed when the test completes.
func NewTestDatabase(t *testing.T) ortho.Database {
	t.Helper()

	db, err := database.NewSQLiteDatabase(":memory:", FixedClock())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if err := db.MigrateUp(); err != nil {
		db.Close()
		t.Fatalf("failed to migrate database: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

// ErrInjected is the error returned by injected failures.
var ErrInjected = errors.New("injected failure")

// FailingDatabase wraps a Database and fails CreateFile while FailCreate is
// set, and FindFileByName while FailLookup is set.
type FailingDatabase struct {
	ortho.Database

	mu         sync.Mutex
	failCreate bool
	failLookup bool
}

func NewFailingDatabase(db ortho.Database) *FailingDatabase {
	return &FailingDatabase{Database: db}
}

// FailCreate makes subsequent CreateFile calls fail (or succeed again).
func (f *FailingDatabase) FailCreate(fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failCreate = fail
}

func (f *FailingDatabase) CreateFile(file *sqlc.File) error {
	f.mu.Lock()
	fail := f.failCreate
	f.mu.Unlock()
	if fail {
		return ErrInjected
	}
	return f.Database.CreateFile(file)
}

// FailLookup makes subsequent FindFileByName calls fail (or succeed again).
func (f *FailingDatabase) FailLookup(fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failLookup = fail
}

func (f *FailingDatabase) FindFileByName(ownerID, category, name string) (*sqlc.File, error) {
	f.mu.Lock()
	fail := f.failLookup
	f.mu.Unlock()
	if fail {
		return nil, ErrInjected
	}
	return f.Database.FindFileByName(ownerID, category, name)
}
