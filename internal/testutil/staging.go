package testutil

import (
	"path/filepath"
	"testing"

	"ortho-go/internal/ortho"
	"ortho-go/internal/staging"
)

const (
	// DefaultStagingMaxSize is the default max size for test staging areas (10MB).
	DefaultStagingMaxSize = 10 * 1024 * 1024
)

// NewTestStagingArea creates a new in-memory staging area for testing.
func NewTestStagingArea() ortho.StagingArea {
	return staging.NewMemoryStagingArea(DefaultStagingMaxSize)
}

// NewTestFileSystemStagingArea creates a staging area backed by a directory
// under t.TempDir().
func NewTestFileSystemStagingArea(t *testing.T) ortho.StagingArea {
	t.Helper()
	sa, err := staging.NewFileSystemStagingArea(filepath.Join(t.TempDir(), "temp"), DefaultStagingMaxSize)
	if err != nil {
		t.Fatalf("failed to create staging area: %v", err)
	}
	return sa
}

// NewTestStagingAreaWithSize creates a new in-memory staging area with a custom max size.
func NewTestStagingAreaWithSize(maxSize int64) ortho.StagingArea {
	return staging.NewMemoryStagingArea(maxSize)
}
