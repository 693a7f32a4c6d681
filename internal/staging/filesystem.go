package staging

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"ortho-go/internal/ortho"
)

const tempPrefix = ".tmp-"

// fileSystemStore keeps staged parts as files in a single flat directory:
//
//	<staging_dir>/
//	  <name>.<position>.part
//
// The directory is created on the first write and may be deleted from
// outside at any time; a missing directory behaves like an empty one.
type fileSystemStore struct {
	dir string
}

var _ stagingStore = (*fileSystemStore)(nil)

// NewFileSystemStagingArea creates a new filesystem-based staging area.
// maxSize is the maximum total size in bytes; must be positive.
func NewFileSystemStagingArea(stagingDir string, maxSize int64) (ortho.StagingArea, error) {
	if stagingDir == "" {
		return nil, fmt.Errorf("staging directory is required")
	}
	if err := os.MkdirAll(stagingDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create staging directory: %w", err)
	}
	return &stagingArea{
		store:   &fileSystemStore{dir: stagingDir},
		maxSize: maxSize,
	}, nil
}

func (f *fileSystemStore) WritePart(entry string, data []byte) error {
	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return fmt.Errorf("creating staging directory: %w", err)
	}

	tmp, err := os.CreateTemp(f.dir, tempPrefix+"*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, filepath.Join(f.dir, entry)); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

func (f *fileSystemStore) OpenPart(entry string) (io.ReadCloser, error) {
	return os.Open(filepath.Join(f.dir, entry))
}

func (f *fileSystemStore) PartSize(entry string) (int64, bool, error) {
	info, err := os.Stat(filepath.Join(f.dir, entry))
	if errors.Is(err, fs.ErrNotExist) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return info.Size(), true, nil
}

func (f *fileSystemStore) RemovePart(entry string) error {
	err := os.Remove(filepath.Join(f.dir, entry))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (f *fileSystemStore) List() ([]string, error) {
	dirEntries, err := f.readDir()
	if err != nil {
		return nil, err
	}
	var entries []string
	for _, e := range dirEntries {
		// In-flight temp files never carry the part suffix.
		if e.IsDir() || !strings.HasSuffix(e.Name(), partSuffix) {
			continue
		}
		entries = append(entries, e.Name())
	}
	return entries, nil
}

func (f *fileSystemStore) Size() (int64, error) {
	dirEntries, err := f.readDir()
	if err != nil {
		return 0, err
	}
	var total int64
	for _, e := range dirEntries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), partSuffix) {
			continue
		}
		info, err := e.Info()
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return 0, err
		}
		total += info.Size()
	}
	return total, nil
}

// RemoveAll deletes every entry of the staging directory, parts or not,
// but keeps the directory itself.
func (f *fileSystemStore) RemoveAll() error {
	dirEntries, err := f.readDir()
	if err != nil {
		return err
	}
	for _, e := range dirEntries {
		if err := os.RemoveAll(filepath.Join(f.dir, e.Name())); err != nil {
			return fmt.Errorf("removing %s: %w", e.Name(), err)
		}
	}
	return nil
}

func (f *fileSystemStore) readDir() ([]os.DirEntry, error) {
	entries, err := os.ReadDir(f.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading staging directory: %w", err)
	}
	return entries, nil
}
