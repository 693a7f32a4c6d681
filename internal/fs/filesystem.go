package fs

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"ortho-go/internal/ortho"
)

// OSFilesystemManager reads files picked for upload from the real filesystem.
type OSFilesystemManager struct {
	ignore *IgnoreMatcher

	mu      sync.Mutex
	perRoot map[string]*IgnoreMatcher
}

// NewOSFilesystemManager creates a filesystem manager that skips files
// matching ignore, plus the patterns of each folder's .orthoignore.
func NewOSFilesystemManager(ignore []string) *OSFilesystemManager {
	return &OSFilesystemManager{
		ignore:  NewIgnoreMatcher(append(append([]string(nil), alwaysIgnored...), ignore...)),
		perRoot: make(map[string]*IgnoreMatcher),
	}
}

// Resolve validates a raw path and returns a Path object.
// Only regular files and directories are accepted.
func (m *OSFilesystemManager) Resolve(rawPath string) (*ortho.Path, error) {
	absPath, err := filepath.Abs(rawPath)
	if err != nil {
		return nil, fmt.Errorf("resolving absolute path: %w", err)
	}

	info, err := os.Lstat(absPath)
	if err != nil {
		return nil, fmt.Errorf("stat path: %w", err)
	}

	mode := info.Mode()
	if !mode.IsRegular() && !mode.IsDir() {
		return nil, fmt.Errorf("not a regular file or directory: %s (%s)", absPath, mode.Type())
	}

	return ortho.NewPath(absPath, info.IsDir(), info), nil
}

func (m *OSFilesystemManager) Open(path *ortho.Path) (io.ReadCloser, error) {
	if path.IsDir() {
		return nil, fmt.Errorf("cannot open directory as file: %s", path.String())
	}
	return os.Open(path.String())
}

func (m *OSFilesystemManager) Stat(path *ortho.Path) (fs.FileInfo, error) {
	return os.Stat(path.String())
}

// FindFiles lists the regular files under a directory, sorted by path.
// Symlinks and other special files are skipped.
func (m *OSFilesystemManager) FindFiles(path *ortho.Path, recursive bool) ([]*ortho.Path, error) {
	if !path.IsDir() {
		return nil, fmt.Errorf("path is not a directory: %s", path.String())
	}

	var paths []*ortho.Path
	root := path.String()
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != root && !recursive {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return fmt.Errorf("stat %s: %w", p, err)
		}
		paths = append(paths, ortho.NewPath(p, false, info))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking directory: %w", err)
	}

	sort.Slice(paths, func(i, j int) bool { return paths[i].String() < paths[j].String() })
	return paths, nil
}

// IsIgnored reports whether path, found under root, matches an ignore pattern.
func (m *OSFilesystemManager) IsIgnored(path *ortho.Path, root string) (bool, error) {
	rel, err := filepath.Rel(root, path.String())
	if err != nil {
		return false, fmt.Errorf("relative path: %w", err)
	}
	matcher, err := m.matcherFor(root)
	if err != nil {
		return false, err
	}
	return matcher.Match(rel), nil
}

// matcherFor returns the configured patterns combined with root's ignore file.
func (m *OSFilesystemManager) matcherFor(root string) (*IgnoreMatcher, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if matcher, ok := m.perRoot[root]; ok {
		return matcher, nil
	}
	extra, err := ParseIgnoreFile(filepath.Join(root, IgnoreFileName))
	if err != nil {
		return nil, err
	}
	matcher := m.ignore.With(extra)
	m.perRoot[root] = matcher
	return matcher, nil
}

var _ ortho.FilesystemManager = (*OSFilesystemManager)(nil)
