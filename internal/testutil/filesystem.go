package testutil

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"time"

	orthofs "ortho-go/internal/fs"
	"ortho-go/internal/ortho"
)

// MockFile represents a file in the mock filesystem.
type MockFile struct {
	Content     []byte
	ModTime     time.Time
	IsDirectory bool
}

// MockFilesystemManager is an in-memory filesystem for testing uploads of
// local files and folders.
type MockFilesystemManager struct {
	files  map[string]*MockFile
	ignore *orthofs.IgnoreMatcher
}

// NewMockFilesystemManager creates a new mock filesystem that skips files
// matching the given ignore patterns.
func NewMockFilesystemManager(ignore ...string) *MockFilesystemManager {
	return &MockFilesystemManager{
		files:  make(map[string]*MockFile),
		ignore: orthofs.NewIgnoreMatcher(ignore),
	}
}

// AddFile adds a file, and its parent directories, to the mock filesystem.
func (m *MockFilesystemManager) AddFile(path string, content []byte) {
	for dir := filepath.Dir(path); dir != "/" && dir != "."; dir = filepath.Dir(dir) {
		if _, ok := m.files[dir]; !ok {
			m.AddDirectory(dir)
		}
	}
	m.files[path] = &MockFile{Content: content, ModTime: FixedClock().Now()}
}

// AddDirectory adds a directory to the mock filesystem.
func (m *MockFilesystemManager) AddDirectory(path string) {
	m.files[path] = &MockFile{ModTime: FixedClock().Now(), IsDirectory: true}
}

func (m *MockFilesystemManager) Resolve(rawPath string) (*ortho.Path, error) {
	absPath, err := filepath.Abs(rawPath)
	if err != nil {
		return nil, err
	}
	file, ok := m.files[absPath]
	if !ok {
		return nil, fmt.Errorf("file not found: %s", absPath)
	}
	return ortho.NewPath(absPath, file.IsDirectory, newMockFileInfo(absPath, file)), nil
}

func (m *MockFilesystemManager) Open(path *ortho.Path) (io.ReadCloser, error) {
	file, ok := m.files[path.String()]
	if !ok {
		return nil, fmt.Errorf("file not found: %s", path.String())
	}
	if file.IsDirectory {
		return nil, fmt.Errorf("cannot open directory: %s", path.String())
	}
	return io.NopCloser(bytes.NewReader(file.Content)), nil
}

func (m *MockFilesystemManager) Stat(path *ortho.Path) (fs.FileInfo, error) {
	file, ok := m.files[path.String()]
	if !ok {
		return nil, fmt.Errorf("file not found: %s", path.String())
	}
	return newMockFileInfo(path.String(), file), nil
}

func (m *MockFilesystemManager) FindFiles(path *ortho.Path, recursive bool) ([]*ortho.Path, error) {
	if !path.IsDir() {
		return nil, fmt.Errorf("path is not a directory: %s", path.String())
	}
	prefix := path.String() + string(filepath.Separator)

	var paths []*ortho.Path
	for p, file := range m.files {
		if file.IsDirectory || !strings.HasPrefix(p, prefix) {
			continue
		}
		if !recursive && filepath.Dir(p) != path.String() {
			continue
		}
		paths = append(paths, ortho.NewPath(p, false, newMockFileInfo(p, file)))
	}
	sort.Slice(paths, func(i, j int) bool { return paths[i].String() < paths[j].String() })
	return paths, nil
}

func (m *MockFilesystemManager) IsIgnored(path *ortho.Path, root string) (bool, error) {
	rel, err := filepath.Rel(root, path.String())
	if err != nil {
		return false, err
	}
	return m.ignore.Match(rel), nil
}

// mockFileInfo implements fs.FileInfo
type mockFileInfo struct {
	name    string
	size    int64
	modTime time.Time
	isDir   bool
}

func newMockFileInfo(path string, file *MockFile) *mockFileInfo {
	return &mockFileInfo{
		name:    filepath.Base(path),
		size:    int64(len(file.Content)),
		modTime: file.ModTime,
		isDir:   file.IsDirectory,
	}
}

func (m *mockFileInfo) Name() string { return m.name }
func (m *mockFileInfo) Size() int64  { return m.size }
func (m *mockFileInfo) Mode() fs.FileMode {
	if m.isDir {
		return fs.ModeDir | 0o755
	}
	return 0o644
}
func (m *mockFileInfo) ModTime() time.Time { return m.modTime }
func (m *mockFileInfo) IsDir() bool        { return m.isDir }
func (m *mockFileInfo) Sys() any           { return nil }

var _ ortho.FilesystemManager = (*MockFilesystemManager)(nil)
