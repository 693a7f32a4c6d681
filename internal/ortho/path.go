package ortho

import (
	"io/fs"
	"path/filepath"
)

// Path is a local source file or directory picked for upload, with the stat
// info captured when it was resolved. Paths are created by
// FilesystemManager.Resolve and FilesystemManager.FindFiles.
type Path struct {
	abs   string
	isDir bool
	info  fs.FileInfo
}

// NewPath creates a Path from its components.
// This is primarily for use by FilesystemManager implementations.
func NewPath(abs string, isDir bool, info fs.FileInfo) *Path {
	return &Path{abs: abs, isDir: isDir, info: info}
}

func (p *Path) String() string { return p.abs }

// Name returns the base name, which becomes the logical file name of the upload.
func (p *Path) Name() string { return filepath.Base(p.abs) }

func (p *Path) IsDir() bool { return p.isDir }

// Size returns the size captured at resolve time.
func (p *Path) Size() int64 {
	if p.info == nil {
		return 0
	}
	return p.info.Size()
}

// Info returns the cached file info from when the path was resolved.
func (p *Path) Info() fs.FileInfo { return p.info }
