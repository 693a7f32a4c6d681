package fs

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// IgnoreFileName is the per-folder file listing extra patterns to skip when
// a folder is uploaded.
const IgnoreFileName = ".orthoignore"

// alwaysIgnored are skipped regardless of config.
var alwaysIgnored = []string{IgnoreFileName}

type ignorePattern struct {
	pattern   string
	matchPath bool // true = match against relative path; false = match against basename only
}

// IgnoreMatcher checks file paths against a set of ignore patterns.
// Patterns without '/' match the basename, ignoring case, since the files
// operating systems leave behind vary in case (Thumbs.db, THUMBS.DB).
// Patterns with '/' match the full relative path from the folder root.
type IgnoreMatcher struct {
	patterns []ignorePattern
}

// NewIgnoreMatcher creates an IgnoreMatcher from raw pattern strings.
// Blank lines and lines starting with '#' are skipped.
func NewIgnoreMatcher(rawPatterns []string) *IgnoreMatcher {
	var patterns []ignorePattern
	for _, raw := range rawPatterns {
		raw = strings.TrimSpace(raw)
		if raw == "" || strings.HasPrefix(raw, "#") {
			continue
		}
		p := ignorePattern{pattern: raw, matchPath: strings.Contains(raw, "/")}
		if !p.matchPath {
			p.pattern = strings.ToLower(raw)
		}
		patterns = append(patterns, p)
	}
	return &IgnoreMatcher{patterns: patterns}
}

// With returns a matcher holding the patterns of m followed by extra.
func (m *IgnoreMatcher) With(extra []string) *IgnoreMatcher {
	more := NewIgnoreMatcher(extra)
	return &IgnoreMatcher{patterns: append(append([]ignorePattern(nil), m.patterns...), more.patterns...)}
}

// Match reports whether relativePath, relative to the folder root, is ignored.
func (m *IgnoreMatcher) Match(relativePath string) bool {
	if relativePath == "" {
		return false
	}
	normalized := filepath.ToSlash(relativePath)
	basename := strings.ToLower(filepath.Base(relativePath))

	for _, p := range m.patterns {
		target := basename
		if p.matchPath {
			target = normalized
		}
		// Malformed patterns never match.
		if ok, err := filepath.Match(p.pattern, target); err == nil && ok {
			return true
		}
	}
	return false
}

// ParseIgnoreFile reads an ignore file and returns its raw lines.
// Returns nil and no error if the file does not exist.
func ParseIgnoreFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening ignore file: %w", err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading ignore file: %w", err)
	}
	return lines, nil
}
