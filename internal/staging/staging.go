package staging

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"ortho-go/internal/ortho"
)

const partSuffix = ".part"

// stagingArea implements ortho.StagingArea using a pluggable stagingStore
// for the storage mechanics. All shared algorithm logic lives here.
type stagingArea struct {
	store   stagingStore
	maxSize int64
	mu      sync.Mutex
}

var _ ortho.StagingArea = (*stagingArea)(nil)

// partName returns the staging entry name for a chunk: <name>.<position>.part
func partName(name string, position int) string {
	return name + "." + strconv.Itoa(position) + partSuffix
}

// parsePartName splits a staging entry into the logical file name and the
// position. Entries that are not <name>.<positive int>.part report false.
func parsePartName(entry string) (name string, position int, ok bool) {
	rest, found := strings.CutSuffix(entry, partSuffix)
	if !found {
		return "", 0, false
	}
	dot := strings.LastIndexByte(rest, '.')
	if dot <= 0 {
		return "", 0, false
	}
	digits := rest[dot+1:]
	if digits == "" || strings.TrimLeft(digits, "0123456789") != "" {
		return "", 0, false
	}
	pos, err := strconv.Atoi(digits)
	if err != nil || pos < 1 {
		return "", 0, false
	}
	return rest[:dot], pos, true
}

// Put stages data as the part at position of name.
func (s *stagingArea) Put(name string, position int, data []byte) error {
	entry := partName(name, position)

	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.store.Size()
	if err != nil {
		return fmt.Errorf("getting current size: %w", err)
	}
	previous, _, err := s.store.PartSize(entry)
	if err != nil {
		return fmt.Errorf("checking existing part: %w", err)
	}
	if current-previous+int64(len(data)) > s.maxSize {
		return fmt.Errorf("staging area full: would exceed max size of %d bytes", s.maxSize)
	}

	if err := s.store.WritePart(entry, data); err != nil {
		return fmt.Errorf("writing %s: %w", entry, err)
	}
	return nil
}

// Count returns the number of distinct positions in 1..total staged for name.
// Stray parts outside that range, left over from an abandoned upload with a
// different total, are not counted.
func (s *stagingArea) Count(name string, total int) (int, error) {
	s.mu.Lock()
	entries, err := s.store.List()
	s.mu.Unlock()
	if err != nil {
		return 0, fmt.Errorf("listing staging area: %w", err)
	}

	seen := make(map[int]struct{})
	for _, entry := range entries {
		base, pos, ok := parsePartName(entry)
		if !ok || base != name || pos > total {
			continue
		}
		seen[pos] = struct{}{}
	}
	return len(seen), nil
}

// Open returns a reader for the staged part at position of name.
func (s *stagingArea) Open(name string, position int) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, err := s.store.OpenPart(partName(name, position))
	if err != nil {
		return nil, fmt.Errorf("part %d of %s not found: %w", position, name, err)
	}
	return r, nil
}

// Remove deletes the staged part at position of name.
func (s *stagingArea) Remove(name string, position int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.RemovePart(partName(name, position))
}

// Clear deletes everything in the staging area.
func (s *stagingArea) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.RemoveAll()
}

// Size returns the total size of staged parts in bytes.
func (s *stagingArea) Size() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Size()
}
