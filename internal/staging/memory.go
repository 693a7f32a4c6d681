package staging

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"ortho-go/internal/ortho"
)

// memoryStore keeps staged parts in a map, making it useful for testing.
type memoryStore struct {
	parts map[string][]byte
}

var _ stagingStore = (*memoryStore)(nil)

// NewMemoryStagingArea creates a new in-memory staging area.
// maxSize is the maximum total size in bytes; must be positive.
func NewMemoryStagingArea(maxSize int64) ortho.StagingArea {
	return &stagingArea{
		store:   &memoryStore{parts: make(map[string][]byte)},
		maxSize: maxSize,
	}
}

func (m *memoryStore) WritePart(entry string, data []byte) error {
	m.parts[entry] = append([]byte(nil), data...)
	return nil
}

func (m *memoryStore) OpenPart(entry string) (io.ReadCloser, error) {
	data, ok := m.parts[entry]
	if !ok {
		return nil, fmt.Errorf("%s: %w", entry, os.ErrNotExist)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memoryStore) PartSize(entry string) (int64, bool, error) {
	data, ok := m.parts[entry]
	return int64(len(data)), ok, nil
}

func (m *memoryStore) RemovePart(entry string) error {
	delete(m.parts, entry)
	return nil
}

func (m *memoryStore) List() ([]string, error) {
	entries := make([]string, 0, len(m.parts))
	for entry := range m.parts {
		entries = append(entries, entry)
	}
	return entries, nil
}

func (m *memoryStore) Size() (int64, error) {
	var total int64
	for _, data := range m.parts {
		total += int64(len(data))
	}
	return total, nil
}

func (m *memoryStore) RemoveAll() error {
	clear(m.parts)
	return nil
}
