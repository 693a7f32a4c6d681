package staging

import "io"

// stagingStore abstracts the storage mechanics for a staging area.
// Entries are addressed by their file name inside the staging directory.
// Concurrency is managed by the caller (stagingArea.mu), so stores
// do not need to be safe for concurrent use.
type stagingStore interface {
	// WritePart stores data under entry, replacing any previous content.
	// A reader never observes a partially written entry.
	WritePart(entry string, data []byte) error

	// OpenPart returns a reader for the content of entry.
	OpenPart(entry string) (io.ReadCloser, error)

	// PartSize returns the size of entry, or false if it does not exist.
	PartSize(entry string) (int64, bool, error)

	// RemovePart deletes entry. Removing a missing entry is not an error.
	RemovePart(entry string) error

	// List returns the names of all entries. A missing directory lists as empty.
	List() ([]string, error)

	// Size returns total bytes of all entries.
	Size() (int64, error)

	// RemoveAll deletes every entry.
	RemoveAll() error
}
