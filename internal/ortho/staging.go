package ortho

import "io"

// StagingArea holds the chunks of in-flight uploads until every part of a
// logical file has arrived. Parts are addressed by the logical file name and
// their 1-based position; the on-disk layout is <name>.<position>.part.
type StagingArea interface {
	// Put stages data as the part for (name, position). Delivering the same
	// position again replaces the earlier part instead of adding a new one.
	// The staging directory is created if it does not exist.
	Put(name string, position int, data []byte) error

	// Count scans the staging area and returns how many distinct positions
	// in 1..total are staged for name.
	Count(name string, total int) (int, error)

	// Open returns a reader for the staged part at position.
	Open(name string, position int) (io.ReadCloser, error)

	// Remove deletes the staged part at position. Removing a missing part is not an error.
	Remove(name string, position int) error

	// Clear deletes every staged file unconditionally.
	// Clearing an empty or missing staging directory succeeds.
	Clear() error

	// Size returns the total size of staged parts in bytes.
	Size() (int64, error)
}
