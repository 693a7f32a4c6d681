package ortho

import "errors"

var (
	// ErrInvalidChunk is returned when a chunk fails validation before it is staged.
	ErrInvalidChunk = errors.New("invalid chunk")

	// ErrNotFound is returned when a stored file or its record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrLocked is returned when encrypted files are read before the
	// private key has been unlocked.
	ErrLocked = errors.New("stored files are locked")
)
