package ortho

import "io"

// Vault is the final storage for reassembled files.
// Keys have the form <ownerID>/<category>/<name>, always with forward slashes.
type Vault interface {
	// Put stores everything read from r under key, replacing any existing
	// object. The object only becomes visible once r has been fully consumed,
	// so a failed or interrupted Put never leaves a truncated file behind.
	Put(key string, r io.Reader) error

	// Get writes the object stored under key to w.
	Get(key string, w io.Writer) error

	// Delete removes the object stored under key. Deleting a missing object is not an error.
	Delete(key string) error

	// ValidateSetup verifies that the vault is accessible and properly configured.
	ValidateSetup() error
}
