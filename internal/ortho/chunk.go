package ortho

import (
	"fmt"
	"math/bits"
	"strings"
)

// Chunk is one piece of a logical file as delivered by the client.
// The client splits the file into fixed-size chunks and sends each with its
// 1-based position and the total number of chunks.
type Chunk struct {
	OwnerID     string
	Category    Category
	FileName    string
	Data        []byte
	Position    int
	TotalChunks int

	// Thumbnail is an optional preview supplied with video uploads.
	Thumbnail []byte
}

// Validate checks the chunk before anything touches the staging area.
func (c *Chunk) Validate() error {
	if err := validateName(c.OwnerID); err != nil {
		return fmt.Errorf("%w: owner id: %v", ErrInvalidChunk, err)
	}
	if err := validateName(c.FileName); err != nil {
		return fmt.Errorf("%w: file name: %v", ErrInvalidChunk, err)
	}
	if !c.Category.Valid() {
		return fmt.Errorf("%w: unknown category %q", ErrInvalidChunk, c.Category)
	}
	if c.TotalChunks < 1 {
		return fmt.Errorf("%w: total chunks must be positive, got %d", ErrInvalidChunk, c.TotalChunks)
	}
	if c.Position < 1 || c.Position > c.TotalChunks {
		return fmt.Errorf("%w: position %d out of range 1..%d", ErrInvalidChunk, c.Position, c.TotalChunks)
	}
	return nil
}

// Percent returns the upload progress after this chunk, floored.
// The product is taken at 128 bits so any valid chunk count is exact.
func (c *Chunk) Percent() int {
	if c.TotalChunks < 1 || c.Position < 1 {
		return 0
	}
	if c.Position >= c.TotalChunks {
		return 100
	}
	hi, lo := bits.Mul64(uint64(c.Position), 100)
	q, _ := bits.Div64(hi, lo, uint64(c.TotalChunks))
	return int(q)
}

// validateName rejects names that could escape the directory they are joined into.
func validateName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("empty")
	case name == "." || name == "..":
		return fmt.Errorf("%q is not allowed", name)
	case strings.ContainsAny(name, "/\\\x00"):
		return fmt.Errorf("%q contains a path separator", name)
	}
	return nil
}
