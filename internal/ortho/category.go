package ortho

import "fmt"

// Category classifies a stored file. It decides the naming policy of the
// stored object and the storage subpath it lives under.
type Category string

const (
	CategoryPhotos Category = "photos"
	CategoryVideos Category = "videos"
	CategoryDocs   Category = "docs"
)

// Categories lists every known category in display order.
var Categories = []Category{CategoryPhotos, CategoryVideos, CategoryDocs}

// ParseCategory converts a raw category string into a Category.
func ParseCategory(raw string) (Category, error) {
	c := Category(raw)
	if !c.Valid() {
		return "", fmt.Errorf("unknown category: %q", raw)
	}
	return c, nil
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryPhotos, CategoryVideos, CategoryDocs:
		return true
	}
	return false
}

// KeepsOriginalName reports whether files of this category are stored under
// the name they were uploaded with. Documents keep their name so that a
// re-upload replaces the previous version; media get a generated name.
func (c Category) KeepsOriginalName() bool {
	return c == CategoryDocs
}

// HasThumbnail reports whether uploads of this category carry a thumbnail
// that is persisted alongside the file record.
func (c Category) HasThumbnail() bool {
	return c == CategoryVideos
}
