package ortho

import (
	"fmt"
	"io"

	"ortho-go/internal/database/sqlc"
)

// ListFiles returns the stored files of an owner in a category, newest first.
func (s *UploadService) ListFiles(ownerID string, category Category) ([]*sqlc.File, error) {
	if !category.Valid() {
		return nil, fmt.Errorf("unknown category: %q", category)
	}
	files, err := s.database.ListFiles(ownerID, string(category))
	if err != nil {
		return nil, fmt.Errorf("listing files: %w", err)
	}
	return files, nil
}

// DeleteFile removes a stored file and its record.
// Returns false with no error if no file has that ID.
func (s *UploadService) DeleteFile(id string) (bool, error) {
	file, err := s.database.FindFileByID(id)
	if err != nil {
		return false, fmt.Errorf("finding file: %w", err)
	}
	if file == nil {
		return false, nil
	}

	key := StorageKey(file.OwnerID, Category(file.Category), file.Name)
	if err := s.vault.Delete(key); err != nil {
		return false, fmt.Errorf("deleting stored file: %w", err)
	}
	if err := s.database.DeleteFile(file.ID); err != nil {
		return false, fmt.Errorf("deleting file record: %w", err)
	}

	s.logger.Info("file deleted", "id", id, "key", key)
	return true, nil
}

// ClearStaging deletes every staged part, including those of abandoned
// uploads. It succeeds when the staging area is already empty.
func (s *UploadService) ClearStaging() error {
	if err := s.stagingArea.Clear(); err != nil {
		return fmt.Errorf("clearing staging area: %w", err)
	}
	s.uploads.reset()
	s.logger.Info("staging area cleared")
	return nil
}

// ReadFile writes the content of the stored file with the given ID to w.
func (s *UploadService) ReadFile(id string, w io.Writer) (*sqlc.File, error) {
	file, err := s.database.FindFileByID(id)
	if err != nil {
		return nil, fmt.Errorf("finding file: %w", err)
	}
	if file == nil {
		return nil, fmt.Errorf("file %s: %w", id, ErrNotFound)
	}
	if err := s.getDecrypted(StorageKey(file.OwnerID, Category(file.Category), file.Name), w); err != nil {
		return nil, err
	}
	return file, nil
}

// OpenFile writes the content of a stored file, addressed by owner,
// category and stored name, to w.
func (s *UploadService) OpenFile(ownerID string, category Category, name string, w io.Writer) error {
	file, err := s.database.FindFileByName(ownerID, string(category), name)
	if err != nil {
		return fmt.Errorf("finding file: %w", err)
	}
	if file == nil {
		return fmt.Errorf("%s: %w", StorageKey(ownerID, category, name), ErrNotFound)
	}
	return s.getDecrypted(StorageKey(ownerID, category, name), w)
}

// Thumbnail returns the thumbnail stored with a video.
func (s *UploadService) Thumbnail(ownerID string, name string) ([]byte, error) {
	file, err := s.database.FindFileByName(ownerID, string(CategoryVideos), name)
	if err != nil {
		return nil, fmt.Errorf("finding file: %w", err)
	}
	if file == nil || len(file.Thumbnail) == 0 {
		return nil, fmt.Errorf("thumbnail of %s: %w", name, ErrNotFound)
	}
	return file.Thumbnail, nil
}
