package ortho

import (
	"fmt"

	"ortho-go/internal/database/sqlc"
)

// GetHistory returns the most recent operations, ordered newest first.
func (s *UploadService) GetHistory(limit int) ([]*sqlc.Operation, error) {
	ops, err := s.database.ListOperations(limit)
	if err != nil {
		return nil, fmt.Errorf("listing operations: %w", err)
	}
	return ops, nil
}
