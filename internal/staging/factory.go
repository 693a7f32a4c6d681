package staging

import (
	"fmt"

	"ortho-go/internal/config"
	"ortho-go/internal/ortho"
)

// DefaultMaxSize is the default maximum staging area size (2GiB).
const DefaultMaxSize int64 = 2 << 30

// NewStagingAreaFromConfig creates a StagingArea implementation based on the config type.
func NewStagingAreaFromConfig(cfg config.StagingConfig) (ortho.StagingArea, error) {
	maxSize := cfg.MaxSize
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}

	switch cfg.Type {
	case "memory":
		return NewMemoryStagingArea(maxSize), nil
	case "filesystem":
		if cfg.StagingDir == "" {
			return nil, fmt.Errorf("filesystem staging area requires staging_dir to be set")
		}
		return NewFileSystemStagingArea(cfg.StagingDir, maxSize)
	default:
		return nil, fmt.Errorf("unknown staging area type: %s", cfg.Type)
	}
}
