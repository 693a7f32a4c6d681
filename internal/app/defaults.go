package app

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	EnvConfigPath = "ORTHO_CONFIG_PATH"
	EnvHome       = "ORTHO_HOME"
)

// Defaults are the locations ortho uses when the config does not say otherwise.
type Defaults struct {
	ConfigPath string
	BaseDir    string
	LogDir     string
}

// GetDefaults returns application default paths, checking environment variables first.
// Environment variables:
//   - ORTHO_CONFIG_PATH: config file location (default: ~/.config/ortho.toml)
//   - ORTHO_HOME: base directory for ortho data (default: ~/.local/share/ortho)
func GetDefaults() (*Defaults, error) {
	configPath, err := envOrHome(EnvConfigPath, ".config", "ortho.toml")
	if err != nil {
		return nil, err
	}
	baseDir, err := envOrHome(EnvHome, ".local", "share", "ortho")
	if err != nil {
		return nil, err
	}
	return &Defaults{
		ConfigPath: configPath,
		BaseDir:    baseDir,
		LogDir:     filepath.Join(baseDir, "log"),
	}, nil
}

// envOrHome returns the value of env, or the home directory joined with elem.
func envOrHome(env string, elem ...string) (string, error) {
	if path := os.Getenv(env); path != "" {
		return path, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(append([]string{homeDir}, elem...)...), nil
}
