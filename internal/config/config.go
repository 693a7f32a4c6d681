package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the main configuration for ortho.
type Config struct {
	BaseDir    string           `toml:"base_dir"`
	LogDir     string           `toml:"log_dir"`
	LogLevel   string           `toml:"log_level"` // "debug", "info" (default), "warn" or "error"
	Vault      VaultConfig      `toml:"vault"`
	Encryption EncryptionConfig `toml:"encryption"`
	Database   DatabaseConfig   `toml:"database"`
	Staging    StagingConfig    `toml:"staging"`
	Server     ServerConfig     `toml:"server"`
	Filesystem FilesystemConfig `toml:"filesystem"`
}

// EncryptionConfig selects at-rest encryption of stored records.
type EncryptionConfig struct {
	Type           string `toml:"type"` // "none" (default), "age" or "test"
	PublicKeyPath  string `toml:"public_key_path,omitempty"`
	PrivateKeyPath string `toml:"private_key_path,omitempty"`
}

// FilesystemConfig holds settings for reading local files to upload.
type FilesystemConfig struct {
	Ignore []string `toml:"ignore"`
}

// VaultConfig represents configuration for the record vault.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type VaultConfig struct {
	Type string `toml:"type"` // "memory", "filesystem", "s3" or "minio"
	Name string `toml:"name"`

	// Object store fields (Type == "s3" or "minio")
	S3Bucket    string `toml:"s3_bucket,omitempty"`
	S3Prefix    string `toml:"s3_prefix,omitempty"`
	S3Region    string `toml:"s3_region,omitempty"`
	S3Endpoint  string `toml:"s3_endpoint,omitempty"` // URL for s3, host:port for minio
	S3AccessKey string `toml:"s3_access_key,omitempty"`
	S3SecretKey string `toml:"s3_secret_key,omitempty"`
	S3UseSSL    bool   `toml:"s3_use_ssl,omitempty"` // minio only

	// FileSystem-specific fields (only used when Type == "filesystem")
	FSVaultRoot string `toml:"fs_vault_root,omitempty"`
}

// DatabaseConfig represents configuration for the records database.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type DatabaseConfig struct {
	Type    string `toml:"type"`               // "sqlite" or "memory"
	DataDir string `toml:"data_dir,omitempty"` // only used for type=sqlite
}

// StagingConfig represents configuration for the chunk staging area.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type StagingConfig struct {
	Type       string `toml:"type"`                  // "memory" or "filesystem"
	StagingDir string `toml:"staging_dir,omitempty"` // only used for type=filesystem
	MaxSize    int64  `toml:"max_size"`              // max total size in bytes; defaults to 2GiB
}

// ServerConfig holds settings for the HTTP upload server.
type ServerConfig struct {
	Addr         string `toml:"addr"`
	MaxChunkSize int64  `toml:"max_chunk_size"` // largest accepted chunk in bytes
}

const (
	DefaultServerAddr   = "127.0.0.1:3245"
	DefaultMaxChunkSize = 64 << 20
)

// DefaultIgnore lists files that operating systems drop into folders.
var DefaultIgnore = []string{".DS_Store", "Thumbs.db", "desktop.ini"}

// NewConfig creates a Config rooted at baseDir with every backend on disk:
//
//	<baseDir>/records   stored files
//	<baseDir>/temp      staged chunks
//	<baseDir>/db        records database
//	<baseDir>/log       logs
//	<baseDir>/keys      encryption keys (when enabled)
func NewConfig(baseDir string) *Config {
	return &Config{
		BaseDir:  baseDir,
		LogDir:   filepath.Join(baseDir, "log"),
		LogLevel: "info",
		Vault: VaultConfig{
			Type:        "filesystem",
			Name:        "records",
			FSVaultRoot: filepath.Join(baseDir, "records"),
		},
		Encryption: EncryptionConfig{
			Type:           "none",
			PublicKeyPath:  filepath.Join(baseDir, "keys", "ortho.pub"),
			PrivateKeyPath: filepath.Join(baseDir, "keys", "ortho.key"),
		},
		Database: DatabaseConfig{
			Type:    "sqlite",
			DataDir: filepath.Join(baseDir, "db"),
		},
		Staging: StagingConfig{
			Type:       "filesystem",
			StagingDir: filepath.Join(baseDir, "temp"),
			MaxSize:    2 << 30,
		},
		Server: ServerConfig{
			Addr:         DefaultServerAddr,
			MaxChunkSize: DefaultMaxChunkSize,
		},
		Filesystem: FilesystemConfig{
			Ignore: append([]string(nil), DefaultIgnore...),
		},
	}
}

// Validate reports the first missing or unknown setting.
func (c *Config) Validate() error {
	switch c.Vault.Type {
	case "memory", "filesystem", "s3", "minio":
	default:
		return fmt.Errorf("vault.type: unknown type %q", c.Vault.Type)
	}
	switch c.Database.Type {
	case "memory", "sqlite":
	default:
		return fmt.Errorf("database.type: unknown type %q", c.Database.Type)
	}
	switch c.Staging.Type {
	case "memory", "filesystem":
	default:
		return fmt.Errorf("staging.type: unknown type %q", c.Staging.Type)
	}
	switch c.Encryption.Type {
	case "", "none", "age", "test":
	default:
		return fmt.Errorf("encryption.type: unknown type %q", c.Encryption.Type)
	}
	switch c.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level: unknown level %q", c.LogLevel)
	}
	return nil
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = DefaultServerAddr
	}
	if cfg.Server.MaxChunkSize <= 0 {
		cfg.Server.MaxChunkSize = DefaultMaxChunkSize
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func writeToFile(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// The file may hold object store credentials.
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init writes cfg to a new config file at path. It refuses to overwrite.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}
	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
