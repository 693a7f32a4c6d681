package app

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"ortho-go/internal/config"
	"ortho-go/internal/database"
	"ortho-go/internal/database/sqlc"
	"ortho-go/internal/encryption"
	"ortho-go/internal/events"
	"ortho-go/internal/fs"
	"ortho-go/internal/ortho"
	"ortho-go/internal/server"
	"ortho-go/internal/staging"
	"ortho-go/internal/vault"
)

// DefaultChunkSize is the chunk size the upload command splits files into.
const DefaultChunkSize = 1 << 20

// OrthoApp is the application layer between the CLI and UploadService.
// It constructs all dependencies from config, exposes high-level operations
// that accept raw strings, and releases resources on Close.
type OrthoApp struct {
	cfg       *config.Config
	db        ortho.Database
	vault     ortho.Vault
	staging   ortho.StagingArea
	fsmgr     ortho.FilesystemManager
	encryptor ortho.Encryptor
	broker    *events.Broker
	service   *ortho.UploadService
	logger    ortho.Logger
	op        *Operation
	logFile   *os.File
}

// NewOrthoApp creates a fully wired OrthoApp from the given config.
// operation identifies the CLI command being run (e.g. "Upload", "Serve").
// The caller must call Close when done.
func NewOrthoApp(cfg *config.Config, operation string) (*OrthoApp, error) {
	fsmgr := fs.NewOSFilesystemManager(cfg.Filesystem.Ignore)

	v, err := vault.NewVaultFromConfig(cfg.Vault)
	if err != nil {
		return nil, fmt.Errorf("creating vault: %w", err)
	}

	sa, err := staging.NewStagingAreaFromConfig(cfg.Staging)
	if err != nil {
		return nil, fmt.Errorf("creating staging area: %w", err)
	}

	enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
	if err != nil {
		return nil, fmt.Errorf("creating encryptor: %w", err)
	}

	opID := time.Now().UTC().Format("20060102T150405Z")
	logger, logFile, err := newLogger(cfg.LogDir, opID, parseLevel(cfg.LogLevel))
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	adapter := &slogAdapter{l: logger}

	db, err := database.NewDatabaseFromConfig(cfg.Database, ortho.RealClock{})
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("creating database: %w", err)
	}
	if err := db.CheckMigrations(); err != nil {
		db.Close()
		logFile.Close()
		return nil, fmt.Errorf("database schema out of date: %w", err)
	}

	broker := events.NewBroker(events.DefaultBuffer, adapter)
	svc := ortho.NewUploadService(db, sa, v, enc, broker, adapter, ortho.RealClock{}, ortho.UUIDGenerator{})

	return &OrthoApp{
		cfg:       cfg,
		db:        db,
		vault:     v,
		staging:   sa,
		fsmgr:     fsmgr,
		encryptor: enc,
		broker:    broker,
		service:   svc,
		logger:    adapter,
		op:        NewOperation(operation, ""),
		logFile:   logFile,
	}, nil
}

// persistOperation saves the operation to the database, giving it an auto-increment ID.
// This should only be called for commands that change stored records.
func (a *OrthoApp) persistOperation(parameters string) error {
	if a.op.Persisted() {
		return nil
	}
	a.op.Parameters = parameters
	dbOp, err := a.db.CreateOperation(a.op.Operation, a.op.Parameters)
	if err != nil {
		return fmt.Errorf("persisting operation: %w", err)
	}
	a.op.ID = dbOp.ID
	return nil
}

// track marks the operation failed when err is non-nil and returns err.
func (a *OrthoApp) track(err error) error {
	if err != nil {
		a.op.Fail()
	}
	return err
}

// Encrypted reports whether stored files need a passphrase to be read.
func (a *OrthoApp) Encrypted() bool {
	return a.encryptor != nil
}

// Unlock unlocks stored files for reading with the given passphrase.
func (a *OrthoApp) Unlock(passphrase string) error {
	return a.service.Unlock(passphrase)
}

// SetupKeys generates the encryption keys, protected by passphrase.
func (a *OrthoApp) SetupKeys(passphrase string) error {
	if a.encryptor == nil {
		return errors.New("encryption is disabled; set encryption.type in the config")
	}
	return a.encryptor.Setup(passphrase)
}

// Subscribe returns a stream of upload events and a function to end it.
func (a *OrthoApp) Subscribe() (<-chan ortho.Event, func()) {
	return a.broker.Subscribe()
}

// UploadOptions controls how local files are uploaded.
type UploadOptions struct {
	OwnerID   string
	Category  string
	Recursive bool
	// ChunkSize defaults to DefaultChunkSize.
	ChunkSize int
	// ThumbnailPath is an image stored as the thumbnail of uploaded videos.
	ThumbnailPath string
}

// UploadFiles uploads a local file, or every file of a folder, the way the
// upload form does: each file is split into chunks that are delivered to
// the pipeline one by one. Files matching ignore patterns are skipped.
// Returns the number of files uploaded.
func (a *OrthoApp) UploadFiles(rawPath string, opts UploadOptions) (int, error) {
	if err := a.persistOperation(opts.OwnerID + " " + opts.Category + " " + rawPath); err != nil {
		return 0, err
	}
	n, err := a.uploadFiles(rawPath, opts)
	return n, a.track(err)
}

func (a *OrthoApp) uploadFiles(rawPath string, opts UploadOptions) (int, error) {
	category, err := ortho.ParseCategory(opts.Category)
	if err != nil {
		return 0, err
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}

	var thumbnail []byte
	if opts.ThumbnailPath != "" && category.HasThumbnail() {
		thumbnail, err = readDataURL(opts.ThumbnailPath)
		if err != nil {
			return 0, err
		}
	}

	p, err := a.fsmgr.Resolve(rawPath)
	if err != nil {
		return 0, fmt.Errorf("resolving path: %w", err)
	}

	files := []*ortho.Path{p}
	root := filepath.Dir(p.String())
	if p.IsDir() {
		root = p.String()
		files, err = a.fsmgr.FindFiles(p, opts.Recursive)
		if err != nil {
			return 0, fmt.Errorf("finding files: %w", err)
		}
	}

	count := 0
	for _, f := range files {
		ignored, err := a.fsmgr.IsIgnored(f, root)
		if err != nil {
			return count, err
		}
		if ignored {
			a.logger.Debug("skipping ignored file", "path", f.String())
			continue
		}
		if err := a.uploadFile(f, opts.OwnerID, category, opts.ChunkSize, thumbnail); err != nil {
			return count, fmt.Errorf("uploading %s: %w", f.String(), err)
		}
		count++
	}
	return count, nil
}

// uploadFile delivers one local file as ceil(size/chunkSize) chunks.
func (a *OrthoApp) uploadFile(p *ortho.Path, ownerID string, category ortho.Category, chunkSize int, thumbnail []byte) error {
	info, err := a.fsmgr.Stat(p)
	if err != nil {
		return fmt.Errorf("stat: %w", err)
	}
	size := info.Size()
	total := int((size + int64(chunkSize) - 1) / int64(chunkSize))
	if total == 0 {
		total = 1
	}

	r, err := a.fsmgr.Open(p)
	if err != nil {
		return fmt.Errorf("opening: %w", err)
	}
	defer r.Close()

	buf := make([]byte, chunkSize)
	remaining := size
	for pos := 1; pos <= total; pos++ {
		n := int(min(int64(chunkSize), remaining))
		if _, err := io.ReadFull(r, buf[:n]); err != nil {
			return fmt.Errorf("reading chunk %d: %w", pos, err)
		}
		remaining -= int64(n)

		err := a.service.ReceiveChunk(&ortho.Chunk{
			OwnerID:     ownerID,
			Category:    category,
			FileName:    p.Name(),
			Data:        buf[:n],
			Position:    pos,
			TotalChunks: total,
			Thumbnail:   thumbnail,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// readDataURL reads an image file and encodes it as a base64 data URL, the
// form thumbnails are stored in.
func readDataURL(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading thumbnail: %w", err)
	}
	contentType := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if contentType == "" {
		contentType = "image/png"
	}
	return []byte("data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data)), nil
}

// ListFiles returns the stored files of an owner in a category, newest first.
func (a *OrthoApp) ListFiles(ownerID, rawCategory string) ([]*sqlc.File, error) {
	category, err := ortho.ParseCategory(rawCategory)
	if err != nil {
		return nil, err
	}
	return a.service.ListFiles(ownerID, category)
}

// GetFile writes the content of the stored file with the given ID to w.
func (a *OrthoApp) GetFile(id string, w io.Writer) (*sqlc.File, error) {
	return a.service.ReadFile(id, w)
}

// DeleteFile removes a stored file and its record.
func (a *OrthoApp) DeleteFile(id string) (bool, error) {
	if err := a.persistOperation(id); err != nil {
		return false, err
	}
	deleted, err := a.service.DeleteFile(id)
	if err == nil && !deleted {
		a.op.Fail()
	}
	return deleted, a.track(err)
}

// ClearStaging deletes every staged chunk.
func (a *OrthoApp) ClearStaging() error {
	if err := a.persistOperation(""); err != nil {
		return err
	}
	return a.track(a.service.ClearStaging())
}

// GetHistory returns the most recent operations.
func (a *OrthoApp) GetHistory(limit int) ([]*sqlc.Operation, error) {
	return a.service.GetHistory(limit)
}

// BackupDatabase writes a consistent snapshot of the records database to destPath.
func (a *OrthoApp) BackupDatabase(destPath string) error {
	absPath, err := filepath.Abs(destPath)
	if err != nil {
		return fmt.Errorf("resolving path: %w", err)
	}
	if err := a.persistOperation(absPath); err != nil {
		return err
	}
	return a.track(a.db.BackupTo(absPath))
}

// Serve runs the HTTP upload server until ctx is cancelled.
func (a *OrthoApp) Serve(ctx context.Context) error {
	if err := a.vault.ValidateSetup(); err != nil {
		return fmt.Errorf("vault not ready: %w", err)
	}
	srv := server.New(a.service, a.broker, a.logger, a.cfg.Server.MaxChunkSize)
	return srv.Run(ctx, a.cfg.Server.Addr)
}

// Close finalizes the operation record and closes all resources.
func (a *OrthoApp) Close() error {
	var firstErr error

	if a.op.Persisted() {
		if err := a.db.FinishOperation(a.op.ID, a.op.Status); err != nil {
			firstErr = fmt.Errorf("finishing operation: %w", err)
		}
	}

	a.broker.Close()

	if err := a.db.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("closing database: %w", err)
	}

	if a.logFile != nil {
		a.logFile.Close()
	}

	return firstErr
}
