package ortho

import (
	"fmt"
	"sync"

	"ortho-go/internal/database/sqlc"
)

// UploadService is the orchestration layer of the upload pipeline. It stages
// chunks, detects when a logical file is complete, reassembles it into the
// vault, registers the file record and reports progress through the Notifier.
//
// Every chunk of a logical file is processed under that file name's lock, so
// completion detection and reassembly happen at most once per upload even
// when chunks arrive concurrently. Different files proceed in parallel.
type UploadService struct {
	database    Database
	stagingArea StagingArea
	vault       Vault
	encryptor   Encryptor
	notifier    Notifier
	logger      Logger
	clock       Clock
	idgen       IDGenerator

	locks   keyedMutex
	uploads uploadTracker

	mu        sync.RWMutex
	decryptor DecryptionContext
}

// NewUploadService creates a new UploadService with the provided dependencies.
// encryptor may be nil, in which case files are stored as uploaded.
// A nil notifier or logger discards output; a nil clock or idgen uses the
// real clock and random UUIDs.
func NewUploadService(database Database, stagingArea StagingArea, vault Vault, encryptor Encryptor, notifier Notifier, logger Logger, clock Clock, idgen IDGenerator) *UploadService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if logger == nil {
		logger = NewNopLogger()
	}
	if clock == nil {
		clock = RealClock{}
	}
	if idgen == nil {
		idgen = UUIDGenerator{}
	}
	return &UploadService{
		database:    database,
		stagingArea: stagingArea,
		vault:       vault,
		encryptor:   encryptor,
		notifier:    notifier,
		logger:      logger,
		clock:       clock,
		idgen:       idgen,
	}
}

// ReceiveChunk stages one chunk of a logical file. When the chunk completes
// the set of parts, the file is reassembled, registered and announced with an
// upload-complete event. Any failure is announced with an upload-error event
// and also returned; nothing is retried.
func (s *UploadService) ReceiveChunk(chunk *Chunk) error {
	if err := chunk.Validate(); err != nil {
		return s.fail(chunk.FileName, err)
	}

	unlock := s.locks.Lock(chunk.FileName)
	defer unlock()

	s.uploads.receiving(chunk.FileName, chunk.Thumbnail)

	if err := s.stagingArea.Put(chunk.FileName, chunk.Position, chunk.Data); err != nil {
		return s.fail(chunk.FileName, fmt.Errorf("staging part %d of %s: %w", chunk.Position, chunk.FileName, err))
	}
	s.logger.Debug("chunk staged", "file", chunk.FileName, "position", chunk.Position, "total", chunk.TotalChunks, "bytes", len(chunk.Data))
	s.notifier.Notify(Event{Type: EventProgress, FileName: chunk.FileName, Percent: chunk.Percent()})

	staged, err := s.stagingArea.Count(chunk.FileName, chunk.TotalChunks)
	if err != nil {
		return s.fail(chunk.FileName, fmt.Errorf("scanning staged parts of %s: %w", chunk.FileName, err))
	}
	if staged < chunk.TotalChunks {
		return nil
	}

	s.uploads.set(chunk.FileName, StateReassembling)
	stored, err := s.reassemble(chunk)
	if err != nil {
		s.discardParts(chunk.FileName, chunk.TotalChunks)
		return s.fail(chunk.FileName, fmt.Errorf("reassembling %s: %w", chunk.FileName, err))
	}
	s.discardParts(chunk.FileName, chunk.TotalChunks)

	file, err := s.register(chunk, stored)
	if err != nil {
		return s.fail(chunk.FileName, fmt.Errorf("registering %s: %w", chunk.FileName, err))
	}
	s.uploads.set(chunk.FileName, StateRegistered)

	s.logger.Info("file uploaded", "file", chunk.FileName, "owner", chunk.OwnerID, "category", string(chunk.Category), "stored_as", file.Name, "size", file.Size)
	s.notifier.Notify(Event{Type: EventComplete, FileName: chunk.FileName})
	s.uploads.set(chunk.FileName, StateNotified)
	return nil
}

// register inserts the file record for a committed object. If the insert
// fails and the object did not replace a registered one, the object is
// removed again so the vault never holds a file the database does not know.
// An object that may have replaced a registered one is always left in place.
func (s *UploadService) register(chunk *Chunk, stored *storedObject) (*sqlc.File, error) {
	category := string(chunk.Category)

	previous, err := s.database.FindFileByName(chunk.OwnerID, category, stored.name)
	if err != nil {
		s.logger.Error("file record lookup failed", "key", stored.key, "error", err)
		// A kept name may still belong to a registered record; generated names never do.
		if !chunk.Category.KeepsOriginalName() {
			s.removeObject(stored.key)
		}
		return nil, fmt.Errorf("checking for existing record: %w", err)
	}

	file := &sqlc.File{
		ID:        s.idgen.New(),
		OwnerID:   chunk.OwnerID,
		Category:  category,
		Name:      stored.name,
		Size:      stored.size,
		Checksum:  stored.checksum,
		CreatedAt: s.clock.Now(),
	}
	if chunk.Category.HasThumbnail() {
		file.Thumbnail = s.uploads.thumbnail(chunk.FileName)
	}

	if err := s.database.CreateFile(file); err != nil {
		s.logger.Error("file record insert failed", "key", stored.key, "error", err)
		if previous == nil {
			s.removeObject(stored.key)
		}
		return nil, err
	}
	return file, nil
}

func (s *UploadService) removeObject(key string) {
	if err := s.vault.Delete(key); err != nil {
		s.logger.Error("removing unregistered file", "key", key, "error", err)
	}
}

// discardParts removes the staged parts 1..total of name.
func (s *UploadService) discardParts(name string, total int) {
	for i := 1; i <= total; i++ {
		if err := s.stagingArea.Remove(name, i); err != nil {
			s.logger.Warn("removing staged part", "file", name, "position", i, "error", err)
		}
	}
}

// fail records the failure, announces it and returns err.
func (s *UploadService) fail(fileName string, err error) error {
	s.logger.Error("upload failed", "file", fileName, "error", err)
	if fileName != "" {
		s.uploads.set(fileName, StateFailed)
	}
	s.notifier.Notify(Event{Type: EventError, FileName: fileName, Error: err.Error()})
	return err
}

// State returns the last known state of the logical upload named fileName.
func (s *UploadService) State(fileName string) UploadState {
	return s.uploads.get(fileName)
}

// Unlock unlocks stored files for reading. It is a no-op when files are
// stored unencrypted.
func (s *UploadService) Unlock(passphrase string) error {
	if s.encryptor == nil {
		return nil
	}
	dec, err := s.encryptor.Unlock(passphrase)
	if err != nil {
		return fmt.Errorf("unlocking: %w", err)
	}

	s.mu.Lock()
	s.decryptor = dec
	s.mu.Unlock()
	return nil
}
