package ortho

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
)

// partsReader streams the staged parts of a logical file as one byte stream,
// strictly in position order 1..total regardless of how the parts arrived
// or how the staging directory lists them.
type partsReader struct {
	staging StagingArea
	name    string
	total   int
	next    int
	cur     io.ReadCloser
}

func newPartsReader(staging StagingArea, name string, total int) *partsReader {
	return &partsReader{staging: staging, name: name, total: total, next: 1}
}

func (p *partsReader) Read(b []byte) (int, error) {
	for {
		if p.cur == nil {
			if p.next > p.total {
				return 0, io.EOF
			}
			rc, err := p.staging.Open(p.name, p.next)
			if err != nil {
				return 0, fmt.Errorf("opening part %d of %s: %w", p.next, p.name, err)
			}
			p.cur = rc
			p.next++
		}

		n, err := p.cur.Read(b)
		if err == io.EOF {
			p.cur.Close()
			p.cur = nil
			if n > 0 {
				return n, nil
			}
			continue
		}
		return n, err
	}
}

// Close releases the part currently being read, if any.
func (p *partsReader) Close() error {
	if p.cur == nil {
		return nil
	}
	err := p.cur.Close()
	p.cur = nil
	return err
}

// storedObject describes a reassembled file that has been committed to the vault.
type storedObject struct {
	key      string
	name     string
	size     int64
	checksum string
}

// countingWriter counts the bytes written through it.
type countingWriter struct {
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	c.n += int64(len(p))
	return len(p), nil
}

// reassemble concatenates the staged parts of chunk's logical file into the
// vault. The vault commits atomically, so either the complete file exists
// under the returned key or nothing does. Staged parts are left in place;
// the caller removes them once the outcome is known.
func (s *UploadService) reassemble(chunk *Chunk) (*storedObject, error) {
	name := DestinationName(chunk.Category, chunk.FileName, s.clock.Now(), s.idgen.New())
	key := StorageKey(chunk.OwnerID, chunk.Category, name)

	parts := newPartsReader(s.stagingArea, chunk.FileName, chunk.TotalChunks)
	defer parts.Close()

	hasher := sha256.New()
	counter := &countingWriter{}
	plain := io.TeeReader(parts, io.MultiWriter(hasher, counter))

	if err := s.putEncrypted(key, plain); err != nil {
		return nil, err
	}

	return &storedObject{
		key:      key,
		name:     name,
		size:     counter.n,
		checksum: hex.EncodeToString(hasher.Sum(nil)),
	}, nil
}

// putEncrypted stores r under key, encrypting on the way when an encryptor
// is configured.
func (s *UploadService) putEncrypted(key string, r io.Reader) error {
	if s.encryptor == nil {
		if err := s.vault.Put(key, r); err != nil {
			return fmt.Errorf("writing to vault: %w", err)
		}
		return nil
	}

	pr, pw := io.Pipe()
	done := make(chan error, 1)
	go func() {
		err := s.encryptor.Encrypt(r, pw)
		pw.CloseWithError(err)
		done <- err
	}()

	putErr := s.vault.Put(key, pr)
	// Unblocks the encryptor if the vault stopped reading early.
	pr.CloseWithError(putErr)
	encErr := <-done

	if putErr != nil {
		return fmt.Errorf("writing to vault: %w", putErr)
	}
	if encErr != nil {
		if err := s.vault.Delete(key); err != nil {
			s.logger.Error("removing partially encrypted file", "key", key, "error", err)
		}
		return fmt.Errorf("encrypting: %w", encErr)
	}
	return nil
}

// getDecrypted writes the plaintext of the object under key to w.
func (s *UploadService) getDecrypted(key string, w io.Writer) error {
	if s.encryptor == nil {
		return s.vault.Get(key, w)
	}

	s.mu.RLock()
	dec := s.decryptor
	s.mu.RUnlock()
	if dec == nil {
		return ErrLocked
	}

	pr, pw := io.Pipe()
	done := make(chan error, 1)
	go func() {
		err := s.vault.Get(key, pw)
		pw.CloseWithError(err)
		done <- err
	}()

	decErr := dec.Decrypt(pr, w)
	pr.CloseWithError(decErr)
	getErr := <-done

	if getErr != nil {
		return fmt.Errorf("reading from vault: %w", getErr)
	}
	if decErr != nil {
		return fmt.Errorf("decrypting: %w", decErr)
	}
	return nil
}
