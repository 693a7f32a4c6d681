package encryption

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"

	"ortho-go/internal/ortho"
)

// testHeader marks data produced by TestEncryptor, so stored bytes differ
// from the plaintext while staying deterministic and reversible.
var testHeader = []byte("ORTHOENC")

// ErrWrongPassphrase is returned by TestEncryptor.Unlock for a passphrase
// that does not match the one given to Setup.
var ErrWrongPassphrase = errors.New("wrong passphrase")

// TestEncryptor is a deterministic, crypto-free Encryptor for tests.
// Encrypt prepends testHeader; decryption strips it. If Setup was called,
// Unlock only accepts the same passphrase.
type TestEncryptor struct {
	mu         sync.Mutex
	passphrase string
	setup      bool
}

var _ ortho.Encryptor = (*TestEncryptor)(nil)

// NewTestEncryptor creates a new TestEncryptor.
func NewTestEncryptor() *TestEncryptor {
	return &TestEncryptor{}
}

func (e *TestEncryptor) Setup(passphrase string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.passphrase = passphrase
	e.setup = true
	return nil
}

func (e *TestEncryptor) Encrypt(r io.Reader, w io.Writer) error {
	if _, err := w.Write(testHeader); err != nil {
		return fmt.Errorf("writing test header: %w", err)
	}
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("copying data: %w", err)
	}
	return nil
}

func (e *TestEncryptor) Unlock(passphrase string) (ortho.DecryptionContext, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.setup && passphrase != e.passphrase {
		return nil, ErrWrongPassphrase
	}
	return &TestDecryptionContext{}, nil
}

func (e *TestEncryptor) IsConfigured() bool {
	return true
}

// TestDecryptionContext strips the header added by TestEncryptor.
type TestDecryptionContext struct{}

var _ ortho.DecryptionContext = (*TestDecryptionContext)(nil)

func (c *TestDecryptionContext) Decrypt(r io.Reader, w io.Writer) error {
	header := make([]byte, len(testHeader))
	if _, err := io.ReadFull(r, header); err != nil {
		return fmt.Errorf("reading test header: %w", err)
	}
	if !bytes.Equal(header, testHeader) {
		return fmt.Errorf("invalid test encryption header")
	}
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("copying data: %w", err)
	}
	return nil
}
