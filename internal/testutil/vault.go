package testutil

import (
	"fmt"
	"io"
	"sync"

	"ortho-go/internal/vault"
)

// NewTestVault creates a new in-memory vault for testing.
func NewTestVault() *vault.MemoryVault {
	return vault.NewMemoryVault("test-vault")
}

// FailingVault wraps a MemoryVault and can be told to fail Put, after
// consuming the reader the way a real backend would.
type FailingVault struct {
	*vault.MemoryVault

	mu      sync.Mutex
	failPut bool
	puts    int
}

func NewFailingVault() *FailingVault {
	return &FailingVault{MemoryVault: NewTestVault()}
}

// FailPut makes subsequent Put calls fail (or succeed again).
func (f *FailingVault) FailPut(fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failPut = fail
}

// Puts returns how many times Put was called.
func (f *FailingVault) Puts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.puts
}

func (f *FailingVault) Put(key string, r io.Reader) error {
	f.mu.Lock()
	f.puts++
	fail := f.failPut
	f.mu.Unlock()

	if fail {
		io.Copy(io.Discard, r)
		return fmt.Errorf("put %s: %w", key, ErrInjected)
	}
	return f.MemoryVault.Put(key, r)
}
