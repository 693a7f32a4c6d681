package testutil

import (
	"ortho-go/internal/encryption"
)

// NewTestEncryptor creates a deterministic encryptor that accepts passphrase.
func NewTestEncryptor(passphrase string) *encryption.TestEncryptor {
	e := encryption.NewTestEncryptor()
	e.Setup(passphrase)
	return e
}
