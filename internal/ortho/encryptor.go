package ortho

import "io"

// Encryptor handles encryption of stored files and unlocking for decryption.
// Encryption uses the public key only, so uploads never need a passphrase.
// Reading stored files back requires a DecryptionContext from Unlock.
type Encryptor interface {
	// Setup performs one-time key generation. Called by `ortho keys init`.
	Setup(passphrase string) error

	// Encrypt encrypts data read from r and writes ciphertext to w.
	Encrypt(r io.Reader, w io.Writer) error

	// Unlock returns a DecryptionContext for the session.
	// Returns an error if the passphrase is incorrect.
	Unlock(passphrase string) (DecryptionContext, error)

	// IsConfigured returns true if the encryptor is ready to encrypt.
	IsConfigured() bool
}

// DecryptionContext holds an unlocked private key in memory for the duration
// of a session. The unlocked key is never written to disk.
type DecryptionContext interface {
	// Decrypt decrypts data read from r and writes plaintext to w.
	Decrypt(r io.Reader, w io.Writer) error
}
