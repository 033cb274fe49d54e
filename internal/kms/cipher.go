package kms

import "context"

// Cipher encrypts and decrypts credential plaintext at rest. Implementations
// must never log or return plaintext inside error values.
type Cipher interface {
	Encrypt(ctx context.Context, plaintext []byte) ([]byte, error)
	Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error)
	Name() string
}
