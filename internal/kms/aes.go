package kms

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	apperrors "github.com/UCCS-CS4300-5300/Fall-25-CS-5300-sub001/internal/errors"
	"github.com/UCCS-CS4300-5300/Fall-25-CS-5300-sub001/pkg/execution"
)

const localCipherTimeout = 1 * time.Second

var (
	kdfSalt = []byte("credential-store:v1")
	kdfInfo = []byte("api-credential-encryption")
)

// AESCipher is the local AES-256-GCM cipher. Encryption always uses the
// current master key; decryption tries the current key first and then each
// configured previous key in order, so credentials sealed before a master
// key rotation stay readable until they are re-encrypted.
type AESCipher struct {
	keys [][]byte
}

// NewAESCipher builds the local cipher from the base64-encoded current
// master key and any retired previous keys. Working keys are derived with
// HKDF so the raw master key is never used directly as cipher material.
func NewAESCipher(masterKey string, previousKeys []string) (*AESCipher, error) {
	encoded := append([]string{masterKey}, previousKeys...)
	keys := make([][]byte, 0, len(encoded))
	for i, enc := range encoded {
		raw, err := base64.StdEncoding.DecodeString(enc)
		if err != nil {
			return nil, fmt.Errorf("%w: master key %d is not valid base64", apperrors.ErrConfiguration, i)
		}
		if len(raw) != 32 {
			return nil, fmt.Errorf("%w: master key %d must be 32 bytes, got %d", apperrors.ErrConfiguration, i, len(raw))
		}

		derived, err := DeriveKey(raw, kdfSalt, kdfInfo, 32)
		if err != nil {
			return nil, fmt.Errorf("failed to derive working key: %w", err)
		}
		keys = append(keys, derived)
	}

	return &AESCipher{keys: keys}, nil
}

func (p *AESCipher) Name() string { return "local-aes" }

// Encrypt seals plaintext under the current key. The nonce is prepended to
// the returned ciphertext.
func (p *AESCipher) Encrypt(ctx context.Context, plaintext []byte) ([]byte, error) {
	return execution.WithTimeout(ctx, localCipherTimeout, func(ctx context.Context) ([]byte, error) {
		return encryptWithKey(p.keys[0], plaintext)
	})
}

// Decrypt opens ciphertext with the first key that can authenticate it,
// current key first. A ciphertext no configured key can open fails with a
// decryption failure.
func (p *AESCipher) Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error) {
	return execution.WithTimeout(ctx, localCipherTimeout, func(ctx context.Context) ([]byte, error) {
		if len(ciphertext) == 0 {
			return nil, fmt.Errorf("%w: empty ciphertext", apperrors.ErrDecryptionFailure)
		}

		for _, key := range p.keys {
			plaintext, err := decryptWithKey(key, ciphertext)
			if err == nil {
				return plaintext, nil
			}
		}

		return nil, fmt.Errorf("%w: no configured key can open this ciphertext", apperrors.ErrDecryptionFailure)
	})
}

func encryptWithKey(key, plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func decryptWithKey(key, ciphertext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	nonceSize := gcm.NonceSize()
	if len(ciphertext) < nonceSize {
		return nil, fmt.Errorf("ciphertext too short")
	}

	nonce, sealed := ciphertext[:nonceSize], ciphertext[nonceSize:]
	return gcm.Open(nil, nonce, sealed, nil)
}
