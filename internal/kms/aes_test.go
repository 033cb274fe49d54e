package kms_test

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/UCCS-CS4300-5300/Fall-25-CS-5300-sub001/internal/errors"
	"github.com/UCCS-CS4300-5300/Fall-25-CS-5300-sub001/internal/kms"
)

func newKey(t *testing.T) string {
	t.Helper()
	raw := make([]byte, 32)
	_, err := rand.Read(raw)
	require.NoError(t, err)
	return base64.StdEncoding.EncodeToString(raw)
}

func TestAESCipherRoundTrip(t *testing.T) {
	cipher, err := kms.NewAESCipher(newKey(t), nil)
	require.NoError(t, err)
	assert.Equal(t, "local-aes", cipher.Name())

	ctx := context.Background()
	plaintext := []byte("sk-proj-abcdef1234567890")

	ciphertext, err := cipher.Encrypt(ctx, plaintext)
	require.NoError(t, err)
	assert.NotContains(t, string(ciphertext), string(plaintext))

	got, err := cipher.Decrypt(ctx, ciphertext)
	require.NoError(t, err)
	assert.Equal(t, plaintext, got)
}

func TestAESCipherNonDeterministicNonce(t *testing.T) {
	cipher, err := kms.NewAESCipher(newKey(t), nil)
	require.NoError(t, err)

	ctx := context.Background()
	a, err := cipher.Encrypt(ctx, []byte("same input"))
	require.NoError(t, err)
	b, err := cipher.Encrypt(ctx, []byte("same input"))
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

// A credential sealed under a retired master key stays readable while that
// key is listed as a previous key, and becomes unreadable once removed.
func TestAESCipherPreviousKeyFallback(t *testing.T) {
	oldKey := newKey(t)
	newerKey := newKey(t)
	ctx := context.Background()

	oldCipher, err := kms.NewAESCipher(oldKey, nil)
	require.NoError(t, err)
	ciphertext, err := oldCipher.Encrypt(ctx, []byte("legacy secret"))
	require.NoError(t, err)

	rotated, err := kms.NewAESCipher(newerKey, []string{oldKey})
	require.NoError(t, err)
	got, err := rotated.Decrypt(ctx, ciphertext)
	require.NoError(t, err)
	assert.Equal(t, []byte("legacy secret"), got)

	pruned, err := kms.NewAESCipher(newerKey, nil)
	require.NoError(t, err)
	_, err = pruned.Decrypt(ctx, ciphertext)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrDecryptionFailure)
}

func TestAESCipherRejectsTamperedCiphertext(t *testing.T) {
	cipher, err := kms.NewAESCipher(newKey(t), nil)
	require.NoError(t, err)

	ctx := context.Background()
	ciphertext, err := cipher.Encrypt(ctx, []byte("payload"))
	require.NoError(t, err)

	ciphertext[len(ciphertext)-1] ^= 0xff
	_, err = cipher.Decrypt(ctx, ciphertext)
	assert.ErrorIs(t, err, apperrors.ErrDecryptionFailure)
}

func TestAESCipherRejectsShortCiphertext(t *testing.T) {
	cipher, err := kms.NewAESCipher(newKey(t), nil)
	require.NoError(t, err)

	ctx := context.Background()
	_, err = cipher.Decrypt(ctx, nil)
	assert.ErrorIs(t, err, apperrors.ErrDecryptionFailure)

	_, err = cipher.Decrypt(ctx, []byte{0x01, 0x02})
	assert.ErrorIs(t, err, apperrors.ErrDecryptionFailure)
}

func TestNewAESCipherValidatesKeys(t *testing.T) {
	_, err := kms.NewAESCipher("%%%not-base64%%%", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrConfiguration)

	short := base64.StdEncoding.EncodeToString(make([]byte, 16))
	_, err = kms.NewAESCipher(short, nil)
	assert.ErrorIs(t, err, apperrors.ErrConfiguration)

	_, err = kms.NewAESCipher(newKey(t), []string{"bogus"})
	assert.ErrorIs(t, err, apperrors.ErrConfiguration)
}

func TestDeriveKeyRequiresMaterial(t *testing.T) {
	_, err := kms.DeriveKey(nil, []byte("salt"), []byte("info"), 32)
	assert.Error(t, err)

	_, err = kms.DeriveKey([]byte("master"), nil, []byte("info"), 32)
	assert.Error(t, err)

	key, err := kms.DeriveKey([]byte("master"), []byte("salt"), []byte("info"), 32)
	require.NoError(t, err)
	assert.Len(t, key, 32)
}
