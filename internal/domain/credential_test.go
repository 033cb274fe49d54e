package domain_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UCCS-CS4300-5300/Fall-25-CS-5300-sub001/internal/domain"
)

func TestParseTier(t *testing.T) {
	for _, s := range []string{"premium", "standard", "fallback"} {
		tier, err := domain.ParseTier(s)
		require.NoError(t, err)
		assert.Equal(t, s, tier.String())
	}

	_, err := domain.ParseTier("platinum")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidTier)

	_, err = domain.ParseTier("")
	assert.ErrorIs(t, err, domain.ErrInvalidTier)
}

func TestParseCredentialStatus(t *testing.T) {
	for _, s := range []string{"pending", "active", "inactive", "revoked"} {
		status, err := domain.ParseCredentialStatus(s)
		require.NoError(t, err)
		assert.Equal(t, domain.CredentialStatus(s), status)
	}

	_, err := domain.ParseCredentialStatus("expired")
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)
}

func TestCredentialIDRoundTrip(t *testing.T) {
	id := domain.NewCredentialID()
	require.False(t, id.IsZero())

	parsed, err := domain.CredentialIDFromString(id.String())
	require.NoError(t, err)
	assert.Equal(t, id, parsed)

	_, err = domain.CredentialIDFromString("")
	assert.Error(t, err)

	_, err = domain.CredentialIDFromString("not-a-uuid")
	assert.Error(t, err)
}

func TestMaskPrefix(t *testing.T) {
	assert.Equal(t, "sk-proj-...roj-", domain.MaskPrefix("sk-proj-"))
	assert.Equal(t, "gsk_...gsk_", domain.MaskPrefix("gsk_"))
	assert.Equal(t, "ab...****", domain.MaskPrefix("ab"))
	assert.Equal(t, "****", domain.MaskPrefix(""))
}

// The masked form must reveal no more of the secret than the stored prefix.
func TestMaskedNeverExtendsPrefix(t *testing.T) {
	plaintext := "sk-proj-abcdef1234567890secret"
	cred := &domain.Credential{KeyPrefix: plaintext[:8]}

	masked := cred.Masked()
	assert.Equal(t, "sk-proj-...roj-", masked)
	assert.NotContains(t, masked, plaintext[8:])
	assert.False(t, strings.Contains(masked, "secret"))
}
