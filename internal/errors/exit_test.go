package errors_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/UCCS-CS4300-5300/Fall-25-CS-5300-sub001/internal/domain"
	apperrors "github.com/UCCS-CS4300-5300/Fall-25-CS-5300-sub001/internal/errors"
)

func TestExitCode(t *testing.T) {
	assert.Equal(t, apperrors.ExitOK, apperrors.ExitCode(nil))

	assert.Equal(t, apperrors.ExitFailure, apperrors.ExitCode(apperrors.ErrNoPendingCredential))
	assert.Equal(t, apperrors.ExitFailure, apperrors.ExitCode(apperrors.ErrNoCredentialAvailable))
	assert.Equal(t, apperrors.ExitFailure,
		apperrors.ExitCode(fmt.Errorf("rotate openai/premium: %w", apperrors.ErrDecryptionFailure)))

	assert.Equal(t, apperrors.ExitConfig, apperrors.ExitCode(apperrors.ErrConfiguration))
	assert.Equal(t, apperrors.ExitConfig,
		apperrors.ExitCode(fmt.Errorf("flag --tier: %w", domain.ErrInvalidTier)))
}

func TestUserMessage(t *testing.T) {
	assert.Equal(t, "", apperrors.UserMessage(nil))

	// The no-candidate message is load bearing: it is the exact string the
	// rotation log records for a failed attempt with an empty pool.
	assert.Equal(t, "No keys available for rotation",
		apperrors.UserMessage(fmt.Errorf("rotate: %w", apperrors.ErrNoPendingCredential)))

	msg := apperrors.UserMessage(apperrors.ErrRotationLocked)
	assert.Contains(t, msg, "already in progress")
}
