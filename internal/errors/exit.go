package errors

import (
	"errors"

	"github.com/UCCS-CS4300-5300/Fall-25-CS-5300-sub001/internal/domain"
)

// Exit codes for the operator command. Skips are normal outcomes and share
// the success code.
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitConfig  = 2
)

// ExitCode maps an error to the operator command's exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ErrConfiguration),
		errors.Is(err, domain.ErrInvalidTier),
		errors.Is(err, domain.ErrInvalidFrequency):
		return ExitConfig
	default:
		return ExitFailure
	}
}

// UserMessage renders an operator-facing description for err without leaking
// internals. Unknown errors fall through to their own message; sentinel
// matches get a stable phrasing.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNoPendingCredential):
		return "No keys available for rotation"
	case errors.Is(err, ErrNoActiveCredential):
		return "no active credential for this provider and tier"
	case errors.Is(err, ErrNoCredentialAvailable):
		return "no credential available from the pool or the environment"
	case errors.Is(err, ErrDecryptionFailure):
		return "stored credential could not be decrypted with the configured keys"
	case errors.Is(err, ErrRotationLocked):
		return "a rotation for this provider and tier is already in progress"
	case errors.Is(err, ErrConfiguration):
		return "configuration error: " + err.Error()
	default:
		return err.Error()
	}
}
