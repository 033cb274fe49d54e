package errors

import "errors"

var (
	// ErrNoActiveCredential means no credential is currently active for a
	// (provider, tier) pool. Recoverable via the environment fallback or by
	// rotating a pending credential in.
	ErrNoActiveCredential = errors.New("no active credential")

	// ErrNoPendingCredential means rotation found no pending candidate.
	ErrNoPendingCredential = errors.New("no pending credential available")

	// ErrNoCredentialAvailable means neither the pool nor the environment
	// fallback could supply a credential.
	ErrNoCredentialAvailable = errors.New("no credential available")

	ErrCredentialNotFound = errors.New("credential not found")
	ErrCredentialRevoked  = errors.New("credential is revoked")

	// ErrDecryptionFailure means stored ciphertext cannot be opened with any
	// configured key. Fatal for that credential, not for the process.
	ErrDecryptionFailure = errors.New("decryption failed")

	// ErrRotationLocked means another rotation holds the (provider, tier)
	// lock right now.
	ErrRotationLocked = errors.New("rotation already in progress")

	// ErrRotationConflict means credential state changed under a rotation
	// between candidate selection and commit.
	ErrRotationConflict = errors.New("rotation superseded by a concurrent rotation")

	ErrScheduleNotFound = errors.New("rotation schedule not found")

	// ErrConfiguration marks startup-time configuration problems. Never
	// swallowed; fatal at startup or at the call site.
	ErrConfiguration = errors.New("invalid configuration")
)
