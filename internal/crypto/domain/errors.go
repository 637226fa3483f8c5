package domain

import (
	"github.com/heirclark/dataguard/internal/errors"
)

// Configuration errors. All of them wrap errors.ErrConfig: a process that hits one
// must refuse to start.
var (
	// ErrMasterKeyNotSet indicates ENCRYPTION_MASTER_KEY is empty.
	ErrMasterKeyNotSet = errors.Wrap(errors.ErrConfig, "master key not set")

	// ErrInvalidMasterKeyBase64 indicates the master key is not valid standard base64.
	ErrInvalidMasterKeyBase64 = errors.Wrap(errors.ErrConfig, "master key is not valid base64")

	// ErrInvalidKeySize indicates a master key that does not decode to exactly 32 bytes.
	ErrInvalidKeySize = errors.Wrap(errors.ErrConfig, "invalid key size")

	// ErrInvalidKeyVersion indicates a configured or requested key version below 1.
	ErrInvalidKeyVersion = errors.Wrap(errors.ErrConfig, "invalid key version")
)

// Input errors. Caller defects; never retried.
var (
	// ErrEmptyPlaintext is returned by Encrypt for empty input.
	ErrEmptyPlaintext = errors.Wrap(errors.ErrInvalidInput, "plaintext must not be empty")

	// ErrUnknownFieldContext is returned for a context outside the closed set.
	ErrUnknownFieldContext = errors.Wrap(errors.ErrInvalidInput, "unknown field context")
)

// Integrity errors.
var (
	// ErrDecryptionFailed indicates authentication tag verification failed.
	//
	// The cause (wrong context, wrong key version, flipped bit) is deliberately not
	// disclosed.
	ErrDecryptionFailed = errors.Wrap(errors.ErrIntegrity, "decryption failed")

	// ErrMalformedEnvelope indicates the stored value is not a structurally valid envelope.
	ErrMalformedEnvelope = errors.Wrap(errors.ErrIntegrity, "malformed envelope")
)
