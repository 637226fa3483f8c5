// Package errors defines the sentinel errors shared by every layer. Lower layers
// wrap a sentinel with context; the HTTP layer maps the sentinel to a status
// code and never echoes the wrapped text for storage or integrity failures.
package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the requested resource does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates a caller defect such as a blank user id or an
	// empty plaintext. It is never retried.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized indicates a missing or wrong API token.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrConfig indicates missing or malformed configuration. It is fatal at
	// startup.
	ErrConfig = errors.New("configuration error")

	// ErrIntegrity indicates an envelope failed authentication: tampering,
	// corruption, a wrong key or a wrong context. No plaintext accompanies it.
	ErrIntegrity = errors.New("integrity check failed")

	// ErrPersistence indicates a storage failure. Retrying is the caller's call.
	ErrPersistence = errors.New("persistence error")
)

// Wrap prefixes err with message, keeping it matchable with Is. A nil err stays nil.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf is Wrap with a formatted message.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's tree matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}
