// Package service provides the field-encryption services: HKDF key derivation and
// AES-256-GCM envelope encryption of single values.
package service

import (
	cryptoDomain "github.com/heirclark/dataguard/internal/crypto/domain"
)

// AEAD defines authenticated encryption of a single message with a detached tag.
type AEAD interface {
	// Encrypt seals plaintext under a fresh random IV and returns the IV, the
	// ciphertext and the authentication tag separately.
	Encrypt(plaintext, aad []byte) (iv, ciphertext, tag []byte, err error)

	// Decrypt verifies tag and opens ciphertext. Nothing is returned when
	// verification fails.
	Decrypt(iv, ciphertext, tag, aad []byte) ([]byte, error)
}

// FieldCipher encrypts and decrypts individual column values.
//
// Callers canonicalize values to strings before calling; the cipher never
// inspects types.
type FieldCipher interface {
	// Encrypt returns an at-rest envelope for plaintext under the current key version.
	Encrypt(plaintext string, fieldCtx cryptoDomain.FieldContext) (string, error)

	// Decrypt returns the plaintext of envelope, using the key version recorded in it.
	Decrypt(envelope string, fieldCtx cryptoDomain.FieldContext) (string, error)

	// IsEncrypted reports whether value parses as an envelope. It is a structural
	// check for migration tooling, never a security decision.
	IsEncrypted(value string) bool

	// CurrentKeyVersion returns the key version new envelopes are written with.
	CurrentKeyVersion() int
}
