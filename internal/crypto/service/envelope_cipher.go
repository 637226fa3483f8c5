package service

import (
	"fmt"
	"log/slog"
	"sync/atomic"

	cryptoDomain "github.com/heirclark/dataguard/internal/crypto/domain"
)

// keySource is the part of KeyDeriver the cipher depends on.
type keySource interface {
	DeriveKey(fieldCtx cryptoDomain.FieldContext, version int) ([]byte, error)
}

// EnvelopeCipher implements FieldCipher with AES-256-GCM under HKDF-derived keys.
//
// Encrypt always uses the current key version; Decrypt uses the version recorded
// in the envelope, so several versions can be live during a rotation.
type EnvelopeCipher struct {
	keys           keySource
	currentVersion atomic.Int64
	logger         *slog.Logger
}

// NewEnvelopeCipher creates an EnvelopeCipher writing with currentVersion. A nil
// logger discards integrity events.
func NewEnvelopeCipher(
	keys keySource,
	currentVersion int,
	logger *slog.Logger,
) (*EnvelopeCipher, error) {
	if currentVersion < 1 {
		return nil, fmt.Errorf("%w: %d", cryptoDomain.ErrInvalidKeyVersion, currentVersion)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	c := &EnvelopeCipher{keys: keys, logger: logger}
	c.currentVersion.Store(int64(currentVersion))
	return c, nil
}

// Encrypt seals plaintext under the (fieldCtx, current version) key.
func (c *EnvelopeCipher) Encrypt(plaintext string, fieldCtx cryptoDomain.FieldContext) (string, error) {
	if plaintext == "" {
		return "", cryptoDomain.ErrEmptyPlaintext
	}

	version := c.CurrentKeyVersion()
	aead, err := c.aeadFor(fieldCtx, version)
	if err != nil {
		return "", err
	}

	iv, ciphertext, tag, err := aead.Encrypt([]byte(plaintext), nil)
	if err != nil {
		return "", err
	}

	return cryptoDomain.EncryptedPayload{
		IV:         iv,
		Ciphertext: ciphertext,
		AuthTag:    tag,
		KeyVersion: version,
	}.String(), nil
}

// Decrypt opens envelope with the key for (fieldCtx, envelope version).
//
// Every failure, malformed envelope included, returns "" and an error wrapping
// ErrDecryptionFailed.
func (c *EnvelopeCipher) Decrypt(envelope string, fieldCtx cryptoDomain.FieldContext) (string, error) {
	if err := fieldCtx.Validate(); err != nil {
		return "", err
	}

	payload, err := cryptoDomain.ParseEncryptedPayload(envelope)
	if err != nil {
		c.integrityEvent(fieldCtx, 0, "malformed_envelope")
		return "", fmt.Errorf("%w: %v", cryptoDomain.ErrDecryptionFailed, err)
	}

	aead, err := c.aeadFor(fieldCtx, payload.KeyVersion)
	if err != nil {
		return "", err
	}

	plaintext, err := aead.Decrypt(payload.IV, payload.Ciphertext, payload.AuthTag, nil)
	if err != nil {
		c.integrityEvent(fieldCtx, payload.KeyVersion, "authentication_failed")
		return "", cryptoDomain.ErrDecryptionFailed
	}

	return string(plaintext), nil
}

// IsEncrypted reports whether value has the envelope shape.
func (c *EnvelopeCipher) IsEncrypted(value string) bool {
	if value == "" {
		return false
	}
	_, err := cryptoDomain.ParseEncryptedPayload(value)
	return err == nil
}

// CurrentKeyVersion returns the version used for new envelopes.
func (c *EnvelopeCipher) CurrentKeyVersion() int {
	return int(c.currentVersion.Load())
}

// SetCurrentKeyVersion advances the write version. The version only moves forward;
// a lower value returns ErrInvalidKeyVersion.
func (c *EnvelopeCipher) SetCurrentKeyVersion(version int) error {
	for {
		current := c.currentVersion.Load()
		if int64(version) < current {
			return fmt.Errorf("%w: %d is below current version %d",
				cryptoDomain.ErrInvalidKeyVersion, version, current)
		}
		if c.currentVersion.CompareAndSwap(current, int64(version)) {
			return nil
		}
	}
}

// Reencrypt decrypts envelope and seals the plaintext again under the current
// version. An envelope already at the current version is returned unchanged.
func (c *EnvelopeCipher) Reencrypt(envelope string, fieldCtx cryptoDomain.FieldContext) (string, error) {
	payload, err := cryptoDomain.ParseEncryptedPayload(envelope)
	if err == nil && payload.KeyVersion == c.CurrentKeyVersion() {
		if _, err := c.Decrypt(envelope, fieldCtx); err != nil {
			return "", err
		}
		return envelope, nil
	}

	plaintext, err := c.Decrypt(envelope, fieldCtx)
	if err != nil {
		return "", err
	}
	return c.Encrypt(plaintext, fieldCtx)
}

func (c *EnvelopeCipher) aeadFor(fieldCtx cryptoDomain.FieldContext, version int) (AEAD, error) {
	key, err := c.keys.DeriveKey(fieldCtx, version)
	if err != nil {
		return nil, err
	}
	defer cryptoDomain.Zero(key)

	return NewAESGCM(key)
}

func (c *EnvelopeCipher) integrityEvent(fieldCtx cryptoDomain.FieldContext, version int, reason string) {
	c.logger.Warn("field decryption failed",
		slog.Bool("security_event", true),
		slog.String("field_context", fieldCtx.String()),
		slog.Int("key_version", version),
		slog.String("reason", reason),
	)
}
