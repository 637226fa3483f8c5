package service

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"

	cryptoDomain "github.com/heirclark/dataguard/internal/crypto/domain"
)

// AESGCMCipher implements AEAD using AES-256-GCM with a 12-byte random nonce and
// a 16-byte tag kept apart from the ciphertext.
//
// The instance is stateless apart from the expanded key and safe for concurrent use.
// Every Encrypt call draws a fresh nonce from crypto/rand, so nonces are never
// reused under one key in practice (2^-96 collision probability per pair).
type AESGCMCipher struct {
	aead cipher.AEAD
}

// NewAESGCM creates a new AES-256-GCM cipher. key must be exactly 32 bytes.
func NewAESGCM(key []byte) (*AESGCMCipher, error) {
	if len(key) != cryptoDomain.KeySize {
		return nil, errors.New("key must be exactly 32 bytes")
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}

	aead, err := cipher.NewGCMWithTagSize(block, cryptoDomain.TagSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return &AESGCMCipher{aead: aead}, nil
}

// Encrypt seals plaintext and splits the trailing tag off the GCM output.
func (a *AESGCMCipher) Encrypt(plaintext, aad []byte) (iv, ciphertext, tag []byte, err error) {
	iv = make([]byte, a.aead.NonceSize())
	if _, err := rand.Read(iv); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := a.aead.Seal(nil, iv, plaintext, aad)
	split := len(sealed) - a.aead.Overhead()

	return iv, sealed[:split], sealed[split:], nil
}

// Decrypt re-joins ciphertext and tag and opens them. GCM verifies the tag before
// producing any output, so a failure never yields partial plaintext.
func (a *AESGCMCipher) Decrypt(iv, ciphertext, tag, aad []byte) ([]byte, error) {
	if len(iv) != a.aead.NonceSize() {
		return nil, fmt.Errorf("invalid nonce size %d", len(iv))
	}
	if len(tag) != a.aead.Overhead() {
		return nil, fmt.Errorf("invalid tag size %d", len(tag))
	}

	sealed := make([]byte, 0, len(ciphertext)+len(tag))
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)

	plaintext, err := a.aead.Open(nil, iv, sealed, aad)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt: %w", err)
	}
	return plaintext, nil
}
