// Package service provides cryptographic helpers for the audit trail.
package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"

	cryptoDomain "github.com/heirclark/dataguard/internal/crypto/domain"
)

const stateHashInfo = "audit-state-hash-v1"

// StateHasher turns old/new resource state into keyed one-way digests, so the
// audit trail records that something changed without storing what it was.
type StateHasher interface {
	// HashState returns the hex HMAC-SHA256 of the canonical JSON of state, or nil
	// when state is nil.
	HashState(state any) (*string, error)

	// HashValue returns the hex HMAC-SHA256 of a single string.
	HashValue(value string) string
}

type hmacStateHasher struct {
	key []byte
}

// NewStateHasher derives the hashing key from the master key with HKDF-SHA256.
// The info label keeps it independent of every field-encryption key.
func NewStateHasher(masterKey *cryptoDomain.MasterKey) (StateHasher, error) {
	if masterKey == nil || len(masterKey.Key) != cryptoDomain.KeySize {
		return nil, cryptoDomain.ErrMasterKeyNotSet
	}

	reader := hkdf.New(sha256.New, masterKey.Key, nil, []byte(stateHashInfo))
	key := make([]byte, 32)
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, fmt.Errorf("failed to derive state hash key: %w", err)
	}

	return &hmacStateHasher{key: key}, nil
}

// HashState canonicalizes with encoding/json, which sorts map keys.
func (h *hmacStateHasher) HashState(state any) (*string, error) {
	if state == nil {
		return nil, nil
	}

	canonical, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("failed to canonicalize state: %w", err)
	}

	digest := h.sum(canonical)
	return &digest, nil
}

func (h *hmacStateHasher) HashValue(value string) string {
	return h.sum([]byte(value))
}

func (h *hmacStateHasher) sum(data []byte) string {
	mac := hmac.New(sha256.New, h.key)
	mac.Write(data)
	return hex.EncodeToString(mac.Sum(nil))
}
