// Package domain defines the field-encryption domain model: the master key, the
// closed set of field contexts and the at-rest envelope format.
//
// Key hierarchy: MasterKey -> HKDF(context, version) -> per-field data key -> value.
package domain

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// MasterKey is the single process-wide secret every field key is derived from.
// It is loaded once at startup and never persisted.
type MasterKey struct {
	Key []byte
}

// Close zeroes the key material.
func (m *MasterKey) Close() {
	if m == nil {
		return
	}
	Zero(m.Key)
	m.Key = nil
}

// ParseMasterKey decodes a standard base64 master key and validates its length.
//
// Returns ErrMasterKeyNotSet, ErrInvalidMasterKeyBase64 or ErrInvalidKeySize; all
// of them wrap errors.ErrConfig.
func ParseMasterKey(encoded string) (*MasterKey, error) {
	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return nil, ErrMasterKeyNotSet
	}

	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMasterKeyBase64, err)
	}

	if len(key) != KeySize {
		size := len(key)
		Zero(key)
		return nil, fmt.Errorf("%w: master key must be %d bytes, got %d", ErrInvalidKeySize, KeySize, size)
	}

	return &MasterKey{Key: key}, nil
}

// Zero overwrites b with zeros.
func Zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
