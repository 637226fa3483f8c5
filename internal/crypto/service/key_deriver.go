package service

import (
	"crypto/sha256"
	"fmt"
	"io"
	"sync"

	"golang.org/x/crypto/hkdf"

	cryptoDomain "github.com/heirclark/dataguard/internal/crypto/domain"
)

type derivedKeyID struct {
	fieldCtx cryptoDomain.FieldContext
	version  int
}

// KeyDeriver derives per-(context, version) field keys from the master key with
// HKDF-SHA256.
//
// The salt is empty because the master key is already uniformly random; the info
// string "<context>:v<version>" binds each key to its namespace. Derived keys are
// memoized in a sync.Map. Two goroutines missing the cache at once both derive
// the same bytes and LoadOrStore keeps one of them.
type KeyDeriver struct {
	masterKey []byte
	cache     sync.Map // derivedKeyID -> []byte
}

// NewKeyDeriver copies the master key material. It returns an ErrConfig-wrapped
// error when the key is missing or not 32 bytes.
func NewKeyDeriver(masterKey *cryptoDomain.MasterKey) (*KeyDeriver, error) {
	if masterKey == nil || len(masterKey.Key) == 0 {
		return nil, cryptoDomain.ErrMasterKeyNotSet
	}
	if len(masterKey.Key) != cryptoDomain.KeySize {
		return nil, fmt.Errorf(
			"%w: master key must be %d bytes, got %d",
			cryptoDomain.ErrInvalidKeySize,
			cryptoDomain.KeySize,
			len(masterKey.Key),
		)
	}

	key := make([]byte, cryptoDomain.KeySize)
	copy(key, masterKey.Key)

	return &KeyDeriver{masterKey: key}, nil
}

// DeriveKey returns the 32-byte key for (fieldCtx, version).
//
// The returned slice is a copy owned by the caller, who should Zero it when done.
func (d *KeyDeriver) DeriveKey(fieldCtx cryptoDomain.FieldContext, version int) ([]byte, error) {
	if err := fieldCtx.Validate(); err != nil {
		return nil, err
	}
	if version < 1 {
		return nil, fmt.Errorf("%w: %d", cryptoDomain.ErrInvalidKeyVersion, version)
	}

	id := derivedKeyID{fieldCtx: fieldCtx, version: version}
	if key, ok := d.cache.Load(id); ok {
		return clone(key.([]byte)), nil
	}

	key, err := d.derive(id)
	if err != nil {
		return nil, err
	}

	actual, loaded := d.cache.LoadOrStore(id, key)
	if loaded {
		cryptoDomain.Zero(key)
	}
	return clone(actual.([]byte)), nil
}

// ClearCache zeroes and drops every memoized key. Call it after any rotation event.
func (d *KeyDeriver) ClearCache() {
	d.cache.Range(func(id, key any) bool {
		d.cache.Delete(id)
		cryptoDomain.Zero(key.([]byte))
		return true
	})
}

// Close clears the cache and zeroes the master key copy.
func (d *KeyDeriver) Close() {
	d.ClearCache()
	cryptoDomain.Zero(d.masterKey)
}

func (d *KeyDeriver) derive(id derivedKeyID) ([]byte, error) {
	info := []byte(fmt.Sprintf("%s:v%d", id.fieldCtx, id.version))
	reader := hkdf.New(sha256.New, d.masterKey, nil, info)

	key := make([]byte, cryptoDomain.KeySize)
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, fmt.Errorf("failed to derive key for %s v%d: %w", id.fieldCtx, id.version, err)
	}
	return key, nil
}

func clone(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
