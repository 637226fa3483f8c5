package service

import (
	"bytes"
	"crypto/sha256"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/hkdf"

	cryptoDomain "github.com/heirclark/dataguard/internal/crypto/domain"
	apperrors "github.com/heirclark/dataguard/internal/errors"
)

func newTestDeriver(t *testing.T) *KeyDeriver {
	t.Helper()
	d, err := NewKeyDeriver(&cryptoDomain.MasterKey{Key: bytes.Repeat([]byte{7}, cryptoDomain.KeySize)})
	require.NoError(t, err)
	return d
}

func TestNewKeyDeriver(t *testing.T) {
	t.Run("nil master key", func(t *testing.T) {
		d, err := NewKeyDeriver(nil)
		assert.ErrorIs(t, err, cryptoDomain.ErrMasterKeyNotSet)
		assert.ErrorIs(t, err, apperrors.ErrConfig)
		assert.Nil(t, d)
	})

	t.Run("wrong size", func(t *testing.T) {
		d, err := NewKeyDeriver(&cryptoDomain.MasterKey{Key: make([]byte, 16)})
		assert.ErrorIs(t, err, cryptoDomain.ErrInvalidKeySize)
		assert.Nil(t, d)
	})

	t.Run("copies key material", func(t *testing.T) {
		mk := &cryptoDomain.MasterKey{Key: bytes.Repeat([]byte{7}, cryptoDomain.KeySize)}
		d, err := NewKeyDeriver(mk)
		require.NoError(t, err)

		before, err := d.DeriveKey(cryptoDomain.PII, 1)
		require.NoError(t, err)

		mk.Close()

		after, err := d.DeriveKey(cryptoDomain.PII, 1)
		require.NoError(t, err)
		assert.Equal(t, before, after)
	})
}

func TestKeyDeriver_DeriveKey(t *testing.T) {
	d := newTestDeriver(t)

	t.Run("matches hkdf-sha256 with context and version info", func(t *testing.T) {
		key, err := d.DeriveKey(cryptoDomain.OAuthToken, 1)
		require.NoError(t, err)

		expected := make([]byte, 32)
		reader := hkdf.New(sha256.New, bytes.Repeat([]byte{7}, 32), nil, []byte("oauth-token:v1"))
		_, err = io.ReadFull(reader, expected)
		require.NoError(t, err)

		assert.Equal(t, expected, key)
	})

	t.Run("deterministic", func(t *testing.T) {
		k1, err := d.DeriveKey(cryptoDomain.HealthMetrics, 2)
		require.NoError(t, err)
		k2, err := d.DeriveKey(cryptoDomain.HealthMetrics, 2)
		require.NoError(t, err)
		assert.Equal(t, k1, k2)
	})

	t.Run("contexts and versions are independent", func(t *testing.T) {
		seen := map[string]bool{}
		for _, c := range cryptoDomain.FieldContexts() {
			for v := 1; v <= 3; v++ {
				key, err := d.DeriveKey(c, v)
				require.NoError(t, err)
				assert.Len(t, key, cryptoDomain.KeySize)
				assert.False(t, seen[string(key)], "duplicate key for %s v%d", c, v)
				seen[string(key)] = true
			}
		}
	})

	t.Run("returned key is a copy", func(t *testing.T) {
		k1, err := d.DeriveKey(cryptoDomain.WeightData, 1)
		require.NoError(t, err)
		cryptoDomain.Zero(k1)

		k2, err := d.DeriveKey(cryptoDomain.WeightData, 1)
		require.NoError(t, err)
		assert.NotEqual(t, make([]byte, 32), k2)
	})

	t.Run("unknown context", func(t *testing.T) {
		_, err := d.DeriveKey(cryptoDomain.FieldContext("billing"), 1)
		assert.ErrorIs(t, err, cryptoDomain.ErrUnknownFieldContext)
	})

	t.Run("invalid version", func(t *testing.T) {
		_, err := d.DeriveKey(cryptoDomain.PII, 0)
		assert.ErrorIs(t, err, cryptoDomain.ErrInvalidKeyVersion)
	})
}

func TestKeyDeriver_ConcurrentDerivation(t *testing.T) {
	d := newTestDeriver(t)

	expected, err := d.derive(derivedKeyID{fieldCtx: cryptoDomain.NutritionData, version: 4})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			key, err := d.DeriveKey(cryptoDomain.NutritionData, 4)
			assert.NoError(t, err)
			assert.Equal(t, expected, key)
		}()
	}
	wg.Wait()
}

func TestKeyDeriver_ClearCache(t *testing.T) {
	d := newTestDeriver(t)

	before, err := d.DeriveKey(cryptoDomain.PII, 1)
	require.NoError(t, err)

	d.ClearCache()

	count := 0
	d.cache.Range(func(_, _ any) bool {
		count++
		return true
	})
	assert.Zero(t, count)

	after, err := d.DeriveKey(cryptoDomain.PII, 1)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}
