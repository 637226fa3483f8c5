package domain

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/heirclark/dataguard/internal/errors"
)

func validPayload() EncryptedPayload {
	return EncryptedPayload{
		IV:         bytes.Repeat([]byte{1}, IVSize),
		Ciphertext: []byte("ciphertext"),
		AuthTag:    bytes.Repeat([]byte{2}, TagSize),
		KeyVersion: 3,
	}
}

func encodeEnvelope(t *testing.T, v map[string]any) string {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return base64.StdEncoding.EncodeToString(raw)
}

func TestEncryptedPayload_String(t *testing.T) {
	p := validPayload()

	raw, err := base64.StdEncoding.DecodeString(p.String())
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(raw, &fields))

	assert.Equal(t, base64.StdEncoding.EncodeToString(p.IV), fields["iv"])
	assert.Equal(t, base64.StdEncoding.EncodeToString(p.Ciphertext), fields["data"])
	assert.Equal(t, base64.StdEncoding.EncodeToString(p.AuthTag), fields["tag"])
	assert.Equal(t, float64(3), fields["v"])

	parsed, err := ParseEncryptedPayload(p.String())
	require.NoError(t, err)
	assert.Equal(t, p, parsed)
}

func TestParseEncryptedPayload(t *testing.T) {
	iv := base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{1}, IVSize))
	tag := base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{2}, TagSize))
	data := base64.StdEncoding.EncodeToString([]byte("x"))

	t.Run("unknown members are ignored", func(t *testing.T) {
		value := encodeEnvelope(t, map[string]any{"iv": iv, "data": data, "tag": tag, "v": 1, "alg": "aes-256-gcm"})

		p, err := ParseEncryptedPayload(value)
		require.NoError(t, err)
		assert.Equal(t, 1, p.KeyVersion)
	})

	tests := []struct {
		name  string
		value string
	}{
		{name: "plaintext", value: "sk_live_abcd1234"},
		{name: "base64 but not json", value: base64.StdEncoding.EncodeToString([]byte("hello"))},
		{name: "short iv", value: encodeEnvelope(t, map[string]any{"iv": data, "data": data, "tag": tag, "v": 1})},
		{name: "short tag", value: encodeEnvelope(t, map[string]any{"iv": iv, "data": data, "tag": data, "v": 1})},
		{name: "bad data", value: encodeEnvelope(t, map[string]any{"iv": iv, "data": "%%", "tag": tag, "v": 1})},
		{name: "missing version", value: encodeEnvelope(t, map[string]any{"iv": iv, "data": data, "tag": tag})},
		{name: "negative version", value: encodeEnvelope(t, map[string]any{"iv": iv, "data": data, "tag": tag, "v": -2})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseEncryptedPayload(tt.value)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMalformedEnvelope)
			assert.ErrorIs(t, err, apperrors.ErrIntegrity)
		})
	}
}
