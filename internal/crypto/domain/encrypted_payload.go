package domain

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// EncryptedPayload is the only at-rest representation of an encrypted field.
//
// It serializes to base64(JSON{"iv","data","tag","v"}) with every binary member
// itself standard-base64 encoded. New members may be added to the JSON object;
// readers ignore members they do not know.
type EncryptedPayload struct {
	IV         []byte
	Ciphertext []byte
	AuthTag    []byte
	KeyVersion int
}

type envelopeJSON struct {
	IV   string `json:"iv"`
	Data string `json:"data"`
	Tag  string `json:"tag"`
	V    int    `json:"v"`
}

// String encodes the payload in its at-rest form.
func (p EncryptedPayload) String() string {
	raw, _ := json.Marshal(envelopeJSON{
		IV:   base64.StdEncoding.EncodeToString(p.IV),
		Data: base64.StdEncoding.EncodeToString(p.Ciphertext),
		Tag:  base64.StdEncoding.EncodeToString(p.AuthTag),
		V:    p.KeyVersion,
	})
	return base64.StdEncoding.EncodeToString(raw)
}

// ParseEncryptedPayload decodes an at-rest envelope.
//
// It checks structure only (IV and tag sizes, a positive key version); it says
// nothing about authenticity. Every failure wraps ErrMalformedEnvelope.
func ParseEncryptedPayload(value string) (EncryptedPayload, error) {
	raw, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return EncryptedPayload{}, fmt.Errorf("%w: outer base64: %v", ErrMalformedEnvelope, err)
	}

	var env envelopeJSON
	if err := json.Unmarshal(raw, &env); err != nil {
		return EncryptedPayload{}, fmt.Errorf("%w: json: %v", ErrMalformedEnvelope, err)
	}

	iv, err := base64.StdEncoding.DecodeString(env.IV)
	if err != nil || len(iv) != IVSize {
		return EncryptedPayload{}, fmt.Errorf("%w: iv must be %d bytes", ErrMalformedEnvelope, IVSize)
	}

	tag, err := base64.StdEncoding.DecodeString(env.Tag)
	if err != nil || len(tag) != TagSize {
		return EncryptedPayload{}, fmt.Errorf("%w: tag must be %d bytes", ErrMalformedEnvelope, TagSize)
	}

	data, err := base64.StdEncoding.DecodeString(env.Data)
	if err != nil {
		return EncryptedPayload{}, fmt.Errorf("%w: data: %v", ErrMalformedEnvelope, err)
	}

	if env.V < 1 {
		return EncryptedPayload{}, fmt.Errorf("%w: key version %d", ErrMalformedEnvelope, env.V)
	}

	return EncryptedPayload{
		IV:         iv,
		Ciphertext: data,
		AuthTag:    tag,
		KeyVersion: env.V,
	}, nil
}
