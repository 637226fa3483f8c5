package domain

// FieldContext is a data-category tag. Every context defines an independent key
// namespace: a value encrypted under one context can never be decrypted under
// another.
type FieldContext string

const (
	// OAuthToken covers third-party OAuth access tokens (wearables, shop integrations).
	OAuthToken FieldContext = "oauth-token"

	// RefreshToken covers OAuth refresh tokens.
	RefreshToken FieldContext = "refresh-token"

	// HealthMetrics covers wearable and health-device readings.
	HealthMetrics FieldContext = "health-metrics"

	// PII covers directly identifying profile data (email, display name).
	PII FieldContext = "pii"

	// NutritionData covers meal logs and nutrition notes.
	NutritionData FieldContext = "nutrition-data"

	// WeightData covers weight and body measurement entries.
	WeightData FieldContext = "weight-data"
)

const (
	// KeySize is the size in bytes of the master key and every derived key (AES-256).
	KeySize = 32

	// IVSize is the GCM nonce size in bytes (96 bits).
	IVSize = 12

	// TagSize is the GCM authentication tag size in bytes (128 bits).
	TagSize = 16
)

// FieldContexts returns the closed set of supported contexts.
func FieldContexts() []FieldContext {
	return []FieldContext{OAuthToken, RefreshToken, HealthMetrics, PII, NutritionData, WeightData}
}

// Validate returns ErrUnknownFieldContext when c is not part of the closed set.
func (c FieldContext) Validate() error {
	switch c {
	case OAuthToken, RefreshToken, HealthMetrics, PII, NutritionData, WeightData:
		return nil
	default:
		return ErrUnknownFieldContext
	}
}

// String returns the context tag.
func (c FieldContext) String() string {
	return string(c)
}
