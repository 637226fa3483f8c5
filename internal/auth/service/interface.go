// Package service provides the operator API token service.
//
// The API is guarded by a single static bearer token. Only its Argon2id hash is
// configured on the server; the plain token is shown once when generated.
package service

// APITokenService generates, hashes and verifies operator API tokens.
type APITokenService interface {
	// GenerateToken creates a new random token and returns it together with its
	// Argon2id hash in PHC format.
	GenerateToken() (plainToken string, tokenHash string, err error)

	// HashToken hashes an existing plain token.
	HashToken(plainToken string) (tokenHash string, err error)

	// CompareToken reports whether plainToken matches tokenHash. Malformed hashes
	// never match.
	CompareToken(plainToken string, tokenHash string) bool
}
