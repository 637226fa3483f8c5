package service

import (
	"crypto/rand"
	"encoding/base64"

	"github.com/allisson/go-pwdhash"

	apperrors "github.com/heirclark/dataguard/internal/errors"
)

// tokenBytes is the entropy of a generated token.
const tokenBytes = 32

// apiTokenService implements APITokenService using Argon2id.
type apiTokenService struct {
	hasher *pwdhash.PasswordHasher
}

// GenerateToken creates a 32-byte random token, URL-safe base64 encoded.
func (s *apiTokenService) GenerateToken() (string, string, error) {
	randomBytes := make([]byte, tokenBytes)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", "", apperrors.Wrap(err, "failed to generate random token")
	}

	plainToken := base64.URLEncoding.EncodeToString(randomBytes)

	tokenHash, err := s.HashToken(plainToken)
	if err != nil {
		return "", "", err
	}

	return plainToken, tokenHash, nil
}

// HashToken hashes a plain token with Argon2id.
func (s *apiTokenService) HashToken(plainToken string) (string, error) {
	if plainToken == "" {
		return "", apperrors.Wrap(apperrors.ErrInvalidInput, "token must not be empty")
	}
	tokenHash, err := s.hasher.Hash([]byte(plainToken))
	if err != nil {
		return "", apperrors.Wrap(err, "failed to hash token")
	}
	return tokenHash, nil
}

// CompareToken verifies plainToken against tokenHash in constant time.
func (s *apiTokenService) CompareToken(plainToken string, tokenHash string) bool {
	if plainToken == "" || tokenHash == "" {
		return false
	}
	ok, err := s.hasher.Verify([]byte(plainToken), tokenHash)
	if err != nil {
		return false
	}
	return ok
}

// NewAPITokenService creates an APITokenService using the Moderate Argon2id policy.
func NewAPITokenService() APITokenService {
	hasher, err := pwdhash.New(
		pwdhash.WithPolicy(pwdhash.PolicyModerate),
	)
	if err != nil {
		// This should never happen with valid policy
		panic(err)
	}

	return &apiTokenService{
		hasher: hasher,
	}
}
