// Package http provides HTTP middleware for the operator API: bearer token
// authentication and per-IP rate limiting.
package http

import (
	"crypto/sha256"
	"crypto/subtle"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/gin-gonic/gin"

	authService "github.com/heirclark/dataguard/internal/auth/service"
	apperrors "github.com/heirclark/dataguard/internal/errors"
	"github.com/heirclark/dataguard/internal/httputil"
)

// AuthenticationMiddleware requires "Authorization: Bearer <token>" (the scheme is
// case-insensitive) whose token matches the configured Argon2id hash.
//
// The SHA-256 digest of the last verified token is kept; requests carrying the
// same token are compared against it in constant time and skip Argon2id. Any
// other token goes through Argon2id.
//
// Error handling:
//   - Missing or malformed Authorization header → 401 Unauthorized
//   - Token not matching the hash → 401 Unauthorized
//   - No hash configured → 401 Unauthorized for every request
func AuthenticationMiddleware(
	tokenService authService.APITokenService,
	tokenHash string,
	logger *slog.Logger,
) gin.HandlerFunc {
	var verified atomic.Pointer[[sha256.Size]byte]

	if tokenHash == "" {
		logger.Warn("no api token hash configured, every api request will be rejected")
	}

	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			logger.Debug("authentication failed: missing authorization header")
			httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, logger)
			c.Abort()
			return
		}

		const bearerPrefix = "bearer "
		if len(authHeader) < len(bearerPrefix) ||
			!strings.EqualFold(authHeader[:len(bearerPrefix)], bearerPrefix) {
			logger.Debug("authentication failed: malformed authorization header")
			httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, logger)
			c.Abort()
			return
		}

		plainToken := strings.TrimSpace(authHeader[len(bearerPrefix):])
		if plainToken == "" || tokenHash == "" {
			logger.Debug("authentication failed: empty bearer token")
			httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, logger)
			c.Abort()
			return
		}

		digest := sha256.Sum256([]byte(plainToken))
		if last := verified.Load(); last != nil && subtle.ConstantTimeCompare(last[:], digest[:]) == 1 {
			c.Next()
			return
		}

		if !tokenService.CompareToken(plainToken, tokenHash) {
			logger.Debug("authentication failed: token mismatch",
				slog.String("client_ip", c.ClientIP()))
			httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, logger)
			c.Abort()
			return
		}

		verified.Store(&digest)
		c.Next()
	}
}
