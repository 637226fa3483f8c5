package commands

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	authService "github.com/heirclark/dataguard/internal/auth/service"
)

// RunHashAPIToken prints the COMPLIANCE_API_TOKEN_HASH for an operator token.
// With an empty token a new random token is generated and printed once
// alongside its hash.
func RunHashAPIToken(
	tokenService authService.APITokenService,
	logger *slog.Logger,
	writer io.Writer,
	token string,
) error {
	token = strings.TrimSpace(token)

	var hash string
	var err error
	generated := token == ""
	if generated {
		token, hash, err = tokenService.GenerateToken()
	} else {
		hash, err = tokenService.HashToken(token)
	}
	if err != nil {
		return fmt.Errorf("failed to hash api token: %w", err)
	}

	if generated {
		_, _ = fmt.Fprintln(writer, "# Store this token securely, it will not be shown again")
		_, _ = fmt.Fprintf(writer, "# API_TOKEN=\"%s\"\n\n", token)
	}
	if _, err := fmt.Fprintf(writer, "COMPLIANCE_API_TOKEN_HASH='%s'\n", hash); err != nil {
		return fmt.Errorf("failed to write api token hash: %w", err)
	}

	logger.Info("api token hash generated", slog.Bool("generated_token", generated))
	return nil
}
