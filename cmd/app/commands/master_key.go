package commands

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"

	cryptoDomain "github.com/heirclark/dataguard/internal/crypto/domain"
)

// RunCreateMasterKey generates a random 32-byte master key and prints it as the
// ENCRYPTION_MASTER_KEY environment variable. Key material is zeroed after encoding.
func RunCreateMasterKey(logger *slog.Logger, writer io.Writer) error {
	masterKey := make([]byte, cryptoDomain.KeySize)
	defer cryptoDomain.Zero(masterKey)

	if _, err := rand.Read(masterKey); err != nil {
		return fmt.Errorf("failed to generate master key: %w", err)
	}

	encodedKey := base64.StdEncoding.EncodeToString(masterKey)

	if _, err := fmt.Fprintf(writer,
		"# Copy this variable to your .env file or secrets manager\n"+
			"# Changing it makes every existing envelope undecryptable\n\n"+
			"ENCRYPTION_MASTER_KEY=\"%s\"\n",
		encodedKey,
	); err != nil {
		return fmt.Errorf("failed to write master key: %w", err)
	}

	logger.Info("master key generated")
	return nil
}
