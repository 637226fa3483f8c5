package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	complianceDomain "github.com/heirclark/dataguard/internal/compliance/domain"
	cryptoDomain "github.com/heirclark/dataguard/internal/crypto/domain"
	cryptoUseCase "github.com/heirclark/dataguard/internal/crypto/usecase"
)

// BackfillOptions holds the flags of the backfill-encryption command.
type BackfillOptions struct {
	Table          string
	Column         string
	BatchSize      int
	ClearPlaintext bool
	DryRun         bool
	Format         string
}

// RunBackfillEncryption encrypts the legacy plaintext column behind one
// registered encrypted column. The run is resumable: rows that already carry an
// envelope are never touched again.
func RunBackfillEncryption(
	ctx context.Context,
	backfillUseCase cryptoUseCase.BackfillUseCase,
	registry complianceDomain.Registry,
	logger *slog.Logger,
	writer io.Writer,
	opts BackfillOptions,
) error {
	if err := validateFormat(opts.Format); err != nil {
		return err
	}

	table, field, err := registry.Field(opts.Table, opts.Column)
	if err != nil {
		return fmt.Errorf("failed to resolve backfill target: %w", err)
	}
	if field.PlaintextColumn == "" {
		return fmt.Errorf("column %s.%s has no legacy plaintext column", opts.Table, opts.Column)
	}

	target := cryptoDomain.BackfillTarget{
		Table:           table.Table,
		IDColumn:        table.IDColumn,
		EnvelopeColumn:  field.Column,
		PlaintextColumn: field.PlaintextColumn,
		Context:         field.Context,
	}

	logger.Info("backfilling encrypted column",
		slog.String("table", target.Table),
		slog.String("field", target.EnvelopeColumn),
		slog.Bool("dry_run", opts.DryRun),
	)

	result, err := backfillUseCase.Run(ctx, cryptoUseCase.BackfillInput{
		Target:         target,
		BatchSize:      opts.BatchSize,
		ClearPlaintext: opts.ClearPlaintext,
		DryRun:         opts.DryRun,
	})
	if err != nil {
		if result != nil {
			logger.Error("backfill stopped",
				slog.Int64("scanned", result.Scanned),
				slog.Int64("encrypted", result.Encrypted),
			)
		}
		return fmt.Errorf("failed to backfill %s.%s: %w", target.Table, target.EnvelopeColumn, err)
	}

	if opts.Format == "json" {
		return writeJSON(writer, map[string]any{
			"table":     target.Table,
			"column":    target.EnvelopeColumn,
			"scanned":   result.Scanned,
			"encrypted": result.Encrypted,
			"skipped":   result.Skipped,
			"dry_run":   result.DryRun,
		})
	}

	if result.DryRun {
		_, _ = fmt.Fprintf(writer, "Dry-run mode: %d row(s) of %s.%s awaiting encryption, %d would be skipped\n",
			result.Scanned, target.Table, target.EnvelopeColumn, result.Skipped)
		return nil
	}
	_, _ = fmt.Fprintf(writer, "Encrypted %d of %d row(s) in %s.%s, skipped %d\n",
		result.Encrypted, result.Scanned, target.Table, target.EnvelopeColumn, result.Skipped)
	return nil
}
