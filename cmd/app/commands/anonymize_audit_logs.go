package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	auditUseCase "github.com/heirclark/dataguard/internal/audit/usecase"
)

// RunAnonymizeAuditLogs applies the audit retention policy: rows older than the
// retention window lose their user id and IP address. With dryRun the matching
// rows are only counted.
func RunAnonymizeAuditLogs(
	ctx context.Context,
	auditLogUseCase auditUseCase.AuditLogUseCase,
	logger *slog.Logger,
	writer io.Writer,
	retentionDays int,
	dryRun bool,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	logger.Info("anonymizing audit logs",
		slog.Int("retention_days", retentionDays),
		slog.Bool("dry_run", dryRun),
	)

	count, err := auditLogUseCase.AnonymizeExpired(ctx, dryRun)
	if err != nil {
		return fmt.Errorf("failed to anonymize audit logs: %w", err)
	}

	if format == "json" {
		if err := writeJSON(writer, map[string]any{
			"count":          count,
			"retention_days": retentionDays,
			"dry_run":        dryRun,
		}); err != nil {
			return err
		}
	} else if dryRun {
		_, _ = fmt.Fprintf(writer,
			"Dry-run mode: Would anonymize %d audit log(s) older than %d day(s)\n", count, retentionDays)
	} else {
		_, _ = fmt.Fprintf(writer,
			"Successfully anonymized %d audit log(s) older than %d day(s)\n", count, retentionDays)
	}

	logger.Info("audit log anonymization completed",
		slog.Int64("count", count),
		slog.Bool("dry_run", dryRun),
	)

	return nil
}
