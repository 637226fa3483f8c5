package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/google/uuid"

	complianceDomain "github.com/heirclark/dataguard/internal/compliance/domain"
	"github.com/heirclark/dataguard/internal/compliance/http/dto"
	complianceUseCase "github.com/heirclark/dataguard/internal/compliance/usecase"
)

// RunExportUser writes the user's export document as JSON. Encrypted fields
// that cannot be decrypted are listed in the document's errors.
func RunExportUser(
	ctx context.Context,
	useCase complianceUseCase.ComplianceUseCase,
	logger *slog.Logger,
	writer io.Writer,
	userID string,
) error {
	req := complianceDomain.Request{
		UserID:        userID,
		Type:          complianceDomain.RequestExport,
		CorrelationID: uuid.Must(uuid.NewV7()),
	}

	logger.Info("exporting user data", slog.String("correlation_id", req.CorrelationID.String()))

	doc, err := useCase.Export(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to export user data: %w", err)
	}

	return writeJSON(writer, dto.MapExportToResponse(doc))
}

// RunEraseUser permanently deletes the user's data and anonymizes the user's
// audit rows. confirm must repeat the user id.
func RunEraseUser(
	ctx context.Context,
	useCase complianceUseCase.ComplianceUseCase,
	logger *slog.Logger,
	writer io.Writer,
	userID, confirm, format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}
	if confirm != userID {
		return fmt.Errorf("erasure not confirmed: --confirm must repeat the user id")
	}

	req := complianceDomain.Request{
		UserID:        userID,
		Type:          complianceDomain.RequestErase,
		CorrelationID: uuid.Must(uuid.NewV7()),
	}

	logger.Info("erasing user data", slog.String("correlation_id", req.CorrelationID.String()))

	manifest, err := useCase.Erase(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to erase user data: %w", err)
	}

	if format == "json" {
		return writeJSON(writer, dto.MapManifestToResponse(manifest))
	}

	_, _ = fmt.Fprintf(writer, "Erasure %s completed at %s\n",
		manifest.CorrelationID, manifest.CompletedAt.Format("2006-01-02T15:04:05Z07:00"))

	domains := make([]string, 0, len(manifest.Deleted))
	for domain := range manifest.Deleted {
		domains = append(domains, domain)
	}
	sort.Strings(domains)
	for _, domain := range domains {
		_, _ = fmt.Fprintf(writer, "  %s: %d row(s) deleted\n", domain, manifest.Deleted[domain])
	}
	_, _ = fmt.Fprintf(writer, "  audit logs: %d row(s) anonymized\n", manifest.AnonymizedAuditRows)
	return nil
}
