package usecase

import (
	"context"
	"time"

	complianceDomain "github.com/heirclark/dataguard/internal/compliance/domain"
	"github.com/heirclark/dataguard/internal/metrics"
)

// complianceUseCaseWithMetrics decorates ComplianceUseCase with metrics instrumentation.
type complianceUseCaseWithMetrics struct {
	next    ComplianceUseCase
	metrics metrics.BusinessMetrics
}

// NewComplianceUseCaseWithMetrics wraps a ComplianceUseCase with metrics recording.
func NewComplianceUseCaseWithMetrics(useCase ComplianceUseCase, m metrics.BusinessMetrics) ComplianceUseCase {
	return &complianceUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

// Export records metrics for user data export.
func (c *complianceUseCaseWithMetrics) Export(
	ctx context.Context,
	req complianceDomain.Request,
) (*complianceDomain.ExportDocument, error) {
	start := time.Now()
	doc, err := c.next.Export(ctx, req)

	status := metrics.Status(err)

	c.metrics.RecordOperation(ctx, "compliance", "user_export", status)
	c.metrics.RecordDuration(ctx, "compliance", "user_export", time.Since(start), status)

	return doc, err
}

// Erase records metrics for user erasure.
func (c *complianceUseCaseWithMetrics) Erase(
	ctx context.Context,
	req complianceDomain.Request,
) (*complianceDomain.ErasureManifest, error) {
	start := time.Now()
	manifest, err := c.next.Erase(ctx, req)

	status := metrics.Status(err)

	c.metrics.RecordOperation(ctx, "compliance", "user_erase", status)
	c.metrics.RecordDuration(ctx, "compliance", "user_erase", time.Since(start), status)

	return manifest, err
}
