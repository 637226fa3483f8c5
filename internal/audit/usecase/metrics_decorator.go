package usecase

import (
	"context"
	"time"

	auditDomain "github.com/heirclark/dataguard/internal/audit/domain"
	"github.com/heirclark/dataguard/internal/metrics"
)

// auditLogUseCaseWithMetrics decorates AuditLogUseCase with metrics instrumentation.
type auditLogUseCaseWithMetrics struct {
	next    AuditLogUseCase
	metrics metrics.BusinessMetrics
}

// NewAuditLogUseCaseWithMetrics wraps an AuditLogUseCase with metrics recording.
func NewAuditLogUseCaseWithMetrics(useCase AuditLogUseCase, m metrics.BusinessMetrics) AuditLogUseCase {
	return &auditLogUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

// Record counts recorded entries. Record cannot fail, so status is always success.
func (a *auditLogUseCaseWithMetrics) Record(ctx context.Context, input RecordInput) {
	a.next.Record(ctx, input)
	a.metrics.RecordOperation(ctx, "audit", "record", metrics.StatusSuccess)
}

// List records metrics for audit log listing.
func (a *auditLogUseCaseWithMetrics) List(
	ctx context.Context,
	filter auditDomain.ListFilter,
) ([]*auditDomain.AuditLog, error) {
	start := time.Now()
	auditLogs, err := a.next.List(ctx, filter)

	status := metrics.Status(err)

	a.metrics.RecordOperation(ctx, "audit", "audit_log_list", status)
	a.metrics.RecordDuration(ctx, "audit", "audit_log_list", time.Since(start), status)

	return auditLogs, err
}

// AnonymizeExpired records metrics for retention runs.
func (a *auditLogUseCaseWithMetrics) AnonymizeExpired(ctx context.Context, dryRun bool) (int64, error) {
	start := time.Now()
	count, err := a.next.AnonymizeExpired(ctx, dryRun)

	status := metrics.Status(err)

	a.metrics.RecordOperation(ctx, "audit", "audit_log_anonymize_expired", status)
	a.metrics.RecordDuration(ctx, "audit", "audit_log_anonymize_expired", time.Since(start), status)

	return count, err
}
