package usecase

import (
	"context"
	"time"

	cryptoDomain "github.com/heirclark/dataguard/internal/crypto/domain"
	"github.com/heirclark/dataguard/internal/metrics"
)

// backfillUseCaseWithMetrics decorates BackfillUseCase with metrics instrumentation.
type backfillUseCaseWithMetrics struct {
	next    BackfillUseCase
	metrics metrics.BusinessMetrics
}

// NewBackfillUseCaseWithMetrics wraps a BackfillUseCase with metrics recording.
func NewBackfillUseCaseWithMetrics(useCase BackfillUseCase, m metrics.BusinessMetrics) BackfillUseCase {
	return &backfillUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

// Run records metrics for backfill runs.
func (b *backfillUseCaseWithMetrics) Run(
	ctx context.Context,
	input BackfillInput,
) (*cryptoDomain.BackfillResult, error) {
	start := time.Now()
	result, err := b.next.Run(ctx, input)

	status := metrics.Status(err)

	b.metrics.RecordOperation(ctx, "crypto", "encryption_backfill", status)
	b.metrics.RecordDuration(ctx, "crypto", "encryption_backfill", time.Since(start), status)

	return result, err
}
