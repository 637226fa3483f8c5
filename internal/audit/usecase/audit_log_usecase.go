package usecase

import (
	"context"
	"log/slog"
	"maps"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	auditDomain "github.com/heirclark/dataguard/internal/audit/domain"
	auditService "github.com/heirclark/dataguard/internal/audit/service"
	apperrors "github.com/heirclark/dataguard/internal/errors"
)

// auditLogUseCase implements AuditLogUseCase on top of a Sink and a repository.
type auditLogUseCase struct {
	sink         Sink
	auditLogRepo AuditLogRepository
	hasher       auditService.StateHasher
	policy       auditDomain.AnonymizationPolicy
	clock        clockwork.Clock
	logger       *slog.Logger
}

// Record hashes old and new state and enqueues the entry. A state that cannot be
// hashed is left out and flagged in metadata rather than failing the caller.
func (a *auditLogUseCase) Record(ctx context.Context, input RecordInput) {
	entry := &auditDomain.AuditLog{
		ID:            uuid.Must(uuid.NewV7()),
		CorrelationID: input.CorrelationID,
		ActorID:       input.ActorID,
		Action:        input.Action,
		ResourceType:  input.ResourceType,
		ResourceID:    input.ResourceID,
		IPAddress:     input.IPAddress,
		Metadata:      maps.Clone(input.Metadata),
		CreatedAt:     a.clock.Now().UTC(),
	}

	if entry.CorrelationID == uuid.Nil {
		entry.CorrelationID = uuid.Must(uuid.NewV7())
	}

	var err error
	if entry.OldStateHash, err = a.hasher.HashState(input.OldState); err != nil {
		a.hashFailed(entry, "old_state", err)
	}
	if entry.NewStateHash, err = a.hasher.HashState(input.NewState); err != nil {
		a.hashFailed(entry, "new_state", err)
	}

	if input.Duration != nil {
		ms := input.Duration.Milliseconds()
		entry.DurationMs = &ms
	}
	if input.Err != nil {
		msg := input.Err.Error()
		entry.ErrorMessage = &msg
	}

	a.sink.Log(ctx, entry)
}

// List validates the time range and returns matching audit logs newest first.
func (a *auditLogUseCase) List(
	ctx context.Context,
	filter auditDomain.ListFilter,
) ([]*auditDomain.AuditLog, error) {
	if filter.CreatedAtFrom != nil && filter.CreatedAtTo != nil &&
		filter.CreatedAtFrom.After(*filter.CreatedAtTo) {
		return nil, auditDomain.ErrInvalidTimeRange
	}

	auditLogs, err := a.auditLogRepo.List(ctx, filter)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list audit logs")
	}

	return auditLogs, nil
}

// AnonymizeExpired applies the retention policy and records the run in the audit
// trail. Rows are anonymized in place, never deleted.
func (a *auditLogUseCase) AnonymizeExpired(ctx context.Context, dryRun bool) (int64, error) {
	filter, err := a.policy.ForRetention(a.clock.Now())
	if err != nil {
		return 0, err
	}

	if dryRun {
		count, err := a.auditLogRepo.CountAnonymizable(ctx, filter)
		if err != nil {
			return 0, apperrors.Wrap(err, "failed to count expired audit logs")
		}
		return count, nil
	}

	count, err := a.auditLogRepo.Anonymize(ctx, filter)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to anonymize expired audit logs")
	}

	a.Record(ctx, RecordInput{
		Action:       auditDomain.ActionRetentionAnonymized,
		ResourceType: auditDomain.ResourceAuditLog,
		Metadata: map[string]any{
			"anonymized_rows": count,
			"created_before":  filter.CreatedBefore.Format(time.RFC3339),
			"retention_days":  a.policy.RetentionDays,
		},
	})

	return count, nil
}

func (a *auditLogUseCase) hashFailed(entry *auditDomain.AuditLog, field string, err error) {
	a.logger.Warn("failed to hash audit state",
		slog.String("audit_log_id", entry.ID.String()),
		slog.String("field", field),
		slog.Any("error", err),
	)
	if entry.Metadata == nil {
		entry.Metadata = make(map[string]any, 1)
	}
	entry.Metadata[field+"_hash_error"] = true
}

// NewAuditLogUseCase creates a new AuditLogUseCase with the provided dependencies.
func NewAuditLogUseCase(
	sink Sink,
	auditLogRepo AuditLogRepository,
	hasher auditService.StateHasher,
	policy auditDomain.AnonymizationPolicy,
	clock clockwork.Clock,
	logger *slog.Logger,
) AuditLogUseCase {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &auditLogUseCase{
		sink:         sink,
		auditLogRepo: auditLogRepo,
		hasher:       hasher,
		policy:       policy,
		clock:        clock,
		logger:       logger,
	}
}
