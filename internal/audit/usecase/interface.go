// Package usecase implements the audit trail: the batching sink that persists
// entries off the request path, and the read and anonymization operations built
// on the same repository.
package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	auditDomain "github.com/heirclark/dataguard/internal/audit/domain"
)

// AuditLogRepository defines persistence operations for audit logs.
// Implementations must support transaction-aware operations via context propagation.
type AuditLogRepository interface {
	// CreateBatch inserts all logs in one multi-row statement.
	CreateBatch(ctx context.Context, auditLogs []*auditDomain.AuditLog) error

	// List returns logs matching filter, newest first.
	List(ctx context.Context, filter auditDomain.ListFilter) ([]*auditDomain.AuditLog, error)

	// Anonymize replaces identity fields of every row matching filter and returns
	// the number of rows changed. Rows are never deleted.
	Anonymize(ctx context.Context, filter auditDomain.AnonymizeFilter) (int64, error)

	// CountAnonymizable returns how many rows Anonymize would change.
	CountAnonymizable(ctx context.Context, filter auditDomain.AnonymizeFilter) (int64, error)
}

// Sink accepts audit entries for asynchronous persistence.
type Sink interface {
	// Log enqueues entry. It never blocks on I/O and never fails; persistence
	// problems go to the operator log.
	Log(ctx context.Context, entry *auditDomain.AuditLog)
}

// RecordInput describes one audited operation. OldState and NewState are hashed
// before they reach the sink; raw values are never stored.
type RecordInput struct {
	CorrelationID uuid.UUID
	ActorID       *string
	Action        auditDomain.Action
	ResourceType  auditDomain.ResourceType
	ResourceID    *string
	IPAddress     *string
	OldState      any
	NewState      any
	Metadata      map[string]any
	Duration      *time.Duration
	Err           error
}

// AuditLogUseCase defines the audit trail operations used by the rest of the service.
type AuditLogUseCase interface {
	// Record builds an entry from input and hands it to the sink. It never fails.
	Record(ctx context.Context, input RecordInput)

	// List retrieves audit logs ordered newest first with pagination and optional
	// user, action, resource type and time filters.
	List(ctx context.Context, filter auditDomain.ListFilter) ([]*auditDomain.AuditLog, error)

	// AnonymizeExpired applies the retention policy. With dryRun it only counts
	// eligible rows.
	AnonymizeExpired(ctx context.Context, dryRun bool) (int64, error)
}
