// Package domain defines the audit trail model: immutable entries, the action and
// resource vocabularies, and the single anonymization policy shared by user
// erasure and retention.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// AnonymizedIdentity replaces identity fields of anonymized rows.
const AnonymizedIdentity = "anonymized"

// Action names what happened. Domain modules may use their own values; the
// constants below are emitted by this service.
type Action string

const (
	ActionCreate  Action = "create"
	ActionRead    Action = "read"
	ActionUpdate  Action = "update"
	ActionDelete  Action = "delete"
	ActionDecrypt Action = "decrypt"

	ActionExportStarted   Action = "compliance.export.started"
	ActionExportCompleted Action = "compliance.export.completed"
	ActionExportFailed    Action = "compliance.export.failed"
	ActionEraseStarted    Action = "compliance.erase.started"
	ActionEraseCompleted  Action = "compliance.erase.completed"
	ActionEraseFailed     Action = "compliance.erase.failed"

	ActionRetentionAnonymized Action = "audit.retention.anonymized"
	ActionBackfillCompleted   Action = "crypto.backfill.completed"
)

// String returns the action name.
func (a Action) String() string {
	return string(a)
}

// ResourceType names the kind of resource an entry is about.
type ResourceType string

const (
	// ResourceUser marks entries whose ResourceID is an end-user id. Erasure
	// anonymizes them.
	ResourceUser ResourceType = "user"

	ResourceAuditLog ResourceType = "audit_log"
	ResourceTable    ResourceType = "table"
)

// String returns the resource type name.
func (r ResourceType) String() string {
	return string(r)
}

// AuditLog is one append-only audit entry.
//
// Old and new state are stored only as keyed one-way hashes. Rows are never
// updated except by anonymization, and never deleted.
type AuditLog struct {
	ID            uuid.UUID
	CorrelationID uuid.UUID
	ActorID       *string
	Action        Action
	ResourceType  ResourceType
	ResourceID    *string
	OldStateHash  *string
	NewStateHash  *string
	IPAddress     *string
	Metadata      map[string]any
	CreatedAt     time.Time
	DurationMs    *int64
	ErrorMessage  *string
}

// References reports whether the entry identifies userID, as actor or as a user
// resource.
func (a *AuditLog) References(userID string) bool {
	if a.ActorID != nil && *a.ActorID == userID {
		return true
	}
	return a.ResourceType == ResourceUser && a.ResourceID != nil && *a.ResourceID == userID
}

// Anonymize replaces identity fields with AnonymizedIdentity, clears the IP and
// error message, and tags metadata.
// The entry keeps its id, action, hashes and timestamps.
func (a *AuditLog) Anonymize(at time.Time, reason string) {
	sentinel := AnonymizedIdentity

	if a.ActorID != nil {
		a.ActorID = &sentinel
	}
	if a.ResourceType == ResourceUser && a.ResourceID != nil {
		a.ResourceID = &sentinel
	}
	a.IPAddress = nil
	a.ErrorMessage = nil

	if a.Metadata == nil {
		a.Metadata = make(map[string]any, 3)
	}
	a.Metadata["anonymized"] = true
	a.Metadata["anonymized_at"] = at.UTC().Format(time.RFC3339)
	a.Metadata["anonymization_reason"] = reason
}
