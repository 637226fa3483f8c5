package domain

import (
	"time"

	"github.com/google/uuid"
)

// FieldStatus says where an exported field value came from.
type FieldStatus string

const (
	// FieldDecrypted means the envelope decrypted and verified.
	FieldDecrypted FieldStatus = "decrypted"

	// FieldPlaintext means the row was not migrated yet: no envelope, plaintext column set.
	FieldPlaintext FieldStatus = "plaintext"

	// FieldPlaintextFallback means the envelope failed to decrypt and the legacy
	// plaintext column was used instead.
	FieldPlaintextFallback FieldStatus = "plaintext_fallback"

	// FieldUnavailable means the envelope failed to decrypt and there was nothing
	// to fall back to.
	FieldUnavailable FieldStatus = "unavailable"
)

// FieldValue is one exported encrypted field.
type FieldValue struct {
	Status FieldStatus
	Value  *string
	Reason string
}

// Record is one exported row.
type Record struct {
	ID      string
	Columns map[string]*string
	Fields  map[string]FieldValue
}

// FieldError records a field the export could not recover. It does not fail
// the export.
type FieldError struct {
	Domain   string
	RecordID string
	Field    string
	Reason   string
}

// ExportDocument is the portable copy of everything stored for a user.
type ExportDocument struct {
	UserID        string
	CorrelationID uuid.UUID
	GeneratedAt   time.Time

	// Domains holds the records per registry domain. Every domain is present,
	// with an empty slice when the user has no rows.
	Domains map[string][]Record
	Errors  []FieldError
}

// RecordCount returns the number of records across all domains.
func (d *ExportDocument) RecordCount() int {
	n := 0
	for _, records := range d.Domains {
		n += len(records)
	}
	return n
}

// ErasureManifest reports what an erasure removed.
type ErasureManifest struct {
	CorrelationID uuid.UUID

	// Deleted holds per-domain deleted row counts. Domains with no rows are omitted.
	Deleted             map[string]int64
	AnonymizedAuditRows int64
	CompletedAt         time.Time
}

// DeletedTotal returns the number of deleted domain rows.
func (m *ErasureManifest) DeletedTotal() int64 {
	var n int64
	for _, c := range m.Deleted {
		n += c
	}
	return n
}
