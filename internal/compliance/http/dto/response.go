package dto

import (
	"time"

	complianceDomain "github.com/heirclark/dataguard/internal/compliance/domain"
)

// Request outcomes reported in the status field.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// FieldValueResponse is one exported encrypted field.
type FieldValueResponse struct {
	Status string  `json:"status"`
	Value  *string `json:"value"`
	Reason string  `json:"reason,omitempty"`
}

// RecordResponse is one exported row.
type RecordResponse struct {
	ID      string                        `json:"id"`
	Columns map[string]*string            `json:"columns"`
	Fields  map[string]FieldValueResponse `json:"fields"`
}

// FieldErrorResponse reports a field the export could not recover.
type FieldErrorResponse struct {
	Domain   string `json:"domain"`
	RecordID string `json:"record_id"`
	Field    string `json:"field"`
	Reason   string `json:"reason"`
}

// ExportResponse is the body of a successful export.
type ExportResponse struct {
	Status        string                      `json:"status"`
	CorrelationID string                      `json:"correlation_id"`
	UserID        string                      `json:"user_id"`
	GeneratedAt   time.Time                   `json:"generated_at"`
	Domains       map[string][]RecordResponse `json:"domains"`
	Errors        []FieldErrorResponse        `json:"errors"`
}

// EraseResponse is the body of a successful erasure.
type EraseResponse struct {
	Status              string           `json:"status"`
	CorrelationID       string           `json:"correlation_id"`
	Deleted             map[string]int64 `json:"deleted"`
	AnonymizedAuditRows int64            `json:"anonymized_audit_rows"`
	CompletedAt         time.Time        `json:"completed_at"`
}

// FailureResponse is the body of a failed request. It never carries internal
// error details.
type FailureResponse struct {
	Status        string `json:"status"`
	CorrelationID string `json:"correlation_id"`
	Error         string `json:"error"`
}

// MapExportToResponse converts an export document to its response body.
func MapExportToResponse(doc *complianceDomain.ExportDocument) ExportResponse {
	domains := make(map[string][]RecordResponse, len(doc.Domains))
	for domain, records := range doc.Domains {
		mapped := make([]RecordResponse, 0, len(records))
		for _, record := range records {
			fields := make(map[string]FieldValueResponse, len(record.Fields))
			for column, field := range record.Fields {
				fields[column] = FieldValueResponse{
					Status: string(field.Status),
					Value:  field.Value,
					Reason: field.Reason,
				}
			}
			mapped = append(mapped, RecordResponse{
				ID:      record.ID,
				Columns: record.Columns,
				Fields:  fields,
			})
		}
		domains[domain] = mapped
	}

	errors := make([]FieldErrorResponse, 0, len(doc.Errors))
	for _, e := range doc.Errors {
		errors = append(errors, FieldErrorResponse{
			Domain:   e.Domain,
			RecordID: e.RecordID,
			Field:    e.Field,
			Reason:   e.Reason,
		})
	}

	return ExportResponse{
		Status:        StatusCompleted,
		CorrelationID: doc.CorrelationID.String(),
		UserID:        doc.UserID,
		GeneratedAt:   doc.GeneratedAt,
		Domains:       domains,
		Errors:        errors,
	}
}

// MapManifestToResponse converts an erasure manifest to its response body.
func MapManifestToResponse(manifest *complianceDomain.ErasureManifest) EraseResponse {
	deleted := manifest.Deleted
	if deleted == nil {
		deleted = map[string]int64{}
	}
	return EraseResponse{
		Status:              StatusCompleted,
		CorrelationID:       manifest.CorrelationID.String(),
		Deleted:             deleted,
		AnonymizedAuditRows: manifest.AnonymizedAuditRows,
		CompletedAt:         manifest.CompletedAt,
	}
}
