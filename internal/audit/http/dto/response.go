// Package dto provides data transfer objects for audit log HTTP responses.
package dto

import (
	"time"

	auditDomain "github.com/heirclark/dataguard/internal/audit/domain"
)

// AuditLogResponse represents an audit log entry in API responses.
type AuditLogResponse struct {
	ID            string         `json:"id"`
	CorrelationID string         `json:"correlation_id"`
	ActorID       *string        `json:"actor_id,omitempty"`
	Action        string         `json:"action"`
	ResourceType  string         `json:"resource_type"`
	ResourceID    *string        `json:"resource_id,omitempty"`
	OldStateHash  *string        `json:"old_state_hash,omitempty"`
	NewStateHash  *string        `json:"new_state_hash,omitempty"`
	IPAddress     *string        `json:"ip_address,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	DurationMs    *int64         `json:"duration_ms,omitempty"`
	ErrorMessage  *string        `json:"error_message,omitempty"`
}

// MapAuditLogToResponse converts a domain audit log to an API response.
func MapAuditLogToResponse(auditLog *auditDomain.AuditLog) AuditLogResponse {
	return AuditLogResponse{
		ID:            auditLog.ID.String(),
		CorrelationID: auditLog.CorrelationID.String(),
		ActorID:       auditLog.ActorID,
		Action:        string(auditLog.Action),
		ResourceType:  string(auditLog.ResourceType),
		ResourceID:    auditLog.ResourceID,
		OldStateHash:  auditLog.OldStateHash,
		NewStateHash:  auditLog.NewStateHash,
		IPAddress:     auditLog.IPAddress,
		Metadata:      auditLog.Metadata,
		CreatedAt:     auditLog.CreatedAt,
		DurationMs:    auditLog.DurationMs,
		ErrorMessage:  auditLog.ErrorMessage,
	}
}

// ListAuditLogsResponse represents a paginated list of audit logs in API responses.
type ListAuditLogsResponse struct {
	Data   []AuditLogResponse `json:"data"`
	Offset int                `json:"offset"`
	Limit  int                `json:"limit"`
}

// MapAuditLogsToListResponse converts a slice of domain audit logs to a list API response.
func MapAuditLogsToListResponse(auditLogs []*auditDomain.AuditLog, offset, limit int) ListAuditLogsResponse {
	auditLogResponses := make([]AuditLogResponse, 0, len(auditLogs))
	for _, auditLog := range auditLogs {
		auditLogResponses = append(auditLogResponses, MapAuditLogToResponse(auditLog))
	}
	return ListAuditLogsResponse{
		Data:   auditLogResponses,
		Offset: offset,
		Limit:  limit,
	}
}
