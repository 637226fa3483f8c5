// Package http provides the HTTP handler for compliance reporting over the audit trail.
package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	auditDomain "github.com/heirclark/dataguard/internal/audit/domain"
	"github.com/heirclark/dataguard/internal/audit/http/dto"
	auditUseCase "github.com/heirclark/dataguard/internal/audit/usecase"
	"github.com/heirclark/dataguard/internal/httputil"
)

// AuditLogHandler handles HTTP requests for audit log operations.
type AuditLogHandler struct {
	auditLogUseCase auditUseCase.AuditLogUseCase
	logger          *slog.Logger
}

// NewAuditLogHandler creates a new audit log handler with required dependencies.
func NewAuditLogHandler(
	auditLogUseCase auditUseCase.AuditLogUseCase,
	logger *slog.Logger,
) *AuditLogHandler {
	return &AuditLogHandler{
		auditLogUseCase: auditLogUseCase,
		logger:          logger,
	}
}

// ListHandler retrieves audit logs with pagination and optional filters.
// GET /v1/audit-logs?offset=0&limit=50&user_id=user-42&action=compliance.erase.completed
// &resource_type=user&created_at_from=2026-02-01T00:00:00Z&created_at_to=2026-02-14T23:59:59Z
// Returns 200 OK ordered by created_at descending. Time bounds are RFC3339,
// converted to UTC and inclusive.
func (h *AuditLogHandler) ListHandler(c *gin.Context) {
	offset, limit, err := httputil.ParsePagination(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	filter := auditDomain.ListFilter{Offset: offset, Limit: limit}

	if filter.CreatedAtFrom, err = httputil.ParseTimeQuery(c, "created_at_from"); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}
	if filter.CreatedAtTo, err = httputil.ParseTimeQuery(c, "created_at_to"); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	if userID := c.Query("user_id"); userID != "" {
		filter.UserID = &userID
	}
	if action := c.Query("action"); action != "" {
		a := auditDomain.Action(action)
		filter.Action = &a
	}
	if resourceType := c.Query("resource_type"); resourceType != "" {
		r := auditDomain.ResourceType(resourceType)
		filter.ResourceType = &r
	}

	auditLogs, err := h.auditLogUseCase.List(c.Request.Context(), filter)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapAuditLogsToListResponse(auditLogs, offset, limit))
}
