// Package http provides HTTP handlers for user data export and erasure.
package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	complianceDomain "github.com/heirclark/dataguard/internal/compliance/domain"
	"github.com/heirclark/dataguard/internal/compliance/http/dto"
	complianceUseCase "github.com/heirclark/dataguard/internal/compliance/usecase"
	apperrors "github.com/heirclark/dataguard/internal/errors"
	"github.com/heirclark/dataguard/internal/httputil"
	customValidation "github.com/heirclark/dataguard/internal/validation"
)

// ComplianceHandler handles HTTP requests for compliance operations.
type ComplianceHandler struct {
	complianceUseCase complianceUseCase.ComplianceUseCase
	logger            *slog.Logger
}

// NewComplianceHandler creates a new compliance handler with required dependencies.
func NewComplianceHandler(
	complianceUseCase complianceUseCase.ComplianceUseCase,
	logger *slog.Logger,
) *ComplianceHandler {
	return &ComplianceHandler{
		complianceUseCase: complianceUseCase,
		logger:            logger,
	}
}

// ExportHandler returns everything stored for a user.
// POST /v1/compliance/export - Requires bearer token.
// Returns 200 OK with the export document.
func (h *ComplianceHandler) ExportHandler(c *gin.Context) {
	req, ok := h.bindRequest(c, complianceDomain.RequestExport)
	if !ok {
		return
	}

	doc, err := h.complianceUseCase.Export(c.Request.Context(), req)
	if err != nil {
		h.handleRequestError(c, req, err)
		return
	}

	c.JSON(http.StatusOK, dto.MapExportToResponse(doc))
}

// EraseHandler deletes everything stored for a user and anonymizes their audit trail.
// POST /v1/compliance/erase - Requires bearer token.
// Returns 200 OK with the erasure manifest.
func (h *ComplianceHandler) EraseHandler(c *gin.Context) {
	req, ok := h.bindRequest(c, complianceDomain.RequestErase)
	if !ok {
		return
	}

	manifest, err := h.complianceUseCase.Erase(c.Request.Context(), req)
	if err != nil {
		h.handleRequestError(c, req, err)
		return
	}

	c.JSON(http.StatusOK, dto.MapManifestToResponse(manifest))
}

func (h *ComplianceHandler) bindRequest(
	c *gin.Context,
	requestType complianceDomain.RequestType,
) (complianceDomain.Request, bool) {
	var body dto.ComplianceRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return complianceDomain.Request{}, false
	}

	if err := body.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return complianceDomain.Request{}, false
	}

	req := complianceDomain.Request{
		UserID:        body.UserID,
		Type:          requestType,
		CorrelationID: correlationID(c),
	}
	if ip := c.ClientIP(); ip != "" {
		req.RequesterIP = &ip
	}
	return req, true
}

// correlationID reuses the request id when it is a UUID so HTTP logs and audit
// entries share one identifier.
func correlationID(c *gin.Context) uuid.UUID {
	if id, err := uuid.Parse(requestid.Get(c)); err == nil && id != uuid.Nil {
		return id
	}
	return uuid.Must(uuid.NewV7())
}

func (h *ComplianceHandler) handleRequestError(c *gin.Context, req complianceDomain.Request, err error) {
	if apperrors.Is(err, apperrors.ErrInvalidInput) {
		var requestErr *complianceDomain.RequestError
		if errors.As(err, &requestErr) {
			err = requestErr.Err
		}
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	code := "export_failed"
	var requestErr *complianceDomain.RequestError
	if errors.As(err, &requestErr) {
		code = requestErr.Code()
	}

	status := http.StatusInternalServerError
	if httputil.StatusFor(err) == http.StatusServiceUnavailable {
		status = http.StatusServiceUnavailable
	}

	h.logger.Error("compliance request failed",
		slog.String("correlation_id", req.CorrelationID.String()),
		slog.String("type", string(req.Type)),
		slog.Any("error", err),
	)

	c.JSON(status, dto.FailureResponse{
		Status:        dto.StatusFailed,
		CorrelationID: req.CorrelationID.String(),
		Error:         code,
	})
}
