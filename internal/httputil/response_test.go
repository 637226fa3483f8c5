package httputil

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	apperrors "github.com/heirclark/dataguard/internal/errors"
)

func TestHandleErrorGin(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name         string
		err          error
		expectedCode int
		expectedBody string
	}{
		{
			name:         "not found",
			err:          apperrors.Wrap(apperrors.ErrNotFound, "user"),
			expectedCode: http.StatusNotFound,
			expectedBody: `{"error":"not_found","message":"The requested resource was not found"}`,
		},
		{
			name:         "invalid input exposes message",
			err:          apperrors.Wrap(apperrors.ErrInvalidInput, "limit too large"),
			expectedCode: http.StatusUnprocessableEntity,
			expectedBody: `{"error":"invalid_input","message":"limit too large: invalid input"}`,
		},
		{
			name:         "unauthorized",
			err:          apperrors.ErrUnauthorized,
			expectedCode: http.StatusUnauthorized,
			expectedBody: `{"error":"unauthorized","message":"Authentication is required"}`,
		},
		{
			name:         "integrity hides details",
			err:          apperrors.Wrap(apperrors.ErrIntegrity, "tag mismatch on field weight_encrypted"),
			expectedCode: http.StatusUnprocessableEntity,
			expectedBody: `{"error":"integrity_error","message":"Stored data failed verification"}`,
		},
		{
			name:         "persistence",
			err:          apperrors.Wrap(apperrors.ErrPersistence, "pq: connection refused"),
			expectedCode: http.StatusServiceUnavailable,
			expectedBody: `{"error":"unavailable","message":"The request could not be completed, try again later"}`,
		},
		{
			name:         "deadline",
			err:          fmt.Errorf("list audit logs: %w", context.DeadlineExceeded),
			expectedCode: http.StatusServiceUnavailable,
			expectedBody: `{"error":"unavailable","message":"The request could not be completed, try again later"}`,
		},
		{
			name:         "unknown error hides details",
			err:          errors.New("pq: relation \"meals\" does not exist"),
			expectedCode: http.StatusInternalServerError,
			expectedBody: `{"error":"internal_error","message":"An internal error occurred"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			HandleErrorGin(c, tt.err, nil)

			assert.Equal(t, tt.expectedCode, w.Code)
			assert.JSONEq(t, tt.expectedBody, w.Body.String())
		})
	}
}

func TestHandleValidationErrorGin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	HandleValidationErrorGin(c, errors.New("user_id: cannot be blank."), nil)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.JSONEq(t, `{"error":"validation_error","message":"user_id: cannot be blank."}`, w.Body.String())
}

func TestHandleErrorGin_LogsLevelByStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/v1/audit-logs", nil)
	HandleErrorGin(c, apperrors.Wrap(apperrors.ErrInvalidInput, "limit too large"), logger)
	assert.Contains(t, buf.String(), `"level":"WARN"`)

	buf.Reset()
	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/v1/audit-logs", nil)
	HandleErrorGin(c, errors.New("boom"), logger)
	assert.Contains(t, buf.String(), `"level":"ERROR"`)
	assert.Contains(t, buf.String(), `"error_code":"internal_error"`)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusServiceUnavailable, StatusFor(apperrors.Wrap(apperrors.ErrPersistence, "flush")))
	assert.Equal(t, http.StatusServiceUnavailable, StatusFor(context.DeadlineExceeded))
	assert.Equal(t, http.StatusUnauthorized, StatusFor(apperrors.ErrUnauthorized))
	assert.Equal(t, http.StatusInternalServerError, StatusFor(context.Canceled))
}
