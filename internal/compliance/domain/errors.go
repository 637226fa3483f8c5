package domain

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/heirclark/dataguard/internal/errors"
)

// Reasons recorded on unavailable export fields.
const (
	ReasonDecryptionFailed = "decryption_failed"
)

var (
	// ErrRegistryInvalid indicates a table registry that fails validation at startup.
	ErrRegistryInvalid = errors.Wrap(errors.ErrConfig, "invalid user data registry")

	// ErrCorrelationIDRequired indicates a request without a correlation id.
	ErrCorrelationIDRequired = errors.Wrap(errors.ErrInvalidInput, "correlation id is required")

	// ErrRequestTypeMismatch indicates a request routed to the wrong workflow.
	ErrRequestTypeMismatch = errors.Wrap(errors.ErrInvalidInput, "request type does not match operation")
)

// RequestError reports a failed compliance request. Err stays available through
// errors.Is and errors.As for logs and status mapping, but the message carries
// only the request type and correlation id so it is safe to show to callers.
type RequestError struct {
	CorrelationID uuid.UUID
	Type          RequestType
	Err           error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("%s request %s failed", e.Type, e.CorrelationID)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// Code returns the public error code for the request type.
func (e *RequestError) Code() string {
	if e.Type == RequestErase {
		return "erasure_failed"
	}
	return "export_failed"
}
