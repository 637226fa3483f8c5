// Package domain defines compliance requests, the registry of in-scope user data
// tables, and the documents produced by export and erasure.
package domain

import (
	"github.com/google/uuid"
	validation "github.com/jellydator/validation"

	customValidation "github.com/heirclark/dataguard/internal/validation"
)

// RequestType selects the compliance workflow.
type RequestType string

const (
	// RequestExport is a right-to-data-portability request.
	RequestExport RequestType = "export"

	// RequestErase is a right-to-erasure request.
	RequestErase RequestType = "erase"
)

// Request drives one traversal of every in-scope table for a single user.
type Request struct {
	UserID        string
	Type          RequestType
	CorrelationID uuid.UUID
	RequesterIP   *string
}

// Validate checks the request fields.
func (r Request) Validate() error {
	err := validation.ValidateStruct(&r,
		validation.Field(&r.UserID, customValidation.UserID...),
		validation.Field(&r.Type, validation.Required, validation.In(RequestExport, RequestErase)),
	)
	if err != nil {
		return customValidation.WrapValidationError(err)
	}
	if r.CorrelationID == uuid.Nil {
		return ErrCorrelationIDRequired
	}
	return nil
}
