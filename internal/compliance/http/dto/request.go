// Package dto provides data transfer objects for compliance HTTP requests and responses.
package dto

import (
	validation "github.com/jellydator/validation"

	customValidation "github.com/heirclark/dataguard/internal/validation"
)

// ComplianceRequest is the body of export and erase requests.
type ComplianceRequest struct {
	UserID string `json:"user_id"`
}

// Validate checks if the compliance request is valid.
func (r *ComplianceRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.UserID, customValidation.UserID...),
	)
}
