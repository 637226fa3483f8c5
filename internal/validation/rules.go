// Package validation provides custom validation rules for the application.
package validation

import (
	"encoding/base64"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	validation "github.com/jellydator/validation"

	apperrors "github.com/heirclark/dataguard/internal/errors"
)

var (
	// identifierRegex matches unquoted SQL identifiers accepted by both PostgreSQL and MySQL.
	identifierRegex = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,62}$`)
)

// WrapValidationError wraps validation errors as domain ErrInvalidInput
func WrapValidationError(err error) error {
	if err == nil {
		return nil
	}
	return apperrors.Wrap(apperrors.ErrInvalidInput, err.Error())
}

// SQLIdentifier validates a table or column name before it is interpolated into SQL.
var SQLIdentifier = validation.NewStringRuleWithError(
	func(s string) bool {
		return identifierRegex.MatchString(s)
	},
	validation.NewError("validation_sql_identifier", "must be a lowercase SQL identifier"),
)

// NoWhitespace validates that string doesn't contain leading/trailing whitespace
var NoWhitespace = validation.NewStringRuleWithError(
	func(s string) bool {
		return s == strings.TrimSpace(s)
	},
	validation.NewError("validation_no_whitespace", "must not contain leading or trailing whitespace"),
)

// NotBlank validates that a string is not empty after trimming whitespace
var NotBlank = validation.NewStringRuleWithError(
	func(s string) bool {
		return strings.TrimSpace(s) != ""
	},
	validation.NewError("validation_not_blank", "must not be blank"),
)

// Printable rejects control characters, which have no place in user ids and
// would corrupt log lines.
var Printable = validation.NewStringRuleWithError(
	func(s string) bool {
		for _, r := range s {
			if !unicode.IsPrint(r) {
				return false
			}
		}
		return true
	},
	validation.NewError("validation_printable", "must not contain control characters"),
)

// UserID is the rule set for end-user identifiers in compliance requests.
var UserID = []validation.Rule{
	validation.Required,
	NotBlank,
	NoWhitespace,
	Printable,
	validation.Length(1, 255),
}

// Base64Key validates standard base64 that decodes to exactly size bytes. Empty
// strings pass so Required decides on presence.
func Base64Key(size int) validation.Rule {
	return validation.By(func(value any) error {
		s, ok := value.(string)
		if !ok {
			return validation.NewError("validation_base64_type", "must be a string")
		}
		if s == "" {
			return nil
		}
		decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(s))
		if err != nil {
			return validation.NewError("validation_base64", "must be valid base64-encoded data")
		}
		if len(decoded) != size {
			return validation.NewError("validation_base64_size", fmt.Sprintf("must decode to %d bytes", size))
		}
		return nil
	})
}
