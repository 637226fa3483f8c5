package domain

import (
	validation "github.com/jellydator/validation"

	"github.com/heirclark/dataguard/internal/errors"
	customValidation "github.com/heirclark/dataguard/internal/validation"
)

// ErrBackfillTargetInvalid indicates a backfill target that fails validation.
var ErrBackfillTargetInvalid = errors.Wrap(errors.ErrInvalidInput, "invalid backfill target")

// BackfillTarget names one encrypted column and the legacy plaintext column it
// is migrated from. A row still needs migration while its envelope column is NULL.
type BackfillTarget struct {
	Table           string
	IDColumn        string
	EnvelopeColumn  string
	PlaintextColumn string
	Context         FieldContext
}

// Validate checks that every identifier is safe to interpolate into SQL.
func (t BackfillTarget) Validate() error {
	err := validation.ValidateStruct(&t,
		validation.Field(&t.Table, validation.Required, customValidation.SQLIdentifier),
		validation.Field(&t.IDColumn, validation.Required, customValidation.SQLIdentifier),
		validation.Field(&t.EnvelopeColumn, validation.Required, customValidation.SQLIdentifier),
		validation.Field(&t.PlaintextColumn, validation.Required, customValidation.SQLIdentifier),
		validation.Field(&t.Context, validation.By(func(any) error { return t.Context.Validate() })),
	)
	if err != nil {
		return errors.Wrap(ErrBackfillTargetInvalid, err.Error())
	}
	return nil
}

// BackfillRow is one row awaiting encryption.
type BackfillRow struct {
	ID        string
	Plaintext string
}

// BackfillResult summarizes a backfill run.
type BackfillResult struct {
	Scanned   int64
	Encrypted int64

	// Skipped counts rows whose plaintext already parses as an envelope or that
	// changed between read and write.
	Skipped int64
	DryRun  bool
}
