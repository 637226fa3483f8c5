package domain

import (
	"fmt"

	validation "github.com/jellydator/validation"

	cryptoDomain "github.com/heirclark/dataguard/internal/crypto/domain"
	"github.com/heirclark/dataguard/internal/errors"
	customValidation "github.com/heirclark/dataguard/internal/validation"
)

// FieldSpec describes one encrypted column. PlaintextColumn, when set, is the
// legacy column the value lived in before it was migrated to an envelope.
type FieldSpec struct {
	Column          string
	Context         cryptoDomain.FieldContext
	PlaintextColumn string
}

// TableSpec describes one table holding data scoped to a user.
type TableSpec struct {
	// Domain is the key used in export documents and erasure manifests.
	Domain     string
	Table      string
	IDColumn   string
	UserColumn string

	// Columns are exported as stored.
	Columns []string
	Fields  []FieldSpec
}

// SelectColumns returns every column the export reads, id first, without duplicates.
func (t TableSpec) SelectColumns() []string {
	seen := make(map[string]struct{})
	columns := make([]string, 0, 1+len(t.Columns)+2*len(t.Fields))

	add := func(c string) {
		if c == "" {
			return
		}
		if _, ok := seen[c]; ok {
			return
		}
		seen[c] = struct{}{}
		columns = append(columns, c)
	}

	add(t.IDColumn)
	for _, c := range t.Columns {
		add(c)
	}
	for _, f := range t.Fields {
		add(f.Column)
		add(f.PlaintextColumn)
	}
	return columns
}

// Validate checks identifiers and field contexts.
func (t TableSpec) Validate() error {
	return validation.ValidateStruct(&t,
		validation.Field(&t.Domain, validation.Required, customValidation.SQLIdentifier),
		validation.Field(&t.Table, validation.Required, customValidation.SQLIdentifier),
		validation.Field(&t.IDColumn, validation.Required, customValidation.SQLIdentifier),
		validation.Field(&t.UserColumn, validation.Required, customValidation.SQLIdentifier),
		validation.Field(&t.Columns, validation.Each(validation.Required, customValidation.SQLIdentifier)),
		validation.Field(&t.Fields, validation.Each(validation.By(func(value any) error {
			f, ok := value.(FieldSpec)
			if !ok {
				return validation.NewError("validation_field_spec", "must be a field spec")
			}
			return validation.ValidateStruct(&f,
				validation.Field(&f.Column, validation.Required, customValidation.SQLIdentifier),
				validation.Field(&f.PlaintextColumn, customValidation.SQLIdentifier),
				validation.Field(&f.Context, validation.By(func(any) error { return f.Context.Validate() })),
			)
		}))),
	)
}

// Registry lists every in-scope table. Erasure deletes in registry order, so
// child tables come before the tables they reference.
type Registry []TableSpec

// Validate checks every table and rejects duplicate domains or tables.
func (r Registry) Validate() error {
	if len(r) == 0 {
		return errors.Wrap(ErrRegistryInvalid, "no tables")
	}

	domains := make(map[string]struct{}, len(r))
	tables := make(map[string]struct{}, len(r))
	for _, t := range r {
		if err := t.Validate(); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrRegistryInvalid, t.Table, err)
		}
		if _, ok := domains[t.Domain]; ok {
			return errors.Wrapf(ErrRegistryInvalid, "duplicate domain %q", t.Domain)
		}
		if _, ok := tables[t.Table]; ok {
			return errors.Wrapf(ErrRegistryInvalid, "duplicate table %q", t.Table)
		}
		domains[t.Domain] = struct{}{}
		tables[t.Table] = struct{}{}
	}
	return nil
}

// Field returns the table and field spec for an encrypted column.
func (r Registry) Field(table, column string) (TableSpec, FieldSpec, error) {
	for _, t := range r {
		if t.Table != table {
			continue
		}
		for _, f := range t.Fields {
			if f.Column == column {
				return t, f, nil
			}
		}
		return TableSpec{}, FieldSpec{}, errors.Wrapf(errors.ErrNotFound, "encrypted column %s.%s", table, column)
	}
	return TableSpec{}, FieldSpec{}, errors.Wrapf(errors.ErrNotFound, "table %s", table)
}

// DefaultRegistry returns the tables this service exports and erases.
func DefaultRegistry() Registry {
	return Registry{
		{
			Domain:     "meals",
			Table:      "meals",
			IDColumn:   "id",
			UserColumn: "user_id",
			Columns:    []string{"meal_type", "calories", "logged_at"},
			Fields: []FieldSpec{
				{Column: "notes_encrypted", Context: cryptoDomain.NutritionData, PlaintextColumn: "notes"},
			},
		},
		{
			Domain:     "weight",
			Table:      "weight_logs",
			IDColumn:   "id",
			UserColumn: "user_id",
			Columns:    []string{"logged_at"},
			Fields: []FieldSpec{
				{Column: "weight_encrypted", Context: cryptoDomain.WeightData, PlaintextColumn: "weight_kg"},
			},
		},
		{
			Domain:     "health_metrics",
			Table:      "health_metrics",
			IDColumn:   "id",
			UserColumn: "user_id",
			Columns:    []string{"metric_type", "recorded_at"},
			Fields: []FieldSpec{
				{Column: "payload_encrypted", Context: cryptoDomain.HealthMetrics},
			},
		},
		{
			Domain:     "oauth_tokens",
			Table:      "oauth_tokens",
			IDColumn:   "id",
			UserColumn: "user_id",
			Columns:    []string{"provider", "expires_at"},
			Fields: []FieldSpec{
				{Column: "access_token_encrypted", Context: cryptoDomain.OAuthToken},
				{Column: "refresh_token_encrypted", Context: cryptoDomain.RefreshToken},
			},
		},
		{
			Domain:     "hydration",
			Table:      "hydration_logs",
			IDColumn:   "id",
			UserColumn: "user_id",
			Columns:    []string{"amount_ml", "logged_at"},
		},
		{
			Domain:     "habits",
			Table:      "habits",
			IDColumn:   "id",
			UserColumn: "user_id",
			Columns:    []string{"name", "created_at"},
		},
		{
			Domain:     "profile",
			Table:      "user_profiles",
			IDColumn:   "user_id",
			UserColumn: "user_id",
			Columns:    []string{"created_at"},
			Fields: []FieldSpec{
				{Column: "email_encrypted", Context: cryptoDomain.PII},
				{Column: "display_name_encrypted", Context: cryptoDomain.PII},
			},
		},
	}
}
