package domain

import (
	"github.com/heirclark/dataguard/internal/errors"
)

var (
	// ErrRetentionDisabled indicates AUDIT_RETENTION_DAYS is zero or negative.
	ErrRetentionDisabled = errors.Wrap(errors.ErrInvalidInput, "audit retention is disabled")

	// ErrInvalidTimeRange indicates created_at_from is after created_at_to.
	ErrInvalidTimeRange = errors.Wrap(errors.ErrInvalidInput, "created_at_from must not be after created_at_to")

	// ErrFlushFailed indicates a batch of audit entries could not be persisted.
	// The entries stay queued.
	ErrFlushFailed = errors.Wrap(errors.ErrPersistence, "audit flush failed")
)
