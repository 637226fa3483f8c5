// Package usecase implements the encryption backfill that migrates legacy
// plaintext columns to envelopes.
package usecase

import (
	"context"

	cryptoDomain "github.com/heirclark/dataguard/internal/crypto/domain"
)

// BackfillRepository reads rows awaiting encryption and stores their envelopes.
// Implementations must support transaction-aware operations via context propagation.
type BackfillRepository interface {
	// FetchPending returns up to limit rows with id greater than afterID (all rows
	// when afterID is empty) whose envelope column is NULL and plaintext column is
	// set, ordered by id.
	FetchPending(
		ctx context.Context,
		target cryptoDomain.BackfillTarget,
		afterID string,
		limit int,
	) ([]cryptoDomain.BackfillRow, error)

	// StoreEnvelope sets the envelope column of row id if it is still NULL,
	// optionally clearing the plaintext column. It reports whether the row changed.
	StoreEnvelope(
		ctx context.Context,
		target cryptoDomain.BackfillTarget,
		id, envelope string,
		clearPlaintext bool,
	) (bool, error)
}

// BackfillInput configures one backfill run.
type BackfillInput struct {
	Target    cryptoDomain.BackfillTarget
	BatchSize int

	// ClearPlaintext nulls the legacy column in the same statement that stores
	// the envelope.
	ClearPlaintext bool

	// DryRun counts pending rows without writing.
	DryRun bool
}

// BackfillUseCase migrates plaintext columns to envelopes.
type BackfillUseCase interface {
	// Run encrypts every pending row of the target in batches. A row is pending
	// while its envelope column is NULL. Each batch commits in its own
	// transaction, so an interrupted run resumes after the last committed batch.
	Run(ctx context.Context, input BackfillInput) (*cryptoDomain.BackfillResult, error)
}
