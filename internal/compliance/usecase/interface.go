// Package usecase implements the compliance workflows: export of everything
// stored for a user, and atomic erasure of it.
package usecase

import (
	"context"

	complianceDomain "github.com/heirclark/dataguard/internal/compliance/domain"
)

// Row is one user row read for export. Values are keyed by column name; a nil
// value is SQL NULL.
type Row map[string]*string

// UserDataRepository reads and deletes the rows of one registry table for a user.
// Implementations must support transaction-aware operations via context propagation.
type UserDataRepository interface {
	// FetchRows returns the table's SelectColumns for every row owned by userID,
	// ordered by id.
	FetchRows(ctx context.Context, table complianceDomain.TableSpec, userID string) ([]Row, error)

	// DeleteRows deletes every row owned by userID and returns the count.
	DeleteRows(ctx context.Context, table complianceDomain.TableSpec, userID string) (int64, error)
}

// AuditScrubber controls audit entries that are still waiting to be persisted.
// ScrubUser holds the user's entries back. CommitScrub anonymizes and releases
// them after the erasure commits. ReleaseUser returns them unchanged after a
// rollback.
type AuditScrubber interface {
	ScrubUser(userID string) int
	CommitScrub(userID string) int
	ReleaseUser(userID string)
}

// ComplianceUseCase defines the two compliance entry points.
type ComplianceUseCase interface {
	// Export returns every in-scope record for the user with encrypted fields
	// decrypted. A field that cannot be decrypted is reported in the document and
	// does not fail the export. Export is read-only.
	Export(ctx context.Context, req complianceDomain.Request) (*complianceDomain.ExportDocument, error)

	// Erase deletes every in-scope row for the user and anonymizes the user's audit
	// history in one transaction, holding the per-user lock.
	Erase(ctx context.Context, req complianceDomain.Request) (*complianceDomain.ErasureManifest, error)
}
