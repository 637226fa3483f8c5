// Package repository implements encryption backfill persistence for PostgreSQL and
// MySQL. Identifiers come from a validated cryptoDomain.BackfillTarget; values
// are always bound as parameters.
package repository

import (
	"context"
	"database/sql"
	"fmt"

	cryptoDomain "github.com/heirclark/dataguard/internal/crypto/domain"
	"github.com/heirclark/dataguard/internal/crypto/usecase"
	"github.com/heirclark/dataguard/internal/database"
	apperrors "github.com/heirclark/dataguard/internal/errors"
)

// placeholders renders the n-th bind parameter for a dialect.
type placeholders func(n int) string

func dollar(n int) string { return fmt.Sprintf("$%d", n) }

func question(int) string { return "?" }

// PostgreSQLBackfillRepository implements backfill persistence for PostgreSQL.
type PostgreSQLBackfillRepository struct {
	db *sql.DB
}

// FetchPending returns up to limit rows after afterID whose envelope column is
// NULL and whose plaintext column is set, ordered by id.
func (p *PostgreSQLBackfillRepository) FetchPending(
	ctx context.Context,
	target cryptoDomain.BackfillTarget,
	afterID string,
	limit int,
) ([]cryptoDomain.BackfillRow, error) {
	return fetchPending(ctx, database.GetTx(ctx, p.db), dollar, target, afterID, limit)
}

// StoreEnvelope writes envelope for the row unless another writer already did.
func (p *PostgreSQLBackfillRepository) StoreEnvelope(
	ctx context.Context,
	target cryptoDomain.BackfillTarget,
	id, envelope string,
	clearPlaintext bool,
) (bool, error) {
	return storeEnvelope(ctx, database.GetTx(ctx, p.db), dollar, target, id, envelope, clearPlaintext)
}

// NewPostgreSQLBackfillRepository creates a new PostgreSQL backfill repository.
func NewPostgreSQLBackfillRepository(db *sql.DB) *PostgreSQLBackfillRepository {
	return &PostgreSQLBackfillRepository{db: db}
}

// MySQLBackfillRepository implements backfill persistence for MySQL.
type MySQLBackfillRepository struct {
	db *sql.DB
}

// FetchPending returns up to limit rows after afterID whose envelope column is
// NULL and whose plaintext column is set, ordered by id.
func (m *MySQLBackfillRepository) FetchPending(
	ctx context.Context,
	target cryptoDomain.BackfillTarget,
	afterID string,
	limit int,
) ([]cryptoDomain.BackfillRow, error) {
	return fetchPending(ctx, database.GetTx(ctx, m.db), question, target, afterID, limit)
}

// StoreEnvelope writes envelope for the row unless another writer already did.
func (m *MySQLBackfillRepository) StoreEnvelope(
	ctx context.Context,
	target cryptoDomain.BackfillTarget,
	id, envelope string,
	clearPlaintext bool,
) (bool, error) {
	return storeEnvelope(ctx, database.GetTx(ctx, m.db), question, target, id, envelope, clearPlaintext)
}

// NewMySQLBackfillRepository creates a new MySQL backfill repository.
func NewMySQLBackfillRepository(db *sql.DB) *MySQLBackfillRepository {
	return &MySQLBackfillRepository{db: db}
}

func fetchPending(
	ctx context.Context,
	querier database.Querier,
	ph placeholders,
	target cryptoDomain.BackfillTarget,
	afterID string,
	limit int,
) ([]cryptoDomain.BackfillRow, error) {
	query := `SELECT ` + target.IDColumn + `, ` + target.PlaintextColumn +
		` FROM ` + target.Table +
		` WHERE ` + target.EnvelopeColumn + ` IS NULL AND ` + target.PlaintextColumn + ` IS NOT NULL`

	args := make([]any, 0, 2)
	if afterID != "" {
		args = append(args, afterID)
		query += ` AND ` + target.IDColumn + ` > ` + ph(len(args))
	}
	args = append(args, limit)
	query += ` ORDER BY ` + target.IDColumn + ` LIMIT ` + ph(len(args))

	rows, err := querier.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Wrapf(err, "failed to read pending rows from %s", target.Table)
	}
	defer func() {
		_ = rows.Close()
	}()

	pending := make([]cryptoDomain.BackfillRow, 0, limit)
	for rows.Next() {
		var row cryptoDomain.BackfillRow
		if err := rows.Scan(&row.ID, &row.Plaintext); err != nil {
			return nil, apperrors.Wrapf(err, "failed to scan %s row", target.Table)
		}
		pending = append(pending, row)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrapf(err, "failed to iterate %s rows", target.Table)
	}

	return pending, nil
}

func storeEnvelope(
	ctx context.Context,
	querier database.Querier,
	ph placeholders,
	target cryptoDomain.BackfillTarget,
	id, envelope string,
	clearPlaintext bool,
) (bool, error) {
	query := `UPDATE ` + target.Table + ` SET ` + target.EnvelopeColumn + ` = ` + ph(1)
	if clearPlaintext {
		query += `, ` + target.PlaintextColumn + ` = NULL`
	}
	query += ` WHERE ` + target.IDColumn + ` = ` + ph(2) + ` AND ` + target.EnvelopeColumn + ` IS NULL`

	result, err := querier.ExecContext(ctx, query, envelope, id)
	if err != nil {
		return false, apperrors.Wrapf(err, "failed to store envelope in %s", target.Table)
	}

	count, err := result.RowsAffected()
	if err != nil {
		return false, apperrors.Wrap(err, "failed to get affected rows")
	}
	return count == 1, nil
}

// NewBackfillRepository returns the backfill repository for driver.
func NewBackfillRepository(driver string, db *sql.DB) usecase.BackfillRepository {
	if database.IsPostgres(driver) {
		return NewPostgreSQLBackfillRepository(db)
	}
	return NewMySQLBackfillRepository(db)
}
