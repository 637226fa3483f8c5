package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrLockOutsideTx is returned when LockUser is called without a transaction in
// the context. The lock lives as long as the transaction, so there is nothing to
// hold it otherwise.
var ErrLockOutsideTx = errors.New("user lock requires a transaction")

// UserLocker serializes writers for one user. The lock is transaction-scoped:
// it is released on commit or rollback. Domain writers take the same lock before
// writing user rows so they never interleave with an erasure.
type UserLocker interface {
	LockUser(ctx context.Context, userID string) error
}

// PostgreSQLUserLocker takes a transaction-level advisory lock keyed by a 64-bit
// hash of the user id.
type PostgreSQLUserLocker struct {
	db *sql.DB
}

// NewPostgreSQLUserLocker creates a new PostgreSQL user locker.
func NewPostgreSQLUserLocker(db *sql.DB) *PostgreSQLUserLocker {
	return &PostgreSQLUserLocker{db: db}
}

// LockUser blocks until the advisory lock for userID is held by the current transaction.
func (l *PostgreSQLUserLocker) LockUser(ctx context.Context, userID string) error {
	if !InTx(ctx) {
		return ErrLockOutsideTx
	}

	querier := GetTx(ctx, l.db)
	if _, err := querier.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, userID); err != nil {
		return fmt.Errorf("failed to lock user: %w", err)
	}
	return nil
}

// MySQLUserLocker upserts the user's row in user_locks, which holds an exclusive
// row lock until the transaction ends.
type MySQLUserLocker struct {
	db *sql.DB
}

// NewMySQLUserLocker creates a new MySQL user locker.
func NewMySQLUserLocker(db *sql.DB) *MySQLUserLocker {
	return &MySQLUserLocker{db: db}
}

// LockUser blocks until the user_locks row for userID is locked by the current transaction.
func (l *MySQLUserLocker) LockUser(ctx context.Context, userID string) error {
	if !InTx(ctx) {
		return ErrLockOutsideTx
	}

	querier := GetTx(ctx, l.db)
	_, err := querier.ExecContext(ctx,
		`INSERT INTO user_locks (user_id, locked_at) VALUES (?, UTC_TIMESTAMP(6))
		 ON DUPLICATE KEY UPDATE locked_at = VALUES(locked_at)`,
		userID,
	)
	if err != nil {
		return fmt.Errorf("failed to lock user: %w", err)
	}
	return nil
}

// NewUserLocker returns the locker for driver.
func NewUserLocker(driver string, db *sql.DB) UserLocker {
	if IsPostgres(driver) {
		return NewPostgreSQLUserLocker(db)
	}
	return NewMySQLUserLocker(db)
}
