package database

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/heirclark/dataguard/internal/errors"
)

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func TestNewTxManager(t *testing.T) {
	db, _ := newMockDB(t)

	txManager := NewTxManager(db)
	assert.NotNil(t, txManager)
	assert.IsType(t, &sqlTxManager{}, txManager)
}

func TestWithTx_Success(t *testing.T) {
	db, mock := newMockDB(t)
	txManager := NewTxManager(db)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM meals").WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()

	err := txManager.WithTx(context.Background(), func(ctx context.Context) error {
		assert.True(t, InTx(ctx))
		assert.IsType(t, &sql.Tx{}, GetTx(ctx, db))

		_, err := GetTx(ctx, db).ExecContext(ctx, "DELETE FROM meals WHERE user_id = $1", "user-42")
		return err
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTx_RollbackOnError(t *testing.T) {
	db, mock := newMockDB(t)
	txManager := NewTxManager(db)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM meals").WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectRollback()

	testError := errors.New("anonymize failed")
	err := txManager.WithTx(context.Background(), func(ctx context.Context) error {
		if _, err := GetTx(ctx, db).ExecContext(ctx, "DELETE FROM meals WHERE user_id = $1", "user-42"); err != nil {
			return err
		}
		return testError
	})

	assert.Equal(t, testError, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTx_RollbackError(t *testing.T) {
	db, mock := newMockDB(t)
	txManager := NewTxManager(db)

	rbErr := errors.New("connection lost")
	mock.ExpectBegin()
	mock.ExpectRollback().WillReturnError(rbErr)

	testError := errors.New("delete failed")
	err := txManager.WithTx(context.Background(), func(ctx context.Context) error {
		return testError
	})

	assert.ErrorIs(t, err, testError)
	assert.ErrorIs(t, err, rbErr)
}

func TestWithTx_BeginError(t *testing.T) {
	db, mock := newMockDB(t)
	txManager := NewTxManager(db)

	beginErr := errors.New("too many connections")
	mock.ExpectBegin().WillReturnError(beginErr)

	called := false
	err := txManager.WithTx(context.Background(), func(ctx context.Context) error {
		called = true
		return nil
	})

	assert.ErrorIs(t, err, beginErr)
	assert.ErrorIs(t, err, apperrors.ErrPersistence)
	assert.False(t, called)
}

func TestWithTx_CommitError(t *testing.T) {
	db, mock := newMockDB(t)
	txManager := NewTxManager(db)

	commitErr := errors.New("could not serialize access")
	mock.ExpectBegin()
	mock.ExpectCommit().WillReturnError(commitErr)

	err := txManager.WithTx(context.Background(), func(ctx context.Context) error {
		return nil
	})

	assert.ErrorIs(t, err, commitErr)
	assert.ErrorIs(t, err, apperrors.ErrPersistence)
}

func TestWithTx_NestedJoinsOuter(t *testing.T) {
	db, mock := newMockDB(t)
	txManager := NewTxManager(db)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM meals").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE audit_logs").WillReturnResult(sqlmock.NewResult(0, 4))
	mock.ExpectCommit()

	err := txManager.WithTx(context.Background(), func(ctx context.Context) error {
		outer := GetTx(ctx, db)
		if _, err := outer.ExecContext(ctx, "DELETE FROM meals WHERE user_id = $1", "user-42"); err != nil {
			return err
		}
		return txManager.WithTx(ctx, func(ctx context.Context) error {
			assert.Same(t, outer, GetTx(ctx, db))
			_, err := GetTx(ctx, db).ExecContext(ctx, "UPDATE audit_logs SET user_id = NULL WHERE user_id = $1", "user-42")
			return err
		})
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTx_RollbackOnPanic(t *testing.T) {
	db, mock := newMockDB(t)
	txManager := NewTxManager(db)

	mock.ExpectBegin()
	mock.ExpectRollback()

	assert.PanicsWithValue(t, "boom", func() {
		_ = txManager.WithTx(context.Background(), func(ctx context.Context) error {
			panic("boom")
		})
	})
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetTx_WithoutTransaction(t *testing.T) {
	db, _ := newMockDB(t)

	ctx := context.Background()
	assert.False(t, InTx(ctx))
	assert.Equal(t, db, GetTx(ctx, db))
}
