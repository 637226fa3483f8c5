package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	complianceDomain "github.com/heirclark/dataguard/internal/compliance/domain"
	"github.com/heirclark/dataguard/internal/database"
)

func weightTable(t *testing.T) complianceDomain.TableSpec {
	t.Helper()
	table, _, err := complianceDomain.DefaultRegistry().Field("weight_logs", "weight_encrypted")
	require.NoError(t, err)
	return table
}

func TestPostgreSQLUserDataRepository_FetchRows(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	repo := NewPostgreSQLUserDataRepository(db)
	loggedAt := time.Date(2026, 1, 5, 7, 30, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(
		"SELECT id, logged_at, weight_encrypted, weight_kg FROM weight_logs WHERE user_id = $1 ORDER BY id",
	)).
		WithArgs("user-42").
		WillReturnRows(sqlmock.NewRows([]string{"id", "logged_at", "weight_encrypted", "weight_kg"}).
			AddRow(int64(1), loggedAt, "eyJpdiI6...", nil).
			AddRow(int64(2), loggedAt, nil, "81.4"))

	rows, err := repo.FetchRows(context.Background(), weightTable(t), "user-42")
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "1", *rows[0]["id"])
	assert.Equal(t, loggedAt.Format(time.RFC3339Nano), *rows[0]["logged_at"])
	assert.Equal(t, "eyJpdiI6...", *rows[0]["weight_encrypted"])
	assert.Contains(t, rows[0], "weight_kg")
	assert.Nil(t, rows[0]["weight_kg"])
	assert.Nil(t, rows[1]["weight_encrypted"])
	assert.Equal(t, "81.4", *rows[1]["weight_kg"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgreSQLUserDataRepository_FetchRows_Error(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	dbErr := errors.New("relation does not exist")
	mock.ExpectQuery("FROM weight_logs").WillReturnError(dbErr)

	_, err = NewPostgreSQLUserDataRepository(db).FetchRows(context.Background(), weightTable(t), "user-42")
	assert.ErrorIs(t, err, dbErr)
	assert.Contains(t, err.Error(), "failed to read weight_logs")
}

func TestPostgreSQLUserDataRepository_DeleteRows(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	repo := NewPostgreSQLUserDataRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM weight_logs WHERE user_id = $1")).
		WithArgs("user-42").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	var count int64
	err = database.NewTxManager(db).WithTx(context.Background(), func(ctx context.Context) error {
		var err error
		count, err = repo.DeleteRows(ctx, weightTable(t), "user-42")
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLUserDataRepository(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	repo := NewMySQLUserDataRepository(db)
	ctx := context.Background()

	mock.ExpectQuery(regexp.QuoteMeta("FROM weight_logs WHERE user_id = ? ORDER BY id")).
		WithArgs("user-42").
		WillReturnRows(sqlmock.NewRows([]string{"id", "logged_at", "weight_encrypted", "weight_kg"}))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM weight_logs WHERE user_id = ?")).
		WithArgs("user-42").
		WillReturnResult(sqlmock.NewResult(0, 0))

	rows, err := repo.FetchRows(ctx, weightTable(t), "user-42")
	require.NoError(t, err)
	assert.Empty(t, rows)

	count, err := repo.DeleteRows(ctx, weightTable(t), "user-42")
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewUserDataRepository(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	assert.IsType(t, &PostgreSQLUserDataRepository{}, NewUserDataRepository(database.DriverPgx, db))
	assert.IsType(t, &MySQLUserDataRepository{}, NewUserDataRepository(database.DriverMySQL, db))
}
