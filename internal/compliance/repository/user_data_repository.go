// Package repository implements registry-driven access to user data tables for
// PostgreSQL and MySQL. Table and column names come only from a validated
// complianceDomain.Registry; user input is always bound as a parameter.
package repository

import (
	"context"
	"database/sql"
	"strings"

	complianceDomain "github.com/heirclark/dataguard/internal/compliance/domain"
	"github.com/heirclark/dataguard/internal/compliance/usecase"
	"github.com/heirclark/dataguard/internal/database"
	apperrors "github.com/heirclark/dataguard/internal/errors"
)

// PostgreSQLUserDataRepository implements user data access for PostgreSQL.
type PostgreSQLUserDataRepository struct {
	db *sql.DB
}

// FetchRows selects the table's export columns for userID, ordered by id.
func (p *PostgreSQLUserDataRepository) FetchRows(
	ctx context.Context,
	table complianceDomain.TableSpec,
	userID string,
) ([]usecase.Row, error) {
	return fetchRows(ctx, database.GetTx(ctx, p.db), table, userID, "$1")
}

// DeleteRows deletes every row of the table owned by userID.
func (p *PostgreSQLUserDataRepository) DeleteRows(
	ctx context.Context,
	table complianceDomain.TableSpec,
	userID string,
) (int64, error) {
	return deleteRows(ctx, database.GetTx(ctx, p.db), table, userID, "$1")
}

// NewPostgreSQLUserDataRepository creates a new PostgreSQL user data repository.
func NewPostgreSQLUserDataRepository(db *sql.DB) *PostgreSQLUserDataRepository {
	return &PostgreSQLUserDataRepository{db: db}
}

// MySQLUserDataRepository implements user data access for MySQL.
type MySQLUserDataRepository struct {
	db *sql.DB
}

// FetchRows selects the table's export columns for userID, ordered by id.
func (m *MySQLUserDataRepository) FetchRows(
	ctx context.Context,
	table complianceDomain.TableSpec,
	userID string,
) ([]usecase.Row, error) {
	return fetchRows(ctx, database.GetTx(ctx, m.db), table, userID, "?")
}

// DeleteRows deletes every row of the table owned by userID.
func (m *MySQLUserDataRepository) DeleteRows(
	ctx context.Context,
	table complianceDomain.TableSpec,
	userID string,
) (int64, error) {
	return deleteRows(ctx, database.GetTx(ctx, m.db), table, userID, "?")
}

// NewMySQLUserDataRepository creates a new MySQL user data repository.
func NewMySQLUserDataRepository(db *sql.DB) *MySQLUserDataRepository {
	return &MySQLUserDataRepository{db: db}
}

func fetchRows(
	ctx context.Context,
	querier database.Querier,
	table complianceDomain.TableSpec,
	userID, placeholder string,
) ([]usecase.Row, error) {
	columns := table.SelectColumns()
	query := `SELECT ` + strings.Join(columns, ", ") +
		` FROM ` + table.Table +
		` WHERE ` + table.UserColumn + ` = ` + placeholder +
		` ORDER BY ` + table.IDColumn

	rows, err := querier.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, apperrors.Wrapf(err, "failed to read %s", table.Table)
	}
	defer func() {
		_ = rows.Close()
	}()

	result := make([]usecase.Row, 0)
	for rows.Next() {
		values := make([]sql.NullString, len(columns))
		dest := make([]any, len(columns))
		for i := range values {
			dest[i] = &values[i]
		}

		if err := rows.Scan(dest...); err != nil {
			return nil, apperrors.Wrapf(err, "failed to scan %s row", table.Table)
		}

		row := make(usecase.Row, len(columns))
		for i, column := range columns {
			if values[i].Valid {
				v := values[i].String
				row[column] = &v
			} else {
				row[column] = nil
			}
		}
		result = append(result, row)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrapf(err, "failed to iterate %s rows", table.Table)
	}

	return result, nil
}

func deleteRows(
	ctx context.Context,
	querier database.Querier,
	table complianceDomain.TableSpec,
	userID, placeholder string,
) (int64, error) {
	query := `DELETE FROM ` + table.Table + ` WHERE ` + table.UserColumn + ` = ` + placeholder

	result, err := querier.ExecContext(ctx, query, userID)
	if err != nil {
		return 0, apperrors.Wrapf(err, "failed to delete from %s", table.Table)
	}

	count, err := result.RowsAffected()
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to get affected rows")
	}

	return count, nil
}

// NewUserDataRepository returns the repository for driver.
func NewUserDataRepository(driver string, db *sql.DB) usecase.UserDataRepository {
	if database.IsPostgres(driver) {
		return NewPostgreSQLUserDataRepository(db)
	}
	return NewMySQLUserDataRepository(db)
}
