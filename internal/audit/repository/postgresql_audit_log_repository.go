package repository

import (
	"context"
	"database/sql"
	"strings"

	auditDomain "github.com/heirclark/dataguard/internal/audit/domain"
	"github.com/heirclark/dataguard/internal/database"
	apperrors "github.com/heirclark/dataguard/internal/errors"
)

// PostgreSQLAuditLogRepository implements AuditLog persistence for PostgreSQL.
// Uses native UUID and JSONB types with transaction support via database.GetTx().
type PostgreSQLAuditLogRepository struct {
	db *sql.DB
}

// CreateBatch inserts all audit logs with one multi-row INSERT. Nil metadata is
// stored as NULL. An empty batch is a no-op.
func (p *PostgreSQLAuditLogRepository) CreateBatch(ctx context.Context, auditLogs []*auditDomain.AuditLog) error {
	if len(auditLogs) == 0 {
		return nil
	}

	querier := database.GetTx(ctx, p.db)
	args := &sqlArgs{numbered: true, values: make([]any, 0, len(auditLogs)*auditLogColumnCount)}
	rows := make([]string, 0, len(auditLogs))

	for _, auditLog := range auditLogs {
		metadata, err := marshalMetadata(auditLog.Metadata)
		if err != nil {
			return err
		}

		placeholders := []string{
			args.add(auditLog.ID),
			args.add(auditLog.CorrelationID),
			args.add(auditLog.ActorID),
			args.add(string(auditLog.Action)),
			args.add(string(auditLog.ResourceType)),
			args.add(auditLog.ResourceID),
			args.add(auditLog.OldStateHash),
			args.add(auditLog.NewStateHash),
			args.add(auditLog.IPAddress),
			args.add(metadata),
			args.add(auditLog.CreatedAt),
			args.add(auditLog.DurationMs),
			args.add(auditLog.ErrorMessage),
		}
		rows = append(rows, "("+strings.Join(placeholders, ", ")+")")
	}

	query := `INSERT INTO audit_logs (` + auditLogColumns + `) VALUES ` + strings.Join(rows, ", ")

	if _, err := querier.ExecContext(ctx, query, args.values...); err != nil {
		return apperrors.Wrap(err, "failed to create audit logs")
	}

	return nil
}

// List retrieves audit logs ordered by created_at descending (newest first) with
// pagination and optional filters. Time bounds are inclusive. Returns an empty
// slice if no audit logs match.
func (p *PostgreSQLAuditLogRepository) List(
	ctx context.Context,
	filter auditDomain.ListFilter,
) ([]*auditDomain.AuditLog, error) {
	querier := database.GetTx(ctx, p.db)
	args := &sqlArgs{numbered: true}

	query := `SELECT ` + auditLogColumns + ` FROM audit_logs` + listWhere(filter, args)
	query += " ORDER BY created_at DESC, id DESC LIMIT " + args.add(filter.Limit) + " OFFSET " + args.add(filter.Offset)

	rows, err := querier.QueryContext(ctx, query, args.values...)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list audit logs")
	}
	defer func() {
		_ = rows.Close()
	}()

	auditLogs := make([]*auditDomain.AuditLog, 0)
	for rows.Next() {
		var auditLog auditDomain.AuditLog
		var metadataJSON []byte
		var action, resourceType string

		err := rows.Scan(
			&auditLog.ID,
			&auditLog.CorrelationID,
			&auditLog.ActorID,
			&action,
			&resourceType,
			&auditLog.ResourceID,
			&auditLog.OldStateHash,
			&auditLog.NewStateHash,
			&auditLog.IPAddress,
			&metadataJSON,
			&auditLog.CreatedAt,
			&auditLog.DurationMs,
			&auditLog.ErrorMessage,
		)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan audit log")
		}

		auditLog.Action = auditDomain.Action(action)
		auditLog.ResourceType = auditDomain.ResourceType(resourceType)

		if err := unmarshalMetadata(metadataJSON, &auditLog); err != nil {
			return nil, err
		}

		auditLogs = append(auditLogs, &auditLog)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate audit logs")
	}

	return auditLogs, nil
}

// Anonymize replaces identity fields on matching rows in place. The actor becomes
// the sentinel when set, a user resource id becomes the sentinel, the IP address
// is cleared and metadata is tagged with the time and reason.
func (p *PostgreSQLAuditLogRepository) Anonymize(
	ctx context.Context,
	filter auditDomain.AnonymizeFilter,
) (int64, error) {
	querier := database.GetTx(ctx, p.db)
	args := &sqlArgs{numbered: true}

	query := `UPDATE audit_logs SET ` +
		`actor_id = CASE WHEN actor_id IS NOT NULL THEN ` + args.add(auditDomain.AnonymizedIdentity) + `::text END, ` +
		`resource_id = CASE WHEN resource_type = ` + args.add(string(auditDomain.ResourceUser)) +
		` AND resource_id IS NOT NULL THEN ` + args.add(auditDomain.AnonymizedIdentity) + `::text ELSE resource_id END, ` +
		`ip_address = NULL, ` +
		`error_message = NULL, ` +
		`metadata = COALESCE(metadata, '{}'::jsonb) || jsonb_build_object(` +
		`'anonymized', true, ` +
		`'anonymized_at', ` + args.add(anonymizedAt(filter)) + `::text, ` +
		`'anonymization_reason', ` + args.add(filter.Reason) + `::text)`

	where, err := anonymizeWhere(filter, args)
	if err != nil {
		return 0, err
	}

	result, err := querier.ExecContext(ctx, query+where, args.values...)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to anonymize audit logs")
	}

	count, err := result.RowsAffected()
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to get affected rows")
	}

	return count, nil
}

// CountAnonymizable returns how many rows Anonymize would change for filter.
func (p *PostgreSQLAuditLogRepository) CountAnonymizable(
	ctx context.Context,
	filter auditDomain.AnonymizeFilter,
) (int64, error) {
	querier := database.GetTx(ctx, p.db)
	args := &sqlArgs{numbered: true}

	where, err := anonymizeWhere(filter, args)
	if err != nil {
		return 0, err
	}

	var count int64
	if err := querier.QueryRowContext(ctx, `SELECT COUNT(*) FROM audit_logs`+where, args.values...).Scan(&count); err != nil {
		return 0, apperrors.Wrap(err, "failed to count anonymizable audit logs")
	}

	return count, nil
}

// NewPostgreSQLAuditLogRepository creates a new PostgreSQL AuditLog repository.
func NewPostgreSQLAuditLogRepository(db *sql.DB) *PostgreSQLAuditLogRepository {
	return &PostgreSQLAuditLogRepository{db: db}
}
