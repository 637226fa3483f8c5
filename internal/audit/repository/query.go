// Package repository implements audit log persistence for PostgreSQL and MySQL.
package repository

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	auditDomain "github.com/heirclark/dataguard/internal/audit/domain"
	apperrors "github.com/heirclark/dataguard/internal/errors"
)

// auditLogColumns is the column order used by every insert and select.
const auditLogColumns = `id, correlation_id, actor_id, action, resource_type, resource_id, ` +
	`old_state_hash, new_state_hash, ip_address, metadata, created_at, duration_ms, error_message`

const auditLogColumnCount = 13

var errUnscopedAnonymize = apperrors.Wrap(
	apperrors.ErrInvalidInput,
	"anonymize filter requires a user id or a cutoff",
)

// sqlArgs collects positional arguments and renders the placeholder for each one.
type sqlArgs struct {
	values   []any
	numbered bool
}

func (a *sqlArgs) add(v any) string {
	a.values = append(a.values, v)
	if a.numbered {
		return "$" + strconv.Itoa(len(a.values))
	}
	return "?"
}

// userScope matches rows where userID is the actor or the user resource.
func userScope(userID string, args *sqlArgs) string {
	return "(actor_id = " + args.add(userID) +
		" OR (resource_type = " + args.add(string(auditDomain.ResourceUser)) +
		" AND resource_id = " + args.add(userID) + "))"
}

// identityPredicate matches rows that still carry identity. It is the SQL form of
// AnonymizeFilter.Matches and makes anonymization idempotent.
func identityPredicate(args *sqlArgs) string {
	return "(ip_address IS NOT NULL" +
		" OR (actor_id IS NOT NULL AND actor_id <> " + args.add(auditDomain.AnonymizedIdentity) + ")" +
		" OR (resource_type = " + args.add(string(auditDomain.ResourceUser)) +
		" AND resource_id IS NOT NULL AND resource_id <> " + args.add(auditDomain.AnonymizedIdentity) + "))"
}

func anonymizeWhere(filter auditDomain.AnonymizeFilter, args *sqlArgs) (string, error) {
	conditions := []string{identityPredicate(args)}

	switch {
	case filter.UserID != nil:
		conditions = append(conditions, userScope(*filter.UserID, args))
	case filter.CreatedBefore != nil:
		conditions = append(conditions, "created_at < "+args.add(*filter.CreatedBefore))
	default:
		return "", errUnscopedAnonymize
	}

	return " WHERE " + strings.Join(conditions, " AND "), nil
}

func listWhere(filter auditDomain.ListFilter, args *sqlArgs) string {
	var conditions []string

	if filter.UserID != nil {
		conditions = append(conditions, userScope(*filter.UserID, args))
	}
	if filter.Action != nil {
		conditions = append(conditions, "action = "+args.add(string(*filter.Action)))
	}
	if filter.ResourceType != nil {
		conditions = append(conditions, "resource_type = "+args.add(string(*filter.ResourceType)))
	}
	if filter.CreatedAtFrom != nil {
		conditions = append(conditions, "created_at >= "+args.add(*filter.CreatedAtFrom))
	}
	if filter.CreatedAtTo != nil {
		conditions = append(conditions, "created_at <= "+args.add(*filter.CreatedAtTo))
	}

	if len(conditions) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(conditions, " AND ")
}

// marshalMetadata returns nil for nil metadata so it is stored as NULL.
func marshalMetadata(metadata map[string]any) (any, error) {
	if metadata == nil {
		return nil, nil
	}
	b, err := json.Marshal(metadata)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal audit log metadata")
	}
	return string(b), nil
}

func unmarshalMetadata(raw []byte, auditLog *auditDomain.AuditLog) error {
	if raw == nil {
		return nil
	}
	if err := json.Unmarshal(raw, &auditLog.Metadata); err != nil {
		return apperrors.Wrap(err, "failed to unmarshal audit log metadata")
	}
	return nil
}

func anonymizedAt(filter auditDomain.AnonymizeFilter) string {
	return filter.AnonymizedAt.UTC().Format(time.RFC3339)
}
