package domain

import (
	"time"
)

// Anonymization reasons recorded in metadata.
const (
	ReasonErasure   = "erasure"
	ReasonRetention = "retention"
)

// AnonymizeFilter selects audit rows to anonymize. A row is eligible when it still
// carries identity (a non-sentinel actor, an IP address or a user resource id)
// and matches UserID or is older than CreatedBefore. Exactly one of the two is set.
type AnonymizeFilter struct {
	UserID        *string
	CreatedBefore *time.Time
	AnonymizedAt  time.Time
	Reason        string
}

// AnonymizationPolicy is the one definition of which audit rows lose their
// identity fields, used by both user erasure and the retention job.
type AnonymizationPolicy struct {
	// RetentionDays is how long identity is kept on audit rows. Zero or less
	// disables retention-based anonymization.
	RetentionDays int
}

// ForUser returns the filter for erasing userID from the audit trail.
func (p AnonymizationPolicy) ForUser(userID string, now time.Time) AnonymizeFilter {
	return AnonymizeFilter{
		UserID:       &userID,
		AnonymizedAt: now.UTC(),
		Reason:       ReasonErasure,
	}
}

// ForRetention returns the filter for rows past the retention window.
func (p AnonymizationPolicy) ForRetention(now time.Time) (AnonymizeFilter, error) {
	if p.RetentionDays <= 0 {
		return AnonymizeFilter{}, ErrRetentionDisabled
	}

	cutoff := now.UTC().AddDate(0, 0, -p.RetentionDays)
	return AnonymizeFilter{
		CreatedBefore: &cutoff,
		AnonymizedAt:  now.UTC(),
		Reason:        ReasonRetention,
	}, nil
}

// Matches applies the filter to an in-memory entry. It mirrors the SQL predicate
// used by the repositories.
func (f AnonymizeFilter) Matches(a *AuditLog) bool {
	if !carriesIdentity(a) {
		return false
	}
	if f.UserID != nil {
		return a.References(*f.UserID)
	}
	if f.CreatedBefore != nil {
		return a.CreatedAt.Before(*f.CreatedBefore)
	}
	return false
}

func carriesIdentity(a *AuditLog) bool {
	if a.IPAddress != nil {
		return true
	}
	if a.ActorID != nil && *a.ActorID != AnonymizedIdentity {
		return true
	}
	return a.ResourceType == ResourceUser && a.ResourceID != nil && *a.ResourceID != AnonymizedIdentity
}

// ListFilter narrows an audit log listing. Nil fields are not applied. Time
// bounds are inclusive.
type ListFilter struct {
	Offset        int
	Limit         int
	UserID        *string
	Action        *Action
	ResourceType  *ResourceType
	CreatedAtFrom *time.Time
	CreatedAtTo   *time.Time
}
