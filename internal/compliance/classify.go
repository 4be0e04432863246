package compliance

import (
	"time"

	"github.com/angelmondragon/sitecompliance-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/sitecompliance-backend/pkg/errors"
)

// Classify derives the lifecycle status of a dated artifact. Rules apply in
// order: expired, expiring soon, pending, indeterminate, active. Missing dates
// never fail; they yield INDETERMINATE.
func (e *Engine) Classify(issuedAt, expiresAt *time.Time, now time.Time) enums.ComplianceStatus {
	today := e.Today(now)
	if expiresAt != nil {
		expires := calendarDay(*expiresAt)
		if today.After(expires) {
			return enums.ComplianceStatusExpired
		}
		if expires.Sub(today) <= e.warningWindow {
			return enums.ComplianceStatusExpiringSoon
		}
	}
	if issuedAt != nil && today.Before(calendarDay(*issuedAt)) {
		return enums.ComplianceStatusPending
	}
	if issuedAt == nil && expiresAt == nil {
		return enums.ComplianceStatusIndeterminate
	}
	return enums.ComplianceStatusActive
}

// DaysUntil reports the whole calendar days from now until expiresAt. Negative
// values mean the date has passed; nil means there is no date.
func (e *Engine) DaysUntil(expiresAt *time.Time, now time.Time) *int {
	if expiresAt == nil {
		return nil
	}
	days := daysBetween(e.Today(now), calendarDay(*expiresAt))
	return &days
}

// ValidateDateRange rejects an expiry earlier than the issue date.
func ValidateDateRange(issuedAt, expiresAt *time.Time) error {
	if issuedAt == nil || expiresAt == nil {
		return nil
	}
	if calendarDay(*expiresAt).Before(calendarDay(*issuedAt)) {
		return pkgerrors.New(pkgerrors.CodeValidation, "expires_at must not be before issued_at").
			WithDetails(map[string]any{
				"issued_at":  issuedAt.Format(time.DateOnly),
				"expires_at": expiresAt.Format(time.DateOnly),
			})
	}
	return nil
}
