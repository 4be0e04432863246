package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/sitecompliance-backend/pkg/enums"
)

// ArtifactStatusEvent reports a license, AVCB or waste handler licence that is
// expiring or expired. ProjectID is uuid.Nil for waste handlers.
type ArtifactStatusEvent struct {
	Kind            enums.EntityKind       `json:"kind"`
	ArtifactID      uuid.UUID              `json:"artifact_id"`
	ProjectID       uuid.UUID              `json:"project_id"`
	Label           string                 `json:"label"`
	Status          enums.ComplianceStatus `json:"status"`
	PreviousStatus  enums.ComplianceStatus `json:"previous_status,omitempty"`
	ExpiresAt       *time.Time             `json:"expires_at,omitempty"`
	DaysUntilExpiry *int                   `json:"days_until_expiry,omitempty"`
	Message         string                 `json:"message"`
}

// ObligationOverdueEvent is raised once per missed occurrence.
type ObligationOverdueEvent struct {
	ConditionalID uuid.UUID       `json:"conditional_id"`
	LicenseID     uuid.UUID       `json:"license_id"`
	Description   string          `json:"description"`
	Frequency     enums.Frequency `json:"frequency"`
	DueDate       time.Time       `json:"due_date"`
	DaysOverdue   int             `json:"days_overdue"`
	Message       string          `json:"message"`
}

// ObligationAdvancedEvent records a periodic obligation moving to its next due date.
type ObligationAdvancedEvent struct {
	ConditionalID   uuid.UUID       `json:"conditional_id"`
	LicenseID       uuid.UUID       `json:"license_id"`
	Frequency       enums.Frequency `json:"frequency"`
	PreviousDueDate time.Time       `json:"previous_due_date"`
	DueDate         time.Time       `json:"due_date"`
	Skipped         int             `json:"skipped"`
	Message         string          `json:"message"`
}

// ReminderDueEvent asks notification consumers to alert about a deadline.
type ReminderDueEvent struct {
	CalendarEventID uuid.UUID        `json:"calendar_event_id"`
	RelatedType     enums.EntityKind `json:"related_type"`
	RelatedID       uuid.UUID        `json:"related_id"`
	Title           string           `json:"title"`
	Deadline        time.Time        `json:"deadline"`
	LeadDays        int              `json:"lead_days"`
	RemindAt        time.Time        `json:"remind_at"`
	Message         string           `json:"message"`
}
