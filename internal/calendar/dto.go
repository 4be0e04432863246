package calendar

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/sitecompliance-backend/internal/compliance"
	"github.com/angelmondragon/sitecompliance-backend/pkg/db/models"
)

type EventView struct {
	ID             uuid.UUID        `json:"id"`
	Related        models.EntityRef `json:"related"`
	Title          string           `json:"title"`
	StartAt        time.Time        `json:"start_at"`
	EndAt          time.Time        `json:"end_at"`
	Color          string           `json:"color,omitempty"`
	ReminderDays   []int            `json:"reminder_days"`
	ManualOverride bool             `json:"manual_override"`
	LastRemindedAt *time.Time       `json:"last_reminded_at,omitempty"`
}

type RemindersView struct {
	Event     EventView             `json:"event"`
	Reminders []compliance.Reminder `json:"reminders"`
}

// UpdateEventInput edits an event by hand. Any title, color or reminder change
// pins the event (manual override) unless ManualOverride is explicitly false.
// The deadline always follows the artifact, so start and end are not editable.
type UpdateEventInput struct {
	Title          *string
	Color          *string
	ReminderDays   *[]int
	ManualOverride *bool
}

type SyncResult struct {
	Created   int `json:"created"`
	Updated   int `json:"updated"`
	Removed   int `json:"removed"`
	Unchanged int `json:"unchanged"`
}

type DispatchResult struct {
	Events    int `json:"events"`
	Reminders int `json:"reminders"`
}

func toView(e models.CalendarEvent) EventView {
	days := []int(e.ReminderDays)
	if days == nil {
		days = []int{}
	}
	return EventView{
		ID:             e.ID,
		Related:        e.Ref(),
		Title:          e.Title,
		StartAt:        e.StartAt,
		EndAt:          e.EndAt,
		Color:          e.Color,
		ReminderDays:   days,
		ManualOverride: e.ManualOverride,
		LastRemindedAt: e.LastRemindedAt,
	}
}
