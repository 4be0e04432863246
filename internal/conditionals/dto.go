package conditionals

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/sitecompliance-backend/pkg/db/models"
	"github.com/angelmondragon/sitecompliance-backend/pkg/enums"
)

type CreateConditionalInput struct {
	LicenseID   uuid.UUID
	Description string
	DueDate     time.Time
	Frequency   enums.Frequency
}

type RecordExecutionInput struct {
	ExecutedBy           string
	ExecutedAt           time.Time
	Outcome              enums.ExecutionOutcome
	EvidenceAttachmentID *uuid.UUID
	Notes                string
	ExpectedVersion      *int64
}

type AdvanceInput struct {
	ExpectedVersion *int64
}

// ConditionalView is a conditional with its obligation status derived at read time.
type ConditionalView struct {
	ID           uuid.UUID              `json:"id"`
	LicenseID    uuid.UUID              `json:"license_id"`
	Description  string                 `json:"description"`
	Frequency    enums.Frequency        `json:"frequency"`
	DueDate      time.Time              `json:"due_date"`
	AnchorDate   time.Time              `json:"anchor_date"`
	Status       enums.ObligationStatus `json:"status"`
	DaysUntilDue int                    `json:"days_until_due"`
	Version      int64                  `json:"version"`
	CreatedAt    time.Time              `json:"created_at"`
	UpdatedAt    time.Time              `json:"updated_at"`
}

// ExecutionView is one entry of the execution log.
type ExecutionView struct {
	ID                   uuid.UUID              `json:"id"`
	ConditionalID        uuid.UUID              `json:"conditional_id"`
	OccurrenceDue        *time.Time             `json:"occurrence_due,omitempty"`
	ExecutedBy           string                 `json:"executed_by"`
	ExecutedAt           time.Time              `json:"executed_at"`
	Outcome              enums.ExecutionOutcome `json:"outcome"`
	EvidenceAttachmentID *uuid.UUID             `json:"evidence_attachment_id,omitempty"`
	Notes                string                 `json:"notes,omitempty"`
	CreatedAt            time.Time              `json:"created_at"`
}

// OccurrenceView describes the current occurrence and what fulfilling it would lead to.
type OccurrenceView struct {
	ConditionalID     uuid.UUID              `json:"conditional_id"`
	DueDate           time.Time              `json:"due_date"`
	CycleStart        *time.Time             `json:"cycle_start,omitempty"`
	Status            enums.ObligationStatus `json:"status"`
	CurrentExecutions []ExecutionView        `json:"current_executions"`
	NextDueDate       *time.Time             `json:"next_due_date,omitempty"`
}

type ExecutionResult struct {
	Execution   ExecutionView   `json:"execution"`
	Conditional ConditionalView `json:"conditional"`
}

type AdvanceResult struct {
	Conditional     ConditionalView `json:"conditional"`
	Advanced        bool            `json:"advanced"`
	PreviousDueDate time.Time       `json:"previous_due_date"`
	// Skipped is the number of occurrences passed over between PreviousDueDate
	// and the new due date. compliance.Occurrence.Skipped instead counts
	// intervals from the anchor.
	Skipped         int             `json:"skipped"`
}

func toExecutionView(m models.ConditionalExecution) ExecutionView {
	return ExecutionView{
		ID:                   m.ID,
		ConditionalID:        m.ConditionalID,
		OccurrenceDue:        m.OccurrenceDue,
		ExecutedBy:           m.ExecutedBy,
		ExecutedAt:           m.ExecutedAt,
		Outcome:              m.Outcome,
		EvidenceAttachmentID: m.EvidenceAttachmentID,
		Notes:                m.Notes,
		CreatedAt:            m.CreatedAt,
	}
}

func toExecutionViews(rows []models.ConditionalExecution) []ExecutionView {
	out := make([]ExecutionView, 0, len(rows))
	for _, row := range rows {
		out = append(out, toExecutionView(row))
	}
	return out
}
