package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/sitecompliance-backend/pkg/enums"
)

// Conditional is a recurring (or one-time) obligation attached to a license.
// DueDate always points at the next unfulfilled occurrence; AnchorDate is the
// first scheduled due date and every later occurrence is computed from it.
// Version guards concurrent writers.
type Conditional struct {
	ID                uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	LicenseID         uuid.UUID              `gorm:"column:license_id;type:uuid;not null"`
	Description       string                 `gorm:"column:description;not null"`
	DueDate           time.Time              `gorm:"column:due_date;type:date;not null"`
	AnchorDate        time.Time              `gorm:"column:anchor_date;type:date;not null"`
	Frequency         enums.Frequency        `gorm:"column:frequency;not null"`
	Status            enums.ObligationStatus `gorm:"column:status;not null;default:'pending'"`
	StatusEvaluatedAt *time.Time             `gorm:"column:status_evaluated_at"`
	Version           int64                  `gorm:"column:version;not null;default:1"`
	CreatedAt         time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}

// ConditionalExecution is append-only evidence that an obligation was carried out.
// OccurrenceDue pins the execution to the due date it was recorded against.
type ConditionalExecution struct {
	ID                   uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ConditionalID        uuid.UUID              `gorm:"column:conditional_id;type:uuid;not null"`
	OccurrenceDue        *time.Time             `gorm:"column:occurrence_due;type:date"`
	ExecutedBy           string                 `gorm:"column:executed_by;not null"`
	ExecutedAt           time.Time              `gorm:"column:executed_at;not null"`
	Outcome              enums.ExecutionOutcome `gorm:"column:outcome;not null"`
	EvidenceAttachmentID *uuid.UUID             `gorm:"column:evidence_attachment_id;type:uuid"`
	Notes                string                 `gorm:"column:notes"`
	CreatedAt            time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}
