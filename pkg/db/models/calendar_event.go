package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/sitecompliance-backend/pkg/enums"
	"github.com/angelmondragon/sitecompliance-backend/pkg/types"
)

// EntityRef is a tagged pointer to any owning record.
type EntityRef struct {
	Kind enums.EntityKind `json:"kind"`
	ID   uuid.UUID        `json:"id"`
}

// CalendarEvent marks a dated artifact's deadline; ReminderDays lists the
// lead days at which reminders fire. ManualOverride stops regeneration from
// touching title and reminder days.
type CalendarEvent struct {
	ID             uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	RelatedType    enums.EntityKind `gorm:"column:related_type;not null"`
	RelatedID      uuid.UUID        `gorm:"column:related_id;type:uuid;not null"`
	Title          string           `gorm:"column:title;not null"`
	StartAt        time.Time        `gorm:"column:start_at;not null"`
	EndAt          time.Time        `gorm:"column:end_at;not null"`
	Color          string           `gorm:"column:color"`
	ReminderDays   types.DaySet     `gorm:"column:reminder_days;type:jsonb;not null;default:'[]'"`
	ManualOverride bool             `gorm:"column:manual_override;not null;default:false"`
	LastRemindedAt *time.Time       `gorm:"column:last_reminded_at"`
	CreatedAt      time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

func (e CalendarEvent) Ref() EntityRef {
	return EntityRef{Kind: e.RelatedType, ID: e.RelatedID}
}

// Attachment is a stored file owned by any entity kind.
type Attachment struct {
	ID             uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	AttachableType enums.EntityKind `gorm:"column:attachable_type;not null"`
	AttachableID   uuid.UUID        `gorm:"column:attachable_id;type:uuid;not null"`
	Filename       string           `gorm:"column:filename;not null"`
	Path           string           `gorm:"column:path;not null"`
	Mime           string           `gorm:"column:mime;not null"`
	Size           int64            `gorm:"column:size;not null"`
	UploadedBy     string           `gorm:"column:uploaded_by;not null"`
	CreatedAt      time.Time        `gorm:"column:created_at;autoCreateTime"`
}

func (a Attachment) Owner() EntityRef {
	return EntityRef{Kind: a.AttachableType, ID: a.AttachableID}
}
