package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/sitecompliance-backend/pkg/enums"
)

// WasteHandler is a licensed waste transporter or receiving facility. Their
// operating licences gate whether a site may ship waste to them.
type WasteHandler struct {
	ID                uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Role              enums.WasteHandlerRole `gorm:"column:role;not null"`
	Name              string                 `gorm:"column:name;not null"`
	FacilityType      string                 `gorm:"column:facility_type"`
	LicenseNumber     string                 `gorm:"column:license_number;not null"`
	LicenseIssuedAt   *time.Time             `gorm:"column:license_issued_at;type:date"`
	LicenseExpiresAt  *time.Time             `gorm:"column:license_expires_at;type:date"`
	ContactEmail      string                 `gorm:"column:contact_email"`
	ContactPhone      string                 `gorm:"column:contact_phone"`
	Status            enums.ComplianceStatus `gorm:"column:status;not null;default:'indeterminate'"`
	StatusEvaluatedAt *time.Time             `gorm:"column:status_evaluated_at"`
	CreatedAt         time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}
