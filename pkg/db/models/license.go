package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/sitecompliance-backend/pkg/enums"
	"github.com/angelmondragon/sitecompliance-backend/pkg/types"
)

// License is an environmental or municipal permit issued for a project.
// Status is derived from the dates and is only written by the status refresh job.
type License struct {
	ID                uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProjectID         uuid.UUID              `gorm:"column:project_id;type:uuid;not null"`
	Number            string                 `gorm:"column:number;not null"`
	Issuer            string                 `gorm:"column:issuer"`
	Type              string                 `gorm:"column:type"`
	IssuedAt          *time.Time             `gorm:"column:issued_at;type:date"`
	ExpiresAt         *time.Time             `gorm:"column:expires_at;type:date"`
	Metadata          types.Metadata         `gorm:"column:metadata;type:jsonb;not null;default:'{}'"`
	Status            enums.ComplianceStatus `gorm:"column:status;not null;default:'indeterminate'"`
	StatusEvaluatedAt *time.Time             `gorm:"column:status_evaluated_at"`
	CreatedAt         time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}

// Avcb is a fire department inspection certificate (Auto de Vistoria do Corpo de Bombeiros).
type Avcb struct {
	ID                      uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProjectID               uuid.UUID              `gorm:"column:project_id;type:uuid;not null"`
	LicenseID               *uuid.UUID             `gorm:"column:license_id;type:uuid"`
	PPCINumber              string                 `gorm:"column:ppci_number"`
	IssuedAt                *time.Time             `gorm:"column:issued_at;type:date"`
	ExpiresAt               *time.Time             `gorm:"column:expires_at;type:date"`
	HasCompensatoryMeasures bool                   `gorm:"column:has_compensatory_measures;not null;default:false"`
	Metadata                types.Metadata         `gorm:"column:metadata;type:jsonb;not null;default:'{}'"`
	Status                  enums.ComplianceStatus `gorm:"column:status;not null;default:'indeterminate'"`
	StatusEvaluatedAt       *time.Time             `gorm:"column:status_evaluated_at"`
	CreatedAt               time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt               time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}

// Process tracks the licensing procedure at the issuing agency.
type Process struct {
	ID             uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	LicenseID      uuid.UUID      `gorm:"column:license_id;type:uuid;not null"`
	ProtocolNumber string         `gorm:"column:protocol_number;not null"`
	CurrentStatus  string         `gorm:"column:current_status"`
	Timeline       types.Timeline `gorm:"column:timeline;type:jsonb;not null;default:'[]'"`
	CreatedAt      time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
