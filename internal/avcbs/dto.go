package avcbs

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/sitecompliance-backend/pkg/db/models"
	"github.com/angelmondragon/sitecompliance-backend/pkg/enums"
	"github.com/angelmondragon/sitecompliance-backend/pkg/types"
)

type CreateAvcbInput struct {
	ProjectID               uuid.UUID
	LicenseID               *uuid.UUID
	PPCINumber              string
	IssuedAt                *time.Time
	ExpiresAt               *time.Time
	HasCompensatoryMeasures bool
	Metadata                types.Metadata
}

type UpdateAvcbInput struct {
	LicenseID               *uuid.UUID
	ClearLicense            bool
	PPCINumber              *string
	IssuedAt                *time.Time
	ExpiresAt               *time.Time
	ClearIssuedAt           bool
	ClearExpiresAt          bool
	HasCompensatoryMeasures *bool
	Metadata                types.Metadata
}

type ListParams struct {
	ProjectID          *uuid.UUID
	Status             *enums.ComplianceStatus
	ExpiringWithinDays *int
	Limit              int
}

// AvcbView is a certificate with its status evaluated at read time.
type AvcbView struct {
	ID                      uuid.UUID              `json:"id"`
	ProjectID               uuid.UUID              `json:"project_id"`
	LicenseID               *uuid.UUID             `json:"license_id,omitempty"`
	PPCINumber              string                 `json:"ppci_number,omitempty"`
	IssuedAt                *time.Time             `json:"issued_at,omitempty"`
	ExpiresAt               *time.Time             `json:"expires_at,omitempty"`
	HasCompensatoryMeasures bool                   `json:"has_compensatory_measures"`
	Metadata                types.Metadata         `json:"metadata,omitempty"`
	Status                  enums.ComplianceStatus `json:"status"`
	DaysUntilExpiry         *int                   `json:"days_until_expiry,omitempty"`
	CreatedAt               time.Time              `json:"created_at"`
	UpdatedAt               time.Time              `json:"updated_at"`
}

type listQuery struct {
	projectID         *uuid.UUID
	expiresOnOrBefore *time.Time
	limit             int
}

func toView(m models.Avcb, daysUntil *int) AvcbView {
	return AvcbView{
		ID:                      m.ID,
		ProjectID:               m.ProjectID,
		LicenseID:               m.LicenseID,
		PPCINumber:              m.PPCINumber,
		IssuedAt:                m.IssuedAt,
		ExpiresAt:               m.ExpiresAt,
		HasCompensatoryMeasures: m.HasCompensatoryMeasures,
		Metadata:                m.Metadata,
		Status:                  m.Status,
		DaysUntilExpiry:         daysUntil,
		CreatedAt:               m.CreatedAt,
		UpdatedAt:               m.UpdatedAt,
	}
}
