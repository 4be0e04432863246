package licenses

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/sitecompliance-backend/pkg/db/models"
	"github.com/angelmondragon/sitecompliance-backend/pkg/enums"
	"github.com/angelmondragon/sitecompliance-backend/pkg/types"
)

type CreateLicenseInput struct {
	ProjectID uuid.UUID
	Number    string
	Issuer    string
	Type      string
	IssuedAt  *time.Time
	ExpiresAt *time.Time
	Metadata  types.Metadata
}

// UpdateLicenseInput carries a partial update. Clear* flags null out a date.
type UpdateLicenseInput struct {
	Number         *string
	Issuer         *string
	Type           *string
	IssuedAt       *time.Time
	ExpiresAt      *time.Time
	ClearIssuedAt  bool
	ClearExpiresAt bool
	Metadata       types.Metadata
}

type ListParams struct {
	ProjectID          *uuid.UUID
	Status             *enums.ComplianceStatus
	ExpiringWithinDays *int
	Limit              int
}

// LicenseView is a license with its status evaluated at read time.
type LicenseView struct {
	ID              uuid.UUID              `json:"id"`
	ProjectID       uuid.UUID              `json:"project_id"`
	Number          string                 `json:"number"`
	Issuer          string                 `json:"issuer,omitempty"`
	Type            string                 `json:"type,omitempty"`
	IssuedAt        *time.Time             `json:"issued_at,omitempty"`
	ExpiresAt       *time.Time             `json:"expires_at,omitempty"`
	Metadata        types.Metadata         `json:"metadata,omitempty"`
	Status          enums.ComplianceStatus `json:"status"`
	DaysUntilExpiry *int                   `json:"days_until_expiry,omitempty"`
	CreatedAt       time.Time              `json:"created_at"`
	UpdatedAt       time.Time              `json:"updated_at"`
}

type listQuery struct {
	projectID         *uuid.UUID
	expiresOnOrBefore *time.Time
	limit             int
}

func toView(m models.License, daysUntil *int) LicenseView {
	return LicenseView{
		ID:              m.ID,
		ProjectID:       m.ProjectID,
		Number:          m.Number,
		Issuer:          m.Issuer,
		Type:            m.Type,
		IssuedAt:        m.IssuedAt,
		ExpiresAt:       m.ExpiresAt,
		Metadata:        m.Metadata,
		Status:          m.Status,
		DaysUntilExpiry: daysUntil,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}
