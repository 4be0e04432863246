package residues

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/sitecompliance-backend/pkg/db/models"
	"github.com/angelmondragon/sitecompliance-backend/pkg/enums"
)

type CreateInput struct {
	Role             enums.WasteHandlerRole
	Name             string
	FacilityType     string
	LicenseNumber    string
	LicenseIssuedAt  *time.Time
	LicenseExpiresAt *time.Time
	ContactEmail     string
	ContactPhone     string
}

// UpdateInput carries a partial update. Clear* flags null out a licence date.
type UpdateInput struct {
	Name                  *string
	FacilityType          *string
	LicenseNumber         *string
	LicenseIssuedAt       *time.Time
	LicenseExpiresAt      *time.Time
	ClearLicenseIssuedAt  bool
	ClearLicenseExpiresAt bool
	ContactEmail          *string
	ContactPhone          *string
}

type ListParams struct {
	Role               *enums.WasteHandlerRole
	Status             *enums.ComplianceStatus
	ExpiringWithinDays *int
	Limit              int
}

// HandlerView is a waste handler with its licence status evaluated at read time.
type HandlerView struct {
	ID               uuid.UUID              `json:"id"`
	Role             enums.WasteHandlerRole `json:"role"`
	Name             string                 `json:"name"`
	FacilityType     string                 `json:"facility_type,omitempty"`
	LicenseNumber    string                 `json:"license_number"`
	LicenseIssuedAt  *time.Time             `json:"license_issued_at,omitempty"`
	LicenseExpiresAt *time.Time             `json:"license_expires_at,omitempty"`
	ContactEmail     string                 `json:"contact_email,omitempty"`
	ContactPhone     string                 `json:"contact_phone,omitempty"`
	Status           enums.ComplianceStatus `json:"status"`
	DaysUntilExpiry  *int                   `json:"days_until_expiry,omitempty"`
	CreatedAt        time.Time              `json:"created_at"`
	UpdatedAt        time.Time              `json:"updated_at"`
}

type listQuery struct {
	role              *enums.WasteHandlerRole
	expiresOnOrBefore *time.Time
	limit             int
}

func toView(m models.WasteHandler, daysUntil *int) HandlerView {
	return HandlerView{
		ID:               m.ID,
		Role:             m.Role,
		Name:             m.Name,
		FacilityType:     m.FacilityType,
		LicenseNumber:    m.LicenseNumber,
		LicenseIssuedAt:  m.LicenseIssuedAt,
		LicenseExpiresAt: m.LicenseExpiresAt,
		ContactEmail:     m.ContactEmail,
		ContactPhone:     m.ContactPhone,
		Status:           m.Status,
		DaysUntilExpiry:  daysUntil,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}
