package controllers

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/sitecompliance-backend/api/responses"
	"github.com/angelmondragon/sitecompliance-backend/api/validators"
	"github.com/angelmondragon/sitecompliance-backend/internal/residues"
	"github.com/angelmondragon/sitecompliance-backend/pkg/enums"
	"github.com/angelmondragon/sitecompliance-backend/pkg/logger"
)

type wasteHandlerCreateRequest struct {
	Name             string `json:"name" validate:"required,max=200"`
	FacilityType     string `json:"facility_type" validate:"max=120"`
	LicenseNumber    string `json:"license_number" validate:"required,max=64"`
	LicenseIssuedAt  string `json:"license_issued_at"`
	LicenseExpiresAt string `json:"license_expires_at"`
	ContactEmail     string `json:"contact_email" validate:"omitempty,email,max=254"`
	ContactPhone     string `json:"contact_phone" validate:"max=50"`
}

func (r wasteHandlerCreateRequest) toInput(role enums.WasteHandlerRole) (residues.CreateInput, error) {
	issued, err := validators.ParseDate("license_issued_at", r.LicenseIssuedAt)
	if err != nil {
		return residues.CreateInput{}, err
	}
	expires, err := validators.ParseDate("license_expires_at", r.LicenseExpiresAt)
	if err != nil {
		return residues.CreateInput{}, err
	}
	return residues.CreateInput{
		Role:             role,
		Name:             strings.TrimSpace(r.Name),
		FacilityType:     strings.TrimSpace(r.FacilityType),
		LicenseNumber:    strings.TrimSpace(r.LicenseNumber),
		LicenseIssuedAt:  issued,
		LicenseExpiresAt: expires,
		ContactEmail:     strings.TrimSpace(r.ContactEmail),
		ContactPhone:     strings.TrimSpace(r.ContactPhone),
	}, nil
}

// wasteHandlerUpdateRequest is a partial update; clear_* flags null out a licence date.
type wasteHandlerUpdateRequest struct {
	Name                  *string `json:"name" validate:"omitempty,max=200"`
	FacilityType          *string `json:"facility_type" validate:"omitempty,max=120"`
	LicenseNumber         *string `json:"license_number" validate:"omitempty,max=64"`
	LicenseIssuedAt       *string `json:"license_issued_at"`
	LicenseExpiresAt      *string `json:"license_expires_at"`
	ClearLicenseIssuedAt  bool    `json:"clear_license_issued_at"`
	ClearLicenseExpiresAt bool    `json:"clear_license_expires_at"`
	ContactEmail          *string `json:"contact_email" validate:"omitempty,email,max=254"`
	ContactPhone          *string `json:"contact_phone" validate:"omitempty,max=50"`
}

func (r wasteHandlerUpdateRequest) toInput() (residues.UpdateInput, error) {
	input := residues.UpdateInput{
		Name:                  r.Name,
		FacilityType:          r.FacilityType,
		LicenseNumber:         r.LicenseNumber,
		ClearLicenseIssuedAt:  r.ClearLicenseIssuedAt,
		ClearLicenseExpiresAt: r.ClearLicenseExpiresAt,
		ContactEmail:          r.ContactEmail,
		ContactPhone:          r.ContactPhone,
	}
	if r.LicenseIssuedAt != nil {
		issued, err := validators.ParseDate("license_issued_at", *r.LicenseIssuedAt)
		if err != nil {
			return input, err
		}
		input.LicenseIssuedAt = issued
	}
	if r.LicenseExpiresAt != nil {
		expires, err := validators.ParseDate("license_expires_at", *r.LicenseExpiresAt)
		if err != nil {
			return input, err
		}
		input.LicenseExpiresAt = expires
	}
	return input, nil
}

func WasteHandlerCreate(svc residues.Service, role enums.WasteHandlerRole, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("residues"))
			return
		}

		var payload wasteHandlerCreateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := payload.toInput(role)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		created, err := svc.Create(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, created)
	}
}

func WasteHandlerGet(svc residues.Service, role enums.WasteHandlerRole, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("residues"))
			return
		}
		id, err := urlUUID(r, "handlerId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		view, err := svc.Get(r.Context(), role, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

func WasteHandlerUpdate(svc residues.Service, role enums.WasteHandlerRole, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("residues"))
			return
		}
		id, err := urlUUID(r, "handlerId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload wasteHandlerUpdateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.Update(r.Context(), role, id, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

func WasteHandlerDelete(svc residues.Service, role enums.WasteHandlerRole, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("residues"))
			return
		}
		id, err := urlUUID(r, "handlerId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Delete(r.Context(), role, id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// WasteHandlerList supports status and expiring_within_days filters.
func WasteHandlerList(svc residues.Service, role enums.WasteHandlerRole, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("residues"))
			return
		}
		filters, err := parseArtifactFilters(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rows, err := svc.List(r.Context(), residues.ListParams{
			Role:               &role,
			Status:             filters.status,
			ExpiringWithinDays: filters.expiringWithin,
			Limit:              filters.limit,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}
