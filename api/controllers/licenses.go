package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/sitecompliance-backend/api/responses"
	"github.com/angelmondragon/sitecompliance-backend/api/validators"
	"github.com/angelmondragon/sitecompliance-backend/internal/licenses"
	"github.com/angelmondragon/sitecompliance-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/sitecompliance-backend/pkg/errors"
	"github.com/angelmondragon/sitecompliance-backend/pkg/logger"
	"github.com/angelmondragon/sitecompliance-backend/pkg/pagination"
	"github.com/angelmondragon/sitecompliance-backend/pkg/types"
)

const maxExpiringWithinDays = 3650

type licenseCreateRequest struct {
	ProjectID string         `json:"project_id" validate:"required,uuid"`
	Number    string         `json:"number" validate:"required,max=64"`
	Issuer    string         `json:"issuer" validate:"max=200"`
	Type      string         `json:"type" validate:"max=64"`
	IssuedAt  string         `json:"issued_at"`
	ExpiresAt string         `json:"expires_at"`
	Metadata  types.Metadata `json:"metadata"`
}

func (r licenseCreateRequest) toInput() (licenses.CreateLicenseInput, error) {
	issued, err := validators.ParseDate("issued_at", r.IssuedAt)
	if err != nil {
		return licenses.CreateLicenseInput{}, err
	}
	expires, err := validators.ParseDate("expires_at", r.ExpiresAt)
	if err != nil {
		return licenses.CreateLicenseInput{}, err
	}
	return licenses.CreateLicenseInput{
		ProjectID: uuid.MustParse(r.ProjectID),
		Number:    strings.TrimSpace(r.Number),
		Issuer:    strings.TrimSpace(r.Issuer),
		Type:      strings.TrimSpace(r.Type),
		IssuedAt:  issued,
		ExpiresAt: expires,
		Metadata:  r.Metadata,
	}, nil
}

// licenseUpdateRequest is a partial update; clear_* flags null out a date.
type licenseUpdateRequest struct {
	Number         *string        `json:"number" validate:"omitempty,max=64"`
	Issuer         *string        `json:"issuer" validate:"omitempty,max=200"`
	Type           *string        `json:"type" validate:"omitempty,max=64"`
	IssuedAt       *string        `json:"issued_at"`
	ExpiresAt      *string        `json:"expires_at"`
	ClearIssuedAt  bool           `json:"clear_issued_at"`
	ClearExpiresAt bool           `json:"clear_expires_at"`
	Metadata       types.Metadata `json:"metadata"`
}

func (r licenseUpdateRequest) toInput() (licenses.UpdateLicenseInput, error) {
	input := licenses.UpdateLicenseInput{
		Number:         r.Number,
		Issuer:         r.Issuer,
		Type:           r.Type,
		ClearIssuedAt:  r.ClearIssuedAt,
		ClearExpiresAt: r.ClearExpiresAt,
		Metadata:       r.Metadata,
	}
	if r.IssuedAt != nil {
		issued, err := validators.ParseDate("issued_at", *r.IssuedAt)
		if err != nil {
			return input, err
		}
		input.IssuedAt = issued
	}
	if r.ExpiresAt != nil {
		expires, err := validators.ParseDate("expires_at", *r.ExpiresAt)
		if err != nil {
			return input, err
		}
		input.ExpiresAt = expires
	}
	return input, nil
}

func LicenseCreate(svc licenses.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("license"))
			return
		}

		var payload licenseCreateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		created, err := svc.CreateLicense(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, created)
	}
}

func LicenseGet(svc licenses.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("license"))
			return
		}
		id, err := urlUUID(r, "licenseId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		view, err := svc.GetLicense(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

func LicenseUpdate(svc licenses.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("license"))
			return
		}
		id, err := urlUUID(r, "licenseId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload licenseUpdateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.UpdateLicense(r.Context(), id, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// LicenseList supports project_id, status and expiring_within_days filters.
func LicenseList(svc licenses.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("license"))
			return
		}
		filters, err := parseArtifactFilters(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rows, err := svc.ListLicenses(r.Context(), licenses.ListParams{
			ProjectID:          filters.projectID,
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

type artifactFilters struct {
	projectID      *uuid.UUID
	status         *enums.ComplianceStatus
	expiringWithin *int
	limit          int
}

func parseArtifactFilters(r *http.Request) (artifactFilters, error) {
	var f artifactFilters
	var err error
	if f.projectID, err = validators.ParseQueryUUID(r, "project_id"); err != nil {
		return f, err
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		status, parseErr := enums.ParseComplianceStatus(raw)
		if parseErr != nil {
			return f, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid status").WithDetails(map[string]any{"field": "status"})
		}
		f.status = &status
	}
	if f.expiringWithin, err = validators.ParseQueryOptionalInt(r, "expiring_within_days", 0, maxExpiringWithinDays); err != nil {
		return f, err
	}
	if f.limit, err = validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit); err != nil {
		return f, err
	}
	return f, nil
}
