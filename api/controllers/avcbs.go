package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/sitecompliance-backend/api/responses"
	"github.com/angelmondragon/sitecompliance-backend/api/validators"
	"github.com/angelmondragon/sitecompliance-backend/internal/avcbs"
	"github.com/angelmondragon/sitecompliance-backend/pkg/logger"
	"github.com/angelmondragon/sitecompliance-backend/pkg/types"
)

type avcbCreateRequest struct {
	ProjectID               string         `json:"project_id" validate:"required,uuid"`
	LicenseID               string         `json:"license_id" validate:"omitempty,uuid"`
	PPCINumber              string         `json:"ppci_number" validate:"max=64"`
	IssuedAt                string         `json:"issued_at"`
	ExpiresAt               string         `json:"expires_at"`
	HasCompensatoryMeasures bool           `json:"has_compensatory_measures"`
	Metadata                types.Metadata `json:"metadata"`
}

func (r avcbCreateRequest) toInput() (avcbs.CreateAvcbInput, error) {
	licenseID, err := parseOptionalUUID("license_id", r.LicenseID)
	if err != nil {
		return avcbs.CreateAvcbInput{}, err
	}
	issued, err := validators.ParseDate("issued_at", r.IssuedAt)
	if err != nil {
		return avcbs.CreateAvcbInput{}, err
	}
	expires, err := validators.ParseDate("expires_at", r.ExpiresAt)
	if err != nil {
		return avcbs.CreateAvcbInput{}, err
	}
	return avcbs.CreateAvcbInput{
		ProjectID:               uuid.MustParse(r.ProjectID),
		LicenseID:               licenseID,
		PPCINumber:              strings.TrimSpace(r.PPCINumber),
		IssuedAt:                issued,
		ExpiresAt:               expires,
		HasCompensatoryMeasures: r.HasCompensatoryMeasures,
		Metadata:                r.Metadata,
	}, nil
}

type avcbUpdateRequest struct {
	LicenseID               *string        `json:"license_id" validate:"omitempty,uuid"`
	ClearLicense            bool           `json:"clear_license"`
	PPCINumber              *string        `json:"ppci_number" validate:"omitempty,max=64"`
	IssuedAt                *string        `json:"issued_at"`
	ExpiresAt               *string        `json:"expires_at"`
	ClearIssuedAt           bool           `json:"clear_issued_at"`
	ClearExpiresAt          bool           `json:"clear_expires_at"`
	HasCompensatoryMeasures *bool          `json:"has_compensatory_measures"`
	Metadata                types.Metadata `json:"metadata"`
}

func (r avcbUpdateRequest) toInput() (avcbs.UpdateAvcbInput, error) {
	input := avcbs.UpdateAvcbInput{
		ClearLicense:            r.ClearLicense,
		PPCINumber:              r.PPCINumber,
		ClearIssuedAt:           r.ClearIssuedAt,
		ClearExpiresAt:          r.ClearExpiresAt,
		HasCompensatoryMeasures: r.HasCompensatoryMeasures,
		Metadata:                r.Metadata,
	}
	if r.LicenseID != nil {
		id, err := parseOptionalUUID("license_id", *r.LicenseID)
		if err != nil {
			return input, err
		}
		input.LicenseID = id
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

func AvcbCreate(svc avcbs.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("avcb"))
			return
		}

		var payload avcbCreateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		created, err := svc.CreateAvcb(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, created)
	}
}

func AvcbGet(svc avcbs.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("avcb"))
			return
		}
		id, err := urlUUID(r, "avcbId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		view, err := svc.GetAvcb(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

func AvcbUpdate(svc avcbs.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("avcb"))
			return
		}
		id, err := urlUUID(r, "avcbId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload avcbUpdateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.UpdateAvcb(r.Context(), id, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

func AvcbList(svc avcbs.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("avcb"))
			return
		}
		filters, err := parseArtifactFilters(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rows, err := svc.ListAvcbs(r.Context(), avcbs.ListParams{
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
