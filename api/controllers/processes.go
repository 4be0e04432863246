package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/sitecompliance-backend/api/responses"
	"github.com/angelmondragon/sitecompliance-backend/api/validators"
	"github.com/angelmondragon/sitecompliance-backend/internal/processes"
	"github.com/angelmondragon/sitecompliance-backend/pkg/db/models"
	"github.com/angelmondragon/sitecompliance-backend/pkg/logger"
	"github.com/angelmondragon/sitecompliance-backend/pkg/types"
)

type processCreateRequest struct {
	LicenseID      string `json:"license_id" validate:"required,uuid"`
	ProtocolNumber string `json:"protocol_number" validate:"required,max=64"`
	CurrentStatus  string `json:"current_status" validate:"max=120"`
}

type timelineEntryRequest struct {
	Status     string         `json:"status" validate:"required,max=120"`
	Note       string         `json:"note" validate:"max=2000"`
	OccurredAt string         `json:"occurred_at"`
	Extra      types.Metadata `json:"extra"`
}

type processResponse struct {
	ID             uuid.UUID      `json:"id"`
	LicenseID      uuid.UUID      `json:"license_id"`
	ProtocolNumber string         `json:"protocol_number"`
	CurrentStatus  string         `json:"current_status,omitempty"`
	Timeline       types.Timeline `json:"timeline"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

func processResponseFromModel(m *models.Process) processResponse {
	timeline := m.Timeline
	if timeline == nil {
		timeline = types.Timeline{}
	}
	return processResponse{
		ID:             m.ID,
		LicenseID:      m.LicenseID,
		ProtocolNumber: m.ProtocolNumber,
		CurrentStatus:  m.CurrentStatus,
		Timeline:       timeline,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

func ProcessCreate(svc processes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("process"))
			return
		}

		var payload processCreateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		created, err := svc.CreateProcess(r.Context(), processes.CreateProcessInput{
			LicenseID:      uuid.MustParse(payload.LicenseID),
			ProtocolNumber: validators.SanitizeString(payload.ProtocolNumber, 64),
			CurrentStatus:  validators.SanitizeString(payload.CurrentStatus, 120),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, processResponseFromModel(created))
	}
}

func ProcessGet(svc processes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("process"))
			return
		}
		id, err := urlUUID(r, "processId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		process, err := svc.GetProcess(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, processResponseFromModel(process))
	}
}

func ProcessListByLicense(svc processes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("process"))
			return
		}
		licenseID, err := urlUUID(r, "licenseId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rows, err := svc.ListByLicense(r.Context(), licenseID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		items := make([]processResponse, 0, len(rows))
		for i := range rows {
			items = append(items, processResponseFromModel(&rows[i]))
		}
		responses.WriteSuccess(w, items)
	}
}

// ProcessAppendTimeline records an agency status change. occurred_at defaults to now.
func ProcessAppendTimeline(svc processes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("process"))
			return
		}
		id, err := urlUUID(r, "processId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload timelineEntryRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		occurredAt, err := validators.ParseDate("occurred_at", payload.OccurredAt)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		process, err := svc.AppendTimeline(r.Context(), id, processes.TimelineInput{
			Status:     validators.SanitizeString(payload.Status, 120),
			Note:       validators.SanitizeString(payload.Note, 2000),
			OccurredAt: occurredAt,
			Extra:      payload.Extra,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, processResponseFromModel(process))
	}
}
