package controllers

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/sitecompliance-backend/api/middleware"
	"github.com/angelmondragon/sitecompliance-backend/api/responses"
	"github.com/angelmondragon/sitecompliance-backend/api/validators"
	"github.com/angelmondragon/sitecompliance-backend/internal/conditionals"
	"github.com/angelmondragon/sitecompliance-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/sitecompliance-backend/pkg/errors"
	"github.com/angelmondragon/sitecompliance-backend/pkg/logger"
)

type conditionalCreateRequest struct {
	Description string `json:"description" validate:"required,max=2000"`
	DueDate     string `json:"due_date" validate:"required"`
	Frequency   string `json:"frequency" validate:"required"`
}

type executionCreateRequest struct {
	ExecutedBy           string `json:"executed_by" validate:"max=200"`
	ExecutedAt           string `json:"executed_at" validate:"required"`
	Outcome              string `json:"outcome" validate:"omitempty,oneof=completed failed"`
	EvidenceAttachmentID string `json:"evidence_attachment_id" validate:"omitempty,uuid"`
	Notes                string `json:"notes" validate:"max=4000"`
	ExpectedVersion      *int64 `json:"expected_version" validate:"omitempty,gte=0"`
}

type advanceRequest struct {
	ExpectedVersion *int64 `json:"expected_version" validate:"omitempty,gte=0"`
}

type executionNotesRequest struct {
	Notes string `json:"notes" validate:"max=4000"`
}

// ConditionalCreate attaches a recurring or one-time obligation to a license.
func ConditionalCreate(svc conditionals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("conditional"))
			return
		}
		licenseID, err := urlUUID(r, "licenseId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload conditionalCreateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		due, err := validators.ParseDate("due_date", payload.DueDate)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		frequency, err := enums.ParseFrequency(payload.Frequency)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid frequency"))
			return
		}

		created, err := svc.CreateConditional(r.Context(), conditionals.CreateConditionalInput{
			LicenseID:   licenseID,
			Description: strings.TrimSpace(payload.Description),
			DueDate:     *due,
			Frequency:   frequency,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, created)
	}
}

func ConditionalListByLicense(svc conditionals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("conditional"))
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
		responses.WriteSuccess(w, rows)
	}
}

func ConditionalGet(svc conditionals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("conditional"))
			return
		}
		id, err := urlUUID(r, "conditionalId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		view, err := svc.GetConditional(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

func ConditionalOccurrence(svc conditionals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("conditional"))
			return
		}
		id, err := urlUUID(r, "conditionalId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		view, err := svc.Occurrence(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

func ConditionalExecutions(svc conditionals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("conditional"))
			return
		}
		id, err := urlUUID(r, "conditionalId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rows, err := svc.ListExecutions(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

// ConditionalRecordExecution appends to the execution log. executed_by falls
// back to the X-Actor header; outcome defaults to completed.
func ConditionalRecordExecution(svc conditionals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("conditional"))
			return
		}
		id, err := urlUUID(r, "conditionalId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload executionCreateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		executedAt, err := validators.ParseDate("executed_at", payload.ExecutedAt)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		evidence, err := parseOptionalUUID("evidence_attachment_id", payload.EvidenceAttachmentID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		outcome := enums.ExecutionOutcomeCompleted
		if payload.Outcome != "" {
			if outcome, err = enums.ParseExecutionOutcome(payload.Outcome); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid outcome"))
				return
			}
		}
		executedBy := validators.SanitizeString(payload.ExecutedBy, 200)
		if executedBy == "" {
			executedBy = middleware.ActorFromContext(r.Context())
		}

		result, err := svc.RecordExecution(r.Context(), id, conditionals.RecordExecutionInput{
			ExecutedBy:           executedBy,
			ExecutedAt:           *executedAt,
			Outcome:              outcome,
			EvidenceAttachmentID: evidence,
			Notes:                strings.TrimSpace(payload.Notes),
			ExpectedVersion:      payload.ExpectedVersion,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

func ConditionalAdvance(svc conditionals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("conditional"))
			return
		}
		id, err := urlUUID(r, "conditionalId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload advanceRequest
		if r.ContentLength != 0 {
			if err := validators.DecodeJSONBody(r, &payload); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		result, err := svc.Advance(r.Context(), id, conditionals.AdvanceInput{ExpectedVersion: payload.ExpectedVersion})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// ConditionalExecutionNotes edits the notes of a logged execution; every
// other field of the log is immutable.
func ConditionalExecutionNotes(svc conditionals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("conditional"))
			return
		}
		id, err := urlUUID(r, "conditionalId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		executionID, err := urlUUID(r, "executionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload executionNotesRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.UpdateExecutionNotes(r.Context(), id, executionID, strings.TrimSpace(payload.Notes))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}
