package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/sitecompliance-backend/api/middleware"
	"github.com/angelmondragon/sitecompliance-backend/api/responses"
	"github.com/angelmondragon/sitecompliance-backend/internal/attachments"
	"github.com/angelmondragon/sitecompliance-backend/pkg/db/models"
	"github.com/angelmondragon/sitecompliance-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/sitecompliance-backend/pkg/errors"
	"github.com/angelmondragon/sitecompliance-backend/pkg/logger"
)

const (
	multipartMemory   = 8 << 20
	multipartOverhead = 1 << 20
)

// AttachmentUpload accepts multipart/form-data with entity_kind, entity_id and
// a single "file" part. maxBytes bounds the whole request body.
func AttachmentUpload(svc attachments.Service, maxBytes int64, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("attachment"))
			return
		}
		if maxBytes > 0 {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes+multipartOverhead)
		}
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart body"))
			return
		}
		defer func() {
			if r.MultipartForm != nil {
				_ = r.MultipartForm.RemoveAll()
			}
		}()

		owner, err := parseOwner(r.FormValue("entity_kind"), r.FormValue("entity_id"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "file is required").WithDetails(map[string]any{"field": "file"}))
			return
		}
		defer file.Close()

		uploadedBy := strings.TrimSpace(r.FormValue("uploaded_by"))
		if uploadedBy == "" {
			uploadedBy = middleware.ActorFromContext(r.Context())
		}

		view, err := svc.Upload(r.Context(), attachments.UploadInput{
			Owner:      owner,
			Filename:   header.Filename,
			UploadedBy: uploadedBy,
			Body:       file,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, view)
	}
}

// AttachmentList lists attachments of one owner given by entity_kind and entity_id.
func AttachmentList(svc attachments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("attachment"))
			return
		}
		q := r.URL.Query()
		owner, err := parseOwner(q.Get("entity_kind"), q.Get("entity_id"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rows, err := svc.List(r.Context(), owner)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

func AttachmentGet(svc attachments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("attachment"))
			return
		}
		id, err := urlUUID(r, "attachmentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		view, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

func parseOwner(kindRaw, idRaw string) (models.EntityRef, error) {
	kind, err := enums.ParseEntityKind(strings.TrimSpace(kindRaw))
	if err != nil {
		return models.EntityRef{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid entity_kind").WithDetails(map[string]any{"field": "entity_kind"})
	}
	id, err := uuid.Parse(strings.TrimSpace(idRaw))
	if err != nil {
		return models.EntityRef{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid entity_id").WithDetails(map[string]any{"field": "entity_id"})
	}
	return models.EntityRef{Kind: kind, ID: id}, nil
}
