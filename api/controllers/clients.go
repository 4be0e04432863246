package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/sitecompliance-backend/api/responses"
	"github.com/angelmondragon/sitecompliance-backend/api/validators"
	"github.com/angelmondragon/sitecompliance-backend/internal/clients"
	"github.com/angelmondragon/sitecompliance-backend/pkg/db/models"
	"github.com/angelmondragon/sitecompliance-backend/pkg/logger"
	"github.com/angelmondragon/sitecompliance-backend/pkg/pagination"
	"github.com/angelmondragon/sitecompliance-backend/pkg/types"
)

type clientCreateRequest struct {
	Name     string         `json:"name" validate:"required,max=200"`
	Document string         `json:"document" validate:"max=32"`
	Contact  types.Metadata `json:"contact"`
}

type clientResponse struct {
	ID        uuid.UUID      `json:"id"`
	Name      string         `json:"name"`
	Document  string         `json:"document,omitempty"`
	Contact   types.Metadata `json:"contact,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

func clientResponseFromModel(m *models.Client) clientResponse {
	return clientResponse{
		ID:        m.ID,
		Name:      m.Name,
		Document:  m.Document,
		Contact:   m.Contact,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func ClientCreate(svc clients.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("client"))
			return
		}

		var payload clientCreateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		created, err := svc.CreateClient(r.Context(), clients.CreateClientInput{
			Name:     validators.SanitizeString(payload.Name, 200),
			Document: validators.SanitizeString(payload.Document, 32),
			Contact:  payload.Contact,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, clientResponseFromModel(created))
	}
}

func ClientGet(svc clients.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("client"))
			return
		}
		id, err := urlUUID(r, "clientId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		client, err := svc.GetClient(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, clientResponseFromModel(client))
	}
}

func ClientList(svc clients.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("client"))
			return
		}
		params, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := svc.ListClients(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		items := make([]clientResponse, 0, len(page.Items))
		for i := range page.Items {
			items = append(items, clientResponseFromModel(&page.Items[i]))
		}
		responses.WritePage(w, items, page.NextCursor)
	}
}

func pageParams(r *http.Request) (pagination.Params, error) {
	limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return pagination.Params{}, err
	}
	return pagination.Params{Limit: limit, Cursor: r.URL.Query().Get("cursor")}, nil
}
