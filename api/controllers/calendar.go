package controllers

import (
	"net/http"
	"time"

	"github.com/angelmondragon/sitecompliance-backend/api/responses"
	"github.com/angelmondragon/sitecompliance-backend/api/validators"
	"github.com/angelmondragon/sitecompliance-backend/internal/calendar"
	"github.com/angelmondragon/sitecompliance-backend/pkg/logger"
)

const defaultCalendarWindow = 90 * 24 * time.Hour

type eventUpdateRequest struct {
	Title          *string `json:"title" validate:"omitempty,min=1,max=200"`
	Color          *string `json:"color" validate:"omitempty,hexcolor"`
	ReminderDays   *[]int  `json:"reminder_days" validate:"omitempty,max=10,dive,gte=0,lte=365"`
	ManualOverride *bool   `json:"manual_override"`
}

// CalendarEvents lists events starting in [from, to). Without parameters the
// window is the next 90 days from today (UTC).
func CalendarEvents(svc calendar.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("calendar"))
			return
		}
		from, err := validators.ParseQueryDate(r, "from")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		to, err := validators.ParseQueryDate(r, "to")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if from == nil {
			today := time.Now().UTC().Truncate(24 * time.Hour)
			from = &today
		}
		if to == nil {
			end := from.Add(defaultCalendarWindow)
			to = &end
		}

		rows, err := svc.ListEvents(r.Context(), *from, *to)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

func CalendarEventGet(svc calendar.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("calendar"))
			return
		}
		id, err := urlUUID(r, "eventId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		view, err := svc.GetEvent(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

func CalendarEventUpdate(svc calendar.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("calendar"))
			return
		}
		id, err := urlUUID(r, "eventId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload eventUpdateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.UpdateEvent(r.Context(), id, calendar.UpdateEventInput{
			Title:          payload.Title,
			Color:          payload.Color,
			ReminderDays:   payload.ReminderDays,
			ManualOverride: payload.ManualOverride,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

func CalendarReminders(svc calendar.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("calendar"))
			return
		}
		id, err := urlUUID(r, "eventId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		view, err := svc.Reminders(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// CalendarSync regenerates events from every dated artifact.
func CalendarSync(svc calendar.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("calendar"))
			return
		}
		result, err := svc.Sync(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
