package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/sitecompliance-backend/internal/calendar"
)

type testCalendarService struct {
	calendar.Service
	from, to time.Time
	update   *calendar.UpdateEventInput
}

func (s *testCalendarService) ListEvents(_ context.Context, from, to time.Time) ([]calendar.EventView, error) {
	s.from, s.to = from, to
	return []calendar.EventView{}, nil
}

func (s *testCalendarService) UpdateEvent(_ context.Context, id uuid.UUID, input calendar.UpdateEventInput) (*calendar.EventView, error) {
	s.update = &input
	return &calendar.EventView{ID: id}, nil
}

func (s *testCalendarService) Sync(context.Context) (*calendar.SyncResult, error) {
	return &calendar.SyncResult{Created: 2}, nil
}

func TestCalendarEventsParsesWindow(t *testing.T) {
	svc := &testCalendarService{}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/calendar/events?from=2024-06-01&to=2024-07-01", nil)
	resp := httptest.NewRecorder()
	CalendarEvents(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if !svc.from.Equal(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)) || !svc.to.Equal(time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected window %v - %v", svc.from, svc.to)
	}
}

func TestCalendarEventsDefaultsWindow(t *testing.T) {
	svc := &testCalendarService{}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/calendar/events?from=2024-06-01", nil)
	resp := httptest.NewRecorder()
	CalendarEvents(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if got := svc.to.Sub(svc.from); got != defaultCalendarWindow {
		t.Fatalf("unexpected default window %v", got)
	}
}

func TestCalendarEventsRejectsBadDate(t *testing.T) {
	svc := &testCalendarService{}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/calendar/events?from=june", nil)
	resp := httptest.NewRecorder()
	CalendarEvents(svc, testLogger())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestCalendarEventUpdateValidatesReminderDays(t *testing.T) {
	svc := &testCalendarService{}
	req := httptest.NewRequest(http.MethodPatch, "/", strings.NewReader(`{"reminder_days":[30,400]}`))
	req = addRouteParams(req, "eventId", uuid.NewString())
	resp := httptest.NewRecorder()
	CalendarEventUpdate(svc, testLogger())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if svc.update != nil {
		t.Fatalf("service should not be called")
	}
}

func TestCalendarEventUpdatePassesFields(t *testing.T) {
	svc := &testCalendarService{}
	req := httptest.NewRequest(http.MethodPatch, "/", strings.NewReader(`{"title":"Renew permit","reminder_days":[15,3]}`))
	req = addRouteParams(req, "eventId", uuid.NewString())
	resp := httptest.NewRecorder()
	CalendarEventUpdate(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.update == nil || svc.update.Title == nil || *svc.update.Title != "Renew permit" {
		t.Fatalf("unexpected update %+v", svc.update)
	}
	if svc.update.ReminderDays == nil || len(*svc.update.ReminderDays) != 2 {
		t.Fatalf("unexpected reminder days %+v", svc.update.ReminderDays)
	}
	if svc.update.ManualOverride != nil {
		t.Fatalf("manual override should be left to the service")
	}
}

func TestCalendarSync(t *testing.T) {
	svc := &testCalendarService{}
	resp := httptest.NewRecorder()
	CalendarSync(svc, testLogger())(resp, httptest.NewRequest(http.MethodPost, "/api/v1/calendar/sync", nil))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), `"created":2`) {
		t.Fatalf("unexpected body %s", resp.Body.String())
	}
}
