package cron

import (
	"context"
	"errors"
	"testing"

	"github.com/angelmondragon/sitecompliance-backend/internal/calendar"
	"github.com/angelmondragon/sitecompliance-backend/pkg/logger"
)

type fakeCalendar struct {
	syncErr    error
	syncs      int
	dispatches int
}

func (f *fakeCalendar) Sync(context.Context) (*calendar.SyncResult, error) {
	f.syncs++
	return &calendar.SyncResult{}, f.syncErr
}

func (f *fakeCalendar) DispatchReminders(context.Context) (*calendar.DispatchResult, error) {
	f.dispatches++
	return &calendar.DispatchResult{Events: 1, Reminders: 2}, nil
}

func TestReminderDispatchJobSyncsThenDispatches(t *testing.T) {
	cal := &fakeCalendar{}
	job, err := NewReminderDispatchJob(ReminderDispatchJobParams{Logger: logger.Nop(), Calendar: cal})
	if err != nil {
		t.Fatalf("NewReminderDispatchJob: %v", err)
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if cal.syncs != 1 || cal.dispatches != 1 {
		t.Fatalf("expected one sync and one dispatch, got %d/%d", cal.syncs, cal.dispatches)
	}
}

func TestReminderDispatchJobDispatchesAfterSyncFailure(t *testing.T) {
	cal := &fakeCalendar{syncErr: errors.New("partial")}
	job, err := NewReminderDispatchJob(ReminderDispatchJobParams{Logger: logger.Nop(), Calendar: cal})
	if err != nil {
		t.Fatalf("NewReminderDispatchJob: %v", err)
	}
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected sync error to surface")
	}
	if cal.dispatches != 1 {
		t.Fatalf("expected dispatch despite sync failure, got %d", cal.dispatches)
	}
}
