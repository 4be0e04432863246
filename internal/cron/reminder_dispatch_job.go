package cron

import (
	"context"
	"fmt"

	"go.uber.org/multierr"

	"github.com/angelmondragon/sitecompliance-backend/internal/calendar"
	"github.com/angelmondragon/sitecompliance-backend/pkg/logger"
)

type ReminderDispatchJobParams struct {
	Logger   *logger.Logger
	Calendar calendarDispatcher
}

type calendarDispatcher interface {
	Sync(ctx context.Context) (*calendar.SyncResult, error)
	DispatchReminders(ctx context.Context) (*calendar.DispatchResult, error)
}

// NewReminderDispatchJob refreshes calendar events from artifact deadlines and
// queues the reminders that became due since the previous run.
func NewReminderDispatchJob(params ReminderDispatchJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Calendar == nil {
		return nil, fmt.Errorf("calendar service required")
	}
	return &reminderDispatchJob{logg: params.Logger, calendar: params.Calendar}, nil
}

type reminderDispatchJob struct {
	logg     *logger.Logger
	calendar calendarDispatcher
}

func (j *reminderDispatchJob) Name() string { return "reminder-dispatch" }

func (j *reminderDispatchJob) Run(ctx context.Context) error {
	var errs error
	// dispatch runs even when the sync fails
	if _, err := j.calendar.Sync(ctx); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("sync calendar: %w", err))
	}
	res, err := j.calendar.DispatchReminders(ctx)
	if err != nil {
		errs = multierr.Append(errs, fmt.Errorf("dispatch reminders: %w", err))
	}
	if res != nil {
		j.logg.Info(j.logg.WithFields(ctx, map[string]any{
			"events":    res.Events,
			"reminders": res.Reminders,
		}), "reminder dispatch complete")
	}
	return errs
}
