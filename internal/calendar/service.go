package calendar

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/sitecompliance-backend/internal/compliance"
	"github.com/angelmondragon/sitecompliance-backend/internal/repo"
	"github.com/angelmondragon/sitecompliance-backend/pkg/db/models"
	"github.com/angelmondragon/sitecompliance-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/sitecompliance-backend/pkg/errors"
	"github.com/angelmondragon/sitecompliance-backend/pkg/logger"
	"github.com/angelmondragon/sitecompliance-backend/pkg/metrics"
	"github.com/angelmondragon/sitecompliance-backend/pkg/outbox"
	"github.com/angelmondragon/sitecompliance-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/sitecompliance-backend/pkg/types"
)

const (
	maxWindow       = 400 * 24 * time.Hour
	maxReminderDays = 365

	colorLicense     = "#1e88e5"
	colorAvcb        = "#e53935"
	colorConditional = "#fb8c00"
)

type eventsRepository interface {
	Create(ctx context.Context, e *models.CalendarEvent) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.CalendarEvent, error)
	Update(ctx context.Context, id uuid.UUID, fields map[string]any) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListWindow(ctx context.Context, from, to time.Time) ([]models.CalendarEvent, error)
	ListAll(ctx context.Context) ([]models.CalendarEvent, error)
	MarkRemindedWithTx(tx *gorm.DB, id uuid.UUID, at time.Time) error
}

type lister[T any] interface {
	ListAll(ctx context.Context) ([]T, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	EmitOnce(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) (bool, error)
}

// Service keeps one calendar event per dated artifact and turns their lead
// days into reminder notices.
type Service interface {
	Sync(ctx context.Context) (*SyncResult, error)
	ListEvents(ctx context.Context, from, to time.Time) ([]EventView, error)
	GetEvent(ctx context.Context, id uuid.UUID) (*EventView, error)
	Reminders(ctx context.Context, id uuid.UUID) (*RemindersView, error)
	UpdateEvent(ctx context.Context, id uuid.UUID, input UpdateEventInput) (*EventView, error)
	DispatchReminders(ctx context.Context) (*DispatchResult, error)
}

type ServiceParams struct {
	Repo                eventsRepository
	Licenses            lister[models.License]
	Avcbs               lister[models.Avcb]
	Conditionals        lister[models.Conditional]
	DB                  txRunner
	Outbox              outboxEmitter
	DefaultReminderDays []int
	Metrics             *metrics.ComplianceMetrics
	Logger              *logger.Logger
}

type service struct {
	repo         eventsRepository
	licenses     lister[models.License]
	avcbs        lister[models.Avcb]
	conditionals lister[models.Conditional]
	db           txRunner
	outbox       outboxEmitter
	defaultDays  types.DaySet
	metrics      *metrics.ComplianceMetrics
	logg         *logger.Logger
	now          func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("calendar repository required")
	}
	if params.Licenses == nil || params.Avcbs == nil || params.Conditionals == nil {
		return nil, fmt.Errorf("artifact listers required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	days := params.DefaultReminderDays
	if len(days) == 0 {
		days = compliance.DefaultLeadDays
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		repo:         params.Repo,
		licenses:     params.Licenses,
		avcbs:        params.Avcbs,
		conditionals: params.Conditionals,
		db:           params.DB,
		outbox:       params.Outbox,
		defaultDays:  types.DaySet(days).Normalize(),
		metrics:      params.Metrics,
		logg:         logg,
		now:          time.Now,
	}, nil
}

type desiredEvent struct {
	ref      models.EntityRef
	title    string
	color    string
	deadline time.Time
}

func (s *service) desired(ctx context.Context) (map[models.EntityRef]desiredEvent, error) {
	out := make(map[models.EntityRef]desiredEvent)

	licenses, err := s.licenses.ListAll(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list licenses")
	}
	for _, l := range licenses {
		deadline, ok := deadlineOf(l.ExpiresAt)
		if !ok {
			continue
		}
		ref := models.EntityRef{Kind: enums.EntityKindLicense, ID: l.ID}
		out[ref] = desiredEvent{ref: ref, title: fmt.Sprintf("License %s expires", l.Number), color: colorLicense, deadline: deadline}
	}

	avcbs, err := s.avcbs.ListAll(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list avcbs")
	}
	for _, a := range avcbs {
		deadline, ok := deadlineOf(a.ExpiresAt)
		if !ok {
			continue
		}
		label := strings.TrimSpace(a.PPCINumber)
		if label == "" {
			label = a.ID.String()[:8]
		}
		ref := models.EntityRef{Kind: enums.EntityKindAvcb, ID: a.ID}
		out[ref] = desiredEvent{ref: ref, title: fmt.Sprintf("AVCB %s expires", label), color: colorAvcb, deadline: deadline}
	}

	conditionals, err := s.conditionals.ListAll(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list conditionals")
	}
	for _, c := range conditionals {
		if c.Frequency == enums.FrequencyOneTime && c.Status == enums.ObligationStatusFulfilled {
			continue
		}
		deadline, ok := deadlineOf(&c.DueDate)
		if !ok {
			continue
		}
		ref := models.EntityRef{Kind: enums.EntityKindConditional, ID: c.ID}
		out[ref] = desiredEvent{ref: ref, title: fmt.Sprintf("Obligation due: %s", c.Description), color: colorConditional, deadline: deadline}
	}
	return out, nil
}

func deadlineOf(t *time.Time) (time.Time, bool) {
	d := compliance.DateOnly(t)
	if d == nil {
		return time.Time{}, false
	}
	return *d, true
}

func managedKind(kind enums.EntityKind) bool {
	switch kind {
	case enums.EntityKindLicense, enums.EntityKindAvcb, enums.EntityKindConditional:
		return true
	}
	return false
}

// Sync reconciles calendar events with artifact deadlines. Pinned events
// keep their title and color but still follow the deadline.
func (s *service) Sync(ctx context.Context) (*SyncResult, error) {
	now := s.now().UTC()
	want, err := s.desired(ctx)
	if err != nil {
		return nil, err
	}
	existing, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list calendar events")
	}

	result := &SyncResult{}
	var errs error
	seen := make(map[models.EntityRef]struct{}, len(existing))
	for _, e := range existing {
		ref := e.Ref()
		seen[ref] = struct{}{}
		d, ok := want[ref]
		if !ok {
			if !managedKind(ref.Kind) || e.ManualOverride {
				result.Unchanged++
				continue
			}
			if err := s.repo.Delete(ctx, e.ID); err != nil {
				errs = multierr.Append(errs, fmt.Errorf("delete event %s: %w", e.ID, err))
				continue
			}
			result.Removed++
			continue
		}

		fields := map[string]any{}
		start := d.deadline
		if !start.Equal(e.StartAt) {
			fields["start_at"] = start
			fields["end_at"] = start.AddDate(0, 0, 1)
			// reminders already elapsed for the new deadline are not replayed
			fields["last_reminded_at"] = now
		}
		if !e.ManualOverride {
			if d.title != e.Title {
				fields["title"] = d.title
			}
			if d.color != e.Color {
				fields["color"] = d.color
			}
		}
		if len(fields) == 0 {
			result.Unchanged++
			continue
		}
		if err := s.repo.Update(ctx, e.ID, fields); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("update event %s: %w", e.ID, err))
			continue
		}
		result.Updated++
	}

	for ref, d := range want {
		if _, ok := seen[ref]; ok {
			continue
		}
		start := d.deadline
		event := &models.CalendarEvent{
			RelatedType:  ref.Kind,
			RelatedID:    ref.ID,
			Title:        d.title,
			StartAt:      start,
			EndAt:        start.AddDate(0, 0, 1),
			Color:        d.color,
			ReminderDays: append(types.DaySet(nil), s.defaultDays...),
			CreatedAt:    now,
		}
		if err := s.repo.Create(ctx, event); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("create event for %s %s: %w", ref.Kind, ref.ID, err))
			continue
		}
		result.Created++
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"created":   result.Created,
		"updated":   result.Updated,
		"removed":   result.Removed,
		"unchanged": result.Unchanged,
	}), "calendar synced")
	if errs != nil {
		return result, pkgerrors.Wrap(pkgerrors.CodeInternal, errs, "calendar sync incomplete")
	}
	return result, nil
}

func (s *service) ListEvents(ctx context.Context, from, to time.Time) ([]EventView, error) {
	if from.IsZero() || to.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "from and to are required")
	}
	if !to.After(from) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "to must be after from")
	}
	if to.Sub(from) > maxWindow {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "window must not exceed 400 days")
	}
	rows, err := s.repo.ListWindow(ctx, from.UTC(), to.UTC())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list calendar events")
	}
	out := make([]EventView, 0, len(rows))
	for _, row := range rows {
		out = append(out, toView(row))
	}
	return out, nil
}

func (s *service) GetEvent(ctx context.Context, id uuid.UUID) (*EventView, error) {
	e, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, repo.NotFound(err, "calendar event")
	}
	v := toView(*e)
	return &v, nil
}

func (s *service) Reminders(ctx context.Context, id uuid.UUID) (*RemindersView, error) {
	e, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, repo.NotFound(err, "calendar event")
	}
	return &RemindersView{
		Event:     toView(*e),
		Reminders: compliance.ScheduleReminders(e.StartAt, e.ReminderDays, s.now().UTC()),
	}, nil
}

func (s *service) UpdateEvent(ctx context.Context, id uuid.UUID, input UpdateEventInput) (*EventView, error) {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return nil, repo.NotFound(err, "calendar event")
	}
	fields := map[string]any{}
	pin := false
	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "title must not be empty")
		}
		fields["title"] = title
		pin = true
	}
	if input.Color != nil {
		fields["color"] = strings.TrimSpace(*input.Color)
		pin = true
	}
	if input.ReminderDays != nil {
		for _, d := range *input.ReminderDays {
			if d < 0 || d > maxReminderDays {
				return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "reminder days must be between 0 and %d", maxReminderDays)
			}
		}
		fields["reminder_days"] = types.DaySet(*input.ReminderDays).Normalize()
		pin = true
	}
	switch {
	case input.ManualOverride != nil:
		fields["manual_override"] = *input.ManualOverride
	case pin:
		fields["manual_override"] = true
	}
	if len(fields) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "nothing to update")
	}
	if err := s.repo.Update(ctx, id, fields); err != nil {
		return nil, repo.NotFound(err, "calendar event")
	}
	return s.GetEvent(ctx, id)
}

// DispatchReminders emits a reminder notice for every reminder that became due
// since the event was last reminded (or created).
func (s *service) DispatchReminders(ctx context.Context) (*DispatchResult, error) {
	now := s.now().UTC()
	events, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list calendar events")
	}

	result := &DispatchResult{}
	var errs error
	for _, e := range events {
		since := e.CreatedAt
		if e.LastRemindedAt != nil {
			since = *e.LastRemindedAt
		}
		due := compliance.DueReminders(compliance.ScheduleReminders(e.StartAt, e.ReminderDays, now), since, now)
		if len(due) == 0 {
			continue
		}
		emitted := 0
		err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
			for _, r := range due {
				ok, err := s.outbox.EmitOnce(ctx, tx, reminderEvent(e, r, now))
				if err != nil {
					return err
				}
				if ok {
					emitted++
				}
			}
			return s.repo.MarkRemindedWithTx(tx, e.ID, now)
		})
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("dispatch reminders for event %s: %w", e.ID, err))
			continue
		}
		result.Events++
		result.Reminders += emitted
	}

	s.metrics.AddReminders(result.Reminders)
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"events":    result.Events,
		"reminders": result.Reminders,
	}), "reminders dispatched")
	if errs != nil {
		return result, pkgerrors.Wrap(pkgerrors.CodeInternal, errs, "reminder dispatch incomplete")
	}
	return result, nil
}

func reminderEvent(e models.CalendarEvent, r compliance.Reminder, now time.Time) outbox.DomainEvent {
	deadline := e.StartAt.Format(time.DateOnly)
	message := fmt.Sprintf("%s on %s", e.Title, deadline)
	if r.LeadDays > 0 {
		message = fmt.Sprintf("%s in %d day(s), on %s", e.Title, r.LeadDays, deadline)
	}
	return outbox.DomainEvent{
		EventType:     enums.EventReminderDue,
		AggregateType: enums.AggregateCalendarEvent,
		AggregateID:   e.ID,
		DedupeKey:     fmt.Sprintf("%s:%s:%s:%d", enums.EventReminderDue, e.ID, deadline, r.LeadDays),
		Actor:         outbox.SystemActor("reminder-dispatch"),
		OccurredAt:    now,
		Data: payloads.ReminderDueEvent{
			CalendarEventID: e.ID,
			RelatedType:     e.RelatedType,
			RelatedID:       e.RelatedID,
			Title:           e.Title,
			Deadline:        e.StartAt,
			LeadDays:        r.LeadDays,
			RemindAt:        r.At,
			Message:         message,
		},
	}
}
