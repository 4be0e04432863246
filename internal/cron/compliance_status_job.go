package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/sitecompliance-backend/internal/compliance"
	"github.com/angelmondragon/sitecompliance-backend/internal/conditionals"
	"github.com/angelmondragon/sitecompliance-backend/pkg/db/models"
	"github.com/angelmondragon/sitecompliance-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/sitecompliance-backend/pkg/errors"
	"github.com/angelmondragon/sitecompliance-backend/pkg/logger"
	"github.com/angelmondragon/sitecompliance-backend/pkg/metrics"
	"github.com/angelmondragon/sitecompliance-backend/pkg/outbox"
	"github.com/angelmondragon/sitecompliance-backend/pkg/outbox/payloads"
)

const complianceStatusJobName = "compliance-status-refresh"

// ComplianceStatusJobParams configures the scheduled status refresh.
// WasteHandlers is optional; nil leaves waste handler licences unrefreshed.
type ComplianceStatusJobParams struct {
	Logger        *logger.Logger
	DB            txRunner
	Licenses      licenseStatusRepository
	Avcbs         avcbStatusRepository
	Conditionals  obligationStatusRepository
	WasteHandlers wasteHandlerStatusRepository
	Advancer      obligationAdvancer
	Outbox        outboxEmitter
	Engine        *compliance.Engine
	Metrics       *metrics.ComplianceMetrics
}

type licenseStatusRepository interface {
	ListAll(ctx context.Context) ([]models.License, error)
	UpdateStatusWithTx(tx *gorm.DB, id uuid.UUID, status enums.ComplianceStatus, evaluatedAt time.Time) error
}

type avcbStatusRepository interface {
	ListAll(ctx context.Context) ([]models.Avcb, error)
	UpdateStatusWithTx(tx *gorm.DB, id uuid.UUID, status enums.ComplianceStatus, evaluatedAt time.Time) error
}

type wasteHandlerStatusRepository interface {
	ListAll(ctx context.Context) ([]models.WasteHandler, error)
	UpdateStatusWithTx(tx *gorm.DB, id uuid.UUID, status enums.ComplianceStatus, evaluatedAt time.Time) error
}

type obligationStatusRepository interface {
	ListAll(ctx context.Context) ([]models.Conditional, error)
	ListExecutionsFor(ctx context.Context, conditionalIDs []uuid.UUID) (map[uuid.UUID][]models.ConditionalExecution, error)
	UpdateStatusWithTx(tx *gorm.DB, id uuid.UUID, status enums.ObligationStatus, evaluatedAt time.Time) error
}

type obligationAdvancer interface {
	Advance(ctx context.Context, id uuid.UUID, input conditionals.AdvanceInput) (*conditionals.AdvanceResult, error)
}

type outboxEmitter interface {
	EmitOnce(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) (bool, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// NewComplianceStatusJob constructs the job that recomputes and persists every
// derived status, advances fulfilled periodic obligations and queues notices.
func NewComplianceStatusJob(params ComplianceStatusJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Licenses == nil {
		return nil, fmt.Errorf("license repository required")
	}
	if params.Avcbs == nil {
		return nil, fmt.Errorf("avcb repository required")
	}
	if params.Conditionals == nil {
		return nil, fmt.Errorf("conditional repository required")
	}
	if params.Advancer == nil {
		return nil, fmt.Errorf("obligation advancer required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox service required")
	}
	if params.Engine == nil {
		return nil, fmt.Errorf("compliance engine required")
	}
	return &complianceStatusJob{
		logg:         params.Logger,
		db:           params.DB,
		licenses:     params.Licenses,
		avcbs:        params.Avcbs,
		conditionals: params.Conditionals,
		handlers:     params.WasteHandlers,
		advancer:     params.Advancer,
		outbox:       params.Outbox,
		engine:       params.Engine,
		metrics:      params.Metrics,
		now:          time.Now,
	}, nil
}

type complianceStatusJob struct {
	logg         *logger.Logger
	db           txRunner
	licenses     licenseStatusRepository
	avcbs        avcbStatusRepository
	conditionals obligationStatusRepository
	handlers     wasteHandlerStatusRepository
	advancer     obligationAdvancer
	outbox       outboxEmitter
	engine       *compliance.Engine
	metrics      *metrics.ComplianceMetrics
	now          func() time.Time
}

func (j *complianceStatusJob) Name() string { return complianceStatusJobName }

func (j *complianceStatusJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	return multierr.Combine(
		j.refreshLicenses(ctx, now),
		j.refreshAvcbs(ctx, now),
		j.refreshWasteHandlers(ctx, now),
		j.refreshObligations(ctx, now),
	)
}

// artifact is the part of a license, AVCB or waste handler licence the
// classifier and notices need.
type artifact struct {
	kind      enums.EntityKind
	id        uuid.UUID
	projectID uuid.UUID
	label     string
	issuedAt  *time.Time
	expiresAt *time.Time
	status    enums.ComplianceStatus
}

type artifactEvents struct {
	expiringSoon enums.OutboxEventType
	expired      enums.OutboxEventType
	aggregate    enums.OutboxAggregateType
	noun         string
}

var (
	licenseEvents = artifactEvents{
		expiringSoon: enums.EventLicenseExpiringSoon,
		expired:      enums.EventLicenseExpired,
		aggregate:    enums.AggregateLicense,
		noun:         "License",
	}
	avcbEvents = artifactEvents{
		expiringSoon: enums.EventAvcbExpiringSoon,
		expired:      enums.EventAvcbExpired,
		aggregate:    enums.AggregateAvcb,
		noun:         "AVCB",
	}
	wasteHandlerEvents = artifactEvents{
		expiringSoon: enums.EventWasteLicenseExpiringSoon,
		expired:      enums.EventWasteLicenseExpired,
		aggregate:    enums.AggregateWasteHandler,
		noun:         "Waste handler licence",
	}
)

func (j *complianceStatusJob) refreshLicenses(ctx context.Context, now time.Time) error {
	rows, err := j.licenses.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("list licenses: %w", err)
	}
	items := make([]artifact, 0, len(rows))
	for _, l := range rows {
		items = append(items, artifact{
			kind: enums.EntityKindLicense, id: l.ID, projectID: l.ProjectID, label: l.Number,
			issuedAt: l.IssuedAt, expiresAt: l.ExpiresAt, status: l.Status,
		})
	}
	return j.refreshArtifacts(ctx, now, items, licenseEvents, j.licenses.UpdateStatusWithTx)
}

func (j *complianceStatusJob) refreshAvcbs(ctx context.Context, now time.Time) error {
	rows, err := j.avcbs.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("list avcbs: %w", err)
	}
	items := make([]artifact, 0, len(rows))
	for _, a := range rows {
		items = append(items, artifact{
			kind: enums.EntityKindAvcb, id: a.ID, projectID: a.ProjectID, label: a.PPCINumber,
			issuedAt: a.IssuedAt, expiresAt: a.ExpiresAt, status: a.Status,
		})
	}
	return j.refreshArtifacts(ctx, now, items, avcbEvents, j.avcbs.UpdateStatusWithTx)
}

func (j *complianceStatusJob) refreshWasteHandlers(ctx context.Context, now time.Time) error {
	if j.handlers == nil {
		return nil
	}
	rows, err := j.handlers.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("list waste handlers: %w", err)
	}
	items := make([]artifact, 0, len(rows))
	for _, h := range rows {
		items = append(items, artifact{
			kind: enums.EntityKindWasteHandler, id: h.ID, label: h.LicenseNumber + " (" + h.Name + ")",
			issuedAt: h.LicenseIssuedAt, expiresAt: h.LicenseExpiresAt, status: h.Status,
		})
	}
	return j.refreshArtifacts(ctx, now, items, wasteHandlerEvents, j.handlers.UpdateStatusWithTx)
}

type statusWriter func(tx *gorm.DB, id uuid.UUID, status enums.ComplianceStatus, evaluatedAt time.Time) error

func (j *complianceStatusJob) refreshArtifacts(ctx context.Context, now time.Time, items []artifact, events artifactEvents, write statusWriter) error {
	var errs error
	counts := map[string]int{}
	changed, notices := 0, 0
	for _, item := range items {
		status := j.engine.Classify(item.issuedAt, item.expiresAt, now)
		counts[string(status)]++
		if status != item.status {
			changed++
		}
		err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
			if err := write(tx, item.id, status, now); err != nil {
				return err
			}
			event, ok := j.artifactNotice(item, status, events, now)
			if !ok {
				return nil
			}
			queued, err := j.outbox.EmitOnce(ctx, tx, event)
			if queued {
				notices++
			}
			return err
		})
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("refresh %s %s: %w", item.kind, item.id, err))
		}
	}
	j.metrics.SetArtifactCounts(string(events.aggregate), counts)
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"kind":    string(events.aggregate),
		"total":   len(items),
		"changed": changed,
		"notices": notices,
	}), "artifact statuses refreshed")
	return errs
}

func (j *complianceStatusJob) artifactNotice(item artifact, status enums.ComplianceStatus, events artifactEvents, now time.Time) (outbox.DomainEvent, bool) {
	if item.expiresAt == nil {
		return outbox.DomainEvent{}, false
	}
	expires := item.expiresAt.Format(time.DateOnly)
	days := j.engine.DaysUntil(item.expiresAt, now)
	var (
		eventType enums.OutboxEventType
		message   string
	)
	switch status {
	case enums.ComplianceStatusExpiringSoon:
		eventType = events.expiringSoon
		message = fmt.Sprintf("%s %s expires in %d day(s)", events.noun, item.label, derefDays(days))
	case enums.ComplianceStatusExpired:
		eventType = events.expired
		message = fmt.Sprintf("%s %s expired on %s", events.noun, item.label, expires)
	default:
		return outbox.DomainEvent{}, false
	}
	return outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: events.aggregate,
		AggregateID:   item.id,
		DedupeKey:     fmt.Sprintf("%s:%s:%s", eventType, item.id, expires),
		Actor:         outbox.SystemActor(complianceStatusJobName),
		OccurredAt:    now,
		Data: payloads.ArtifactStatusEvent{
			Kind:            item.kind,
			ArtifactID:      item.id,
			ProjectID:       item.projectID,
			Label:           item.label,
			Status:          status,
			PreviousStatus:  item.status,
			ExpiresAt:       item.expiresAt,
			DaysUntilExpiry: days,
			Message:         message,
		},
	}, true
}

func (j *complianceStatusJob) refreshObligations(ctx context.Context, now time.Time) error {
	rows, err := j.conditionals.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("list conditionals: %w", err)
	}
	ids := make([]uuid.UUID, 0, len(rows))
	for _, c := range rows {
		ids = append(ids, c.ID)
	}
	executions, err := j.conditionals.ListExecutionsFor(ctx, ids)
	if err != nil {
		return fmt.Errorf("list executions: %w", err)
	}

	var errs error
	counts := map[string]int{}
	advanced, notices := 0, 0
	for _, c := range rows {
		status := j.engine.ObligationStatus(c, executions[c.ID], now)
		if status == enums.ObligationStatusFulfilled && c.Frequency != enums.FrequencyOneTime {
			res, err := j.advancer.Advance(ctx, c.ID, conditionals.AdvanceInput{})
			switch {
			case pkgerrors.IsCode(err, pkgerrors.CodeConflict):
				// a concurrent writer owns it; the next run picks it up
				j.logg.Warn(j.logg.WithConditionalID(ctx, c.ID.String()), "skipping advance of busy conditional")
				counts[string(status)]++
				continue
			case err != nil:
				errs = multierr.Append(errs, fmt.Errorf("advance conditional %s: %w", c.ID, err))
				continue
			}
			if res.Advanced {
				advanced++
			}
			counts[string(res.Conditional.Status)]++
			continue
		}

		counts[string(status)]++
		err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
			if err := j.conditionals.UpdateStatusWithTx(tx, c.ID, status, now); err != nil {
				return err
			}
			if status != enums.ObligationStatusOverdue {
				return nil
			}
			queued, err := j.outbox.EmitOnce(ctx, tx, overdueNotice(c, j.engine, now))
			if queued {
				notices++
			}
			return err
		})
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("refresh conditional %s: %w", c.ID, err))
		}
	}
	j.metrics.SetObligationCounts(counts)
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"total":    len(rows),
		"advanced": advanced,
		"notices":  notices,
	}), "obligation statuses refreshed")
	return errs
}

func overdueNotice(c models.Conditional, engine *compliance.Engine, now time.Time) outbox.DomainEvent {
	due := c.DueDate.Format(time.DateOnly)
	overdue := 0
	if days := engine.DaysUntil(&c.DueDate, now); days != nil && *days < 0 {
		overdue = -*days
	}
	return outbox.DomainEvent{
		EventType:     enums.EventObligationOverdue,
		AggregateType: enums.AggregateConditional,
		AggregateID:   c.ID,
		DedupeKey:     fmt.Sprintf("%s:%s:%s", enums.EventObligationOverdue, c.ID, due),
		Actor:         outbox.SystemActor(complianceStatusJobName),
		OccurredAt:    now,
		Data: payloads.ObligationOverdueEvent{
			ConditionalID: c.ID,
			LicenseID:     c.LicenseID,
			Description:   c.Description,
			Frequency:     c.Frequency,
			DueDate:       c.DueDate,
			DaysOverdue:   overdue,
			Message:       fmt.Sprintf("Obligation %q is overdue since %s", c.Description, due),
		},
	}
}

func derefDays(d *int) int {
	if d == nil {
		return 0
	}
	return *d
}
