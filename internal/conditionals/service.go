package conditionals

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/sitecompliance-backend/internal/compliance"
	"github.com/angelmondragon/sitecompliance-backend/internal/locks"
	"github.com/angelmondragon/sitecompliance-backend/internal/repo"
	"github.com/angelmondragon/sitecompliance-backend/pkg/db/models"
	"github.com/angelmondragon/sitecompliance-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/sitecompliance-backend/pkg/errors"
	"github.com/angelmondragon/sitecompliance-backend/pkg/logger"
	"github.com/angelmondragon/sitecompliance-backend/pkg/metrics"
	"github.com/angelmondragon/sitecompliance-backend/pkg/outbox"
	"github.com/angelmondragon/sitecompliance-backend/pkg/outbox/payloads"
)

type conditionalsRepository interface {
	Create(ctx context.Context, c *models.Conditional) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Conditional, error)
	FindByIDWithTx(tx *gorm.DB, id uuid.UUID) (*models.Conditional, error)
	ListByLicense(ctx context.Context, licenseID uuid.UUID) ([]models.Conditional, error)
	ListExecutions(ctx context.Context, conditionalID uuid.UUID) ([]models.ConditionalExecution, error)
	ListExecutionsWithTx(tx *gorm.DB, conditionalID uuid.UUID) ([]models.ConditionalExecution, error)
	InsertExecutionWithTx(tx *gorm.DB, exec *models.ConditionalExecution) error
	FindExecution(ctx context.Context, conditionalID, executionID uuid.UUID) (*models.ConditionalExecution, error)
	UpdateExecutionNotes(ctx context.Context, executionID uuid.UUID, notes string) error
	UpdateScheduleWithTx(tx *gorm.DB, c models.Conditional, expectedVersion int64) error
}

type referenceResolver interface {
	Resolve(ctx context.Context, ref models.EntityRef) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type recordLocker interface {
	WithLock(ctx context.Context, id string, fn func(ctx context.Context) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service registers conditionals and serializes execution recording and
// advancement per conditional.
type Service interface {
	CreateConditional(ctx context.Context, input CreateConditionalInput) (*ConditionalView, error)
	GetConditional(ctx context.Context, id uuid.UUID) (*ConditionalView, error)
	ListByLicense(ctx context.Context, licenseID uuid.UUID) ([]ConditionalView, error)
	Occurrence(ctx context.Context, id uuid.UUID) (*OccurrenceView, error)
	ListExecutions(ctx context.Context, id uuid.UUID) ([]ExecutionView, error)
	RecordExecution(ctx context.Context, id uuid.UUID, input RecordExecutionInput) (*ExecutionResult, error)
	Advance(ctx context.Context, id uuid.UUID, input AdvanceInput) (*AdvanceResult, error)
	UpdateExecutionNotes(ctx context.Context, conditionalID, executionID uuid.UUID, notes string) (*ExecutionView, error)
}

// ServiceParams wires the service collaborators.
type ServiceParams struct {
	Repo    conditionalsRepository
	Refs    referenceResolver
	DB      txRunner
	Locks   recordLocker
	Outbox  outboxEmitter
	Engine  *compliance.Engine
	Metrics *metrics.ComplianceMetrics
	Logger  *logger.Logger
}

type service struct {
	repo    conditionalsRepository
	refs    referenceResolver
	db      txRunner
	locks   recordLocker
	outbox  outboxEmitter
	engine  *compliance.Engine
	metrics *metrics.ComplianceMetrics
	logg    *logger.Logger
	now     func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("conditionals repository required")
	}
	if params.Refs == nil {
		return nil, fmt.Errorf("reference resolver required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Locks == nil {
		return nil, fmt.Errorf("record locker required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if params.Engine == nil {
		return nil, fmt.Errorf("compliance engine required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		repo:    params.Repo,
		refs:    params.Refs,
		db:      params.DB,
		locks:   params.Locks,
		outbox:  params.Outbox,
		engine:  params.Engine,
		metrics: params.Metrics,
		logg:    logg,
		now:     time.Now,
	}, nil
}

func (s *service) CreateConditional(ctx context.Context, input CreateConditionalInput) (*ConditionalView, error) {
	description := strings.TrimSpace(input.Description)
	if description == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "description is required")
	}
	if !input.Frequency.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid frequency %q", input.Frequency)
	}
	due := compliance.DateOnly(&input.DueDate)
	if due == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "due_date is required")
	}
	if err := s.refs.Resolve(ctx, models.EntityRef{Kind: enums.EntityKindLicense, ID: input.LicenseID}); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	c := &models.Conditional{
		ID:                uuid.New(),
		LicenseID:         input.LicenseID,
		Description:       description,
		DueDate:           *due,
		AnchorDate:        *due,
		Frequency:         input.Frequency,
		StatusEvaluatedAt: &now,
		Version:           1,
	}
	c.Status = s.engine.ObligationStatus(*c, nil, now)
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create conditional")
	}
	s.logg.Info(s.logg.WithConditionalID(ctx, c.ID.String()), "conditional created")
	return s.view(*c, nil, now), nil
}

func (s *service) GetConditional(ctx context.Context, id uuid.UUID) (*ConditionalView, error) {
	c, history, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.view(*c, history, s.now().UTC()), nil
}

func (s *service) ListByLicense(ctx context.Context, licenseID uuid.UUID) ([]ConditionalView, error) {
	if err := s.refs.Resolve(ctx, models.EntityRef{Kind: enums.EntityKindLicense, ID: licenseID}); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListByLicense(ctx, licenseID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list conditionals")
	}
	now := s.now().UTC()
	out := make([]ConditionalView, 0, len(rows))
	for _, row := range rows {
		history, err := s.repo.ListExecutions(ctx, row.ID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list executions")
		}
		out = append(out, *s.view(row, history, now))
	}
	return out, nil
}

func (s *service) Occurrence(ctx context.Context, id uuid.UUID) (*OccurrenceView, error) {
	c, history, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	out := &OccurrenceView{
		ConditionalID:     c.ID,
		DueDate:           c.DueDate,
		Status:            s.engine.ObligationStatus(*c, history, now),
		CurrentExecutions: toExecutionViews(s.engine.CurrentExecutions(*c, history)),
	}
	if start, ok := compliance.CycleStart(*c); ok {
		out.CycleStart = &start
	}
	if next, ok := s.engine.FollowingDue(*c, now); ok {
		out.NextDueDate = &next
	}
	return out, nil
}

func (s *service) ListExecutions(ctx context.Context, id uuid.UUID) ([]ExecutionView, error) {
	_, history, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return toExecutionViews(history), nil
}

// RecordExecution appends an execution for the current occurrence and
// refreshes the stored status. It does not advance the due date.
func (s *service) RecordExecution(ctx context.Context, id uuid.UUID, input RecordExecutionInput) (*ExecutionResult, error) {
	var result *ExecutionResult
	ctx = s.logg.WithConditionalID(ctx, id.String())
	err := s.serialize(ctx, id, func(ctx context.Context) error {
		return s.db.WithTx(ctx, func(tx *gorm.DB) error {
			c, history, err := s.loadWithTx(tx, id)
			if err != nil {
				return err
			}
			if err := s.checkVersion(c, input.ExpectedVersion); err != nil {
				return s.stale(err)
			}

			now := s.now().UTC()
			exec, err := s.engine.RecordExecution(*c, history, compliance.ExecutionInput{
				ExecutedBy:           input.ExecutedBy,
				ExecutedAt:           input.ExecutedAt,
				Outcome:              input.Outcome,
				EvidenceAttachmentID: input.EvidenceAttachmentID,
				Notes:                input.Notes,
			}, now)
			if err != nil {
				return err
			}
			if err := s.repo.InsertExecutionWithTx(tx, &exec); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "insert execution")
			}

			history = append(history, exec)
			updated := *c
			updated.Status = s.engine.ObligationStatus(updated, history, now)
			updated.StatusEvaluatedAt = &now
			if err := s.repo.UpdateScheduleWithTx(tx, updated, c.Version); err != nil {
				return s.stale(err)
			}
			updated.Version = c.Version + 1

			result = &ExecutionResult{
				Execution:   toExecutionView(exec),
				Conditional: *s.view(updated, history, now),
			}
			return nil
		})
	})
	if err != nil {
		return nil, domainError(err)
	}
	s.metrics.IncExecution(string(input.Outcome))
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"execution_id": result.Execution.ID.String(),
		"outcome":      result.Execution.Outcome,
		"status":       result.Conditional.Status,
	}), "execution recorded")
	return result, nil
}

// Advance moves a fulfilled periodic conditional to its next occurrence.
// Calling it again without a new execution is a no-op.
func (s *service) Advance(ctx context.Context, id uuid.UUID, input AdvanceInput) (*AdvanceResult, error) {
	var result *AdvanceResult
	ctx = s.logg.WithConditionalID(ctx, id.String())
	err := s.serialize(ctx, id, func(ctx context.Context) error {
		return s.db.WithTx(ctx, func(tx *gorm.DB) error {
			c, history, err := s.loadWithTx(tx, id)
			if err != nil {
				return err
			}
			if err := s.checkVersion(c, input.ExpectedVersion); err != nil {
				return s.stale(err)
			}

			now := s.now().UTC()
			next, changed := s.engine.Advance(*c, history, now)
			result = &AdvanceResult{PreviousDueDate: c.DueDate, Advanced: changed}
			if !changed {
				result.Conditional = *s.view(*c, history, now)
				return nil
			}

			next.StatusEvaluatedAt = &now
			if err := s.repo.UpdateScheduleWithTx(tx, next, c.Version); err != nil {
				return s.stale(err)
			}
			next.Version = c.Version + 1
			result.Skipped = missedOccurrences(c.AnchorDate, c.DueDate, next.DueDate, c.Frequency)
			result.Conditional = *s.view(next, history, now)

			return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventObligationAdvanced,
				AggregateType: enums.AggregateConditional,
				AggregateID:   c.ID,
				DedupeKey:     fmt.Sprintf("%s:%s:%s", enums.EventObligationAdvanced, c.ID, c.DueDate.Format(time.DateOnly)),
				Data: payloads.ObligationAdvancedEvent{
					ConditionalID:   c.ID,
					LicenseID:       c.LicenseID,
					Frequency:       c.Frequency,
					PreviousDueDate: c.DueDate,
					DueDate:         next.DueDate,
					Skipped:         result.Skipped,
					Message:         fmt.Sprintf("Obligation %q is now due on %s", c.Description, next.DueDate.Format(time.DateOnly)),
				},
			})
		})
	})
	if err != nil {
		return nil, domainError(err)
	}
	if result.Advanced {
		s.metrics.IncAdvanced()
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{
			"previous_due_date": result.PreviousDueDate.Format(time.DateOnly),
			"due_date":          result.Conditional.DueDate.Format(time.DateOnly),
			"skipped":           result.Skipped,
		}), "conditional advanced")
	}
	return result, nil
}

// UpdateExecutionNotes is the only edit allowed on a recorded execution.
func (s *service) UpdateExecutionNotes(ctx context.Context, conditionalID, executionID uuid.UUID, notes string) (*ExecutionView, error) {
	exec, err := s.repo.FindExecution(ctx, conditionalID, executionID)
	if err != nil {
		return nil, repo.NotFound(err, "execution")
	}
	exec.Notes = strings.TrimSpace(notes)
	if err := s.repo.UpdateExecutionNotes(ctx, exec.ID, exec.Notes); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update execution notes")
	}
	v := toExecutionView(*exec)
	return &v, nil
}

func (s *service) serialize(ctx context.Context, id uuid.UUID, fn func(ctx context.Context) error) error {
	err := s.locks.WithLock(ctx, id.String(), fn)
	if errors.Is(err, locks.ErrNotAcquired) {
		s.metrics.IncConflict("locked")
		return pkgerrors.New(pkgerrors.CodeConflict, "conditional is being modified by another request").
			WithDetails(map[string]any{"conditional_id": id.String()})
	}
	return err
}

func (s *service) checkVersion(c *models.Conditional, expected *int64) error {
	if expected == nil || *expected == c.Version {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeConflict, "conditional version mismatch").
		WithDetails(map[string]any{
			"conditional_id":   c.ID.String(),
			"expected_version": *expected,
			"current_version":  c.Version,
		})
}

func (s *service) stale(err error) error {
	if pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
		s.metrics.IncConflict("stale_version")
	}
	return err
}

// domainError keeps typed errors and wraps anything else as internal.
func domainError(err error) error {
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "conditional write failed")
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.Conditional, []models.ConditionalExecution, error) {
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, nil, repo.NotFound(err, "conditional")
	}
	history, err := s.repo.ListExecutions(ctx, id)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list executions")
	}
	return c, history, nil
}

func (s *service) loadWithTx(tx *gorm.DB, id uuid.UUID) (*models.Conditional, []models.ConditionalExecution, error) {
	c, err := s.repo.FindByIDWithTx(tx, id)
	if err != nil {
		return nil, nil, repo.NotFound(err, "conditional")
	}
	history, err := s.repo.ListExecutionsWithTx(tx, id)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list executions")
	}
	return c, history, nil
}

func (s *service) view(c models.Conditional, history []models.ConditionalExecution, now time.Time) *ConditionalView {
	status := s.engine.ObligationStatus(c, history, now)
	days := *s.engine.DaysUntil(&c.DueDate, now)
	return &ConditionalView{
		ID:           c.ID,
		LicenseID:    c.LicenseID,
		Description:  c.Description,
		Frequency:    c.Frequency,
		DueDate:      c.DueDate,
		AnchorDate:   c.AnchorDate,
		Status:       status,
		DaysUntilDue: days,
		Version:      c.Version,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
}

// missedOccurrences counts the occurrences of the anchored series that fall
// strictly between previous and next. An occurrence's index in the series is
// its Occurrence.Skipped as seen from the day before it.
func missedOccurrences(anchor, previous, next time.Time, freq enums.Frequency) int {
	if freq.Months() <= 0 {
		return 0
	}
	index := func(due time.Time) int {
		return compliance.NextOccurrence(anchor, freq, due.AddDate(0, 0, -1)).Skipped
	}
	if missed := index(next) - index(previous) - 1; missed > 0 {
		return missed
	}
	return 0
}
