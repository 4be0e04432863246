package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/sitecompliance-backend/internal/compliance"
	"github.com/angelmondragon/sitecompliance-backend/internal/conditionals"
	"github.com/angelmondragon/sitecompliance-backend/pkg/db/models"
	"github.com/angelmondragon/sitecompliance-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/sitecompliance-backend/pkg/errors"
	"github.com/angelmondragon/sitecompliance-backend/pkg/logger"
	"github.com/angelmondragon/sitecompliance-backend/pkg/outbox"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ptrTime(v time.Time) *time.Time { return &v }

type statusJobHelper struct {
	job          *complianceStatusJob
	licenses     *fakeLicenseStatusRepo
	avcbs        *fakeAvcbStatusRepo
	handlers     *fakeWasteHandlerRepo
	conditionals *fakeObligationRepo
	advancer     *fakeAdvancer
	outbox       *fakeOutbox
}

func newStatusJobHelper(t *testing.T) *statusJobHelper {
	t.Helper()
	h := &statusJobHelper{
		licenses:     &fakeLicenseStatusRepo{},
		avcbs:        &fakeAvcbStatusRepo{},
		handlers:     &fakeWasteHandlerRepo{},
		conditionals: &fakeObligationRepo{},
		advancer:     &fakeAdvancer{},
		outbox:       &fakeOutbox{},
	}
	jobIface, err := NewComplianceStatusJob(ComplianceStatusJobParams{
		Logger:        logger.New(logger.Options{ServiceName: "test"}),
		DB:            fakeTxRunner{},
		Licenses:      h.licenses,
		Avcbs:         h.avcbs,
		Conditionals:  h.conditionals,
		WasteHandlers: h.handlers,
		Advancer:      h.advancer,
		Outbox:        h.outbox,
		Engine:        compliance.NewEngine(compliance.Options{WarningWindow: 30 * 24 * time.Hour}),
	})
	if err != nil {
		t.Fatalf("NewComplianceStatusJob: %v", err)
	}
	job, ok := jobIface.(*complianceStatusJob)
	if !ok {
		t.Fatalf("expected complianceStatusJob, got %T", jobIface)
	}
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	job.now = func() time.Time { return now }
	h.job = job
	return h
}

func TestComplianceStatusJobRefreshesArtifacts(t *testing.T) {
	h := newStatusJobHelper(t)
	expiring := models.License{ID: uuid.New(), Number: "LO-1", ExpiresAt: ptrTime(day(2024, 6, 10)), Status: enums.ComplianceStatusActive}
	expired := models.License{ID: uuid.New(), Number: "LO-2", ExpiresAt: ptrTime(day(2024, 5, 1)), Status: enums.ComplianceStatusExpiringSoon}
	undated := models.License{ID: uuid.New(), Number: "LO-3"}
	h.licenses.rows = []models.License{expiring, expired, undated}
	h.avcbs.rows = []models.Avcb{{ID: uuid.New(), PPCINumber: "PPCI-1", ExpiresAt: ptrTime(day(2025, 6, 1))}}

	if err := h.job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(h.licenses.updates) != 3 {
		t.Fatalf("expected 3 license status writes, got %d", len(h.licenses.updates))
	}
	if got := h.licenses.updates[expiring.ID]; got != enums.ComplianceStatusExpiringSoon {
		t.Fatalf("expected expiring_soon, got %s", got)
	}
	if got := h.licenses.updates[undated.ID]; got != enums.ComplianceStatusIndeterminate {
		t.Fatalf("expected indeterminate, got %s", got)
	}
	if len(h.avcbs.updates) != 1 {
		t.Fatalf("expected 1 avcb status write, got %d", len(h.avcbs.updates))
	}
	if len(h.outbox.events) != 2 {
		t.Fatalf("expected 2 notices, got %d", len(h.outbox.events))
	}
	if h.outbox.events[0].EventType != enums.EventLicenseExpiringSoon {
		t.Fatalf("unexpected first event %s", h.outbox.events[0].EventType)
	}
	if h.outbox.events[1].EventType != enums.EventLicenseExpired {
		t.Fatalf("unexpected second event %s", h.outbox.events[1].EventType)
	}

	if err := h.job.Run(context.Background()); err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if len(h.outbox.events) != 2 {
		t.Fatalf("expected notices to be deduplicated, got %d", len(h.outbox.events))
	}
}

func TestComplianceStatusJobRefreshesWasteHandlerLicences(t *testing.T) {
	h := newStatusJobHelper(t)
	carrier := models.WasteHandler{
		ID: uuid.New(), Role: enums.WasteHandlerTransporter, Name: "Transportes Beta", LicenseNumber: "LT-9",
		LicenseExpiresAt: ptrTime(day(2024, 5, 20)), Status: enums.ComplianceStatusExpiringSoon,
	}
	h.handlers.rows = []models.WasteHandler{carrier}

	if err := h.job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := h.handlers.updates[carrier.ID]; got != enums.ComplianceStatusExpired {
		t.Fatalf("expected expired, got %s", got)
	}
	if len(h.outbox.events) != 1 {
		t.Fatalf("expected 1 notice, got %d", len(h.outbox.events))
	}
	event := h.outbox.events[0]
	if event.EventType != enums.EventWasteLicenseExpired || event.AggregateType != enums.AggregateWasteHandler || event.AggregateID != carrier.ID {
		t.Fatalf("unexpected notice %+v", event)
	}
}

func TestComplianceStatusJobHandlesObligations(t *testing.T) {
	h := newStatusJobHelper(t)
	overdue := models.Conditional{
		ID: uuid.New(), Description: "Noise report", Frequency: enums.FrequencyMonthly,
		DueDate: day(2024, 5, 20), AnchorDate: day(2024, 5, 20),
	}
	quarterly := models.Conditional{
		ID: uuid.New(), Description: "Water sampling", Frequency: enums.FrequencyQuarterly,
		DueDate: day(2024, 6, 15), AnchorDate: day(2024, 3, 15),
	}
	once := models.Conditional{
		ID: uuid.New(), Description: "Tree survey", Frequency: enums.FrequencyOneTime,
		DueDate: day(2024, 5, 1), AnchorDate: day(2024, 5, 1),
	}
	h.conditionals.rows = []models.Conditional{overdue, quarterly, once}
	h.conditionals.executions = map[uuid.UUID][]models.ConditionalExecution{
		quarterly.ID: {{ConditionalID: quarterly.ID, OccurrenceDue: ptrTime(quarterly.DueDate), ExecutedBy: "eng", ExecutedAt: day(2024, 6, 1), Outcome: enums.ExecutionOutcomeCompleted}},
		once.ID:      {{ConditionalID: once.ID, OccurrenceDue: ptrTime(once.DueDate), ExecutedBy: "eng", ExecutedAt: day(2024, 4, 28), Outcome: enums.ExecutionOutcomeCompleted}},
	}
	h.advancer.result = &conditionals.AdvanceResult{Advanced: true, Conditional: conditionals.ConditionalView{Status: enums.ObligationStatusPending}}

	if err := h.job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(h.advancer.calls) != 1 || h.advancer.calls[0] != quarterly.ID {
		t.Fatalf("expected quarterly obligation advanced, got %v", h.advancer.calls)
	}
	if got := h.conditionals.updates[overdue.ID]; got != enums.ObligationStatusOverdue {
		t.Fatalf("expected overdue, got %s", got)
	}
	if got := h.conditionals.updates[once.ID]; got != enums.ObligationStatusFulfilled {
		t.Fatalf("expected fulfilled, got %s", got)
	}
	if _, ok := h.conditionals.updates[quarterly.ID]; ok {
		t.Fatal("advanced obligation must not be written by the job")
	}
	if len(h.outbox.events) != 1 || h.outbox.events[0].EventType != enums.EventObligationOverdue {
		t.Fatalf("expected one overdue notice, got %v", h.outbox.events)
	}
}

func TestComplianceStatusJobSkipsBusyObligation(t *testing.T) {
	h := newStatusJobHelper(t)
	c := models.Conditional{ID: uuid.New(), Frequency: enums.FrequencyMonthly, DueDate: day(2024, 6, 5), AnchorDate: day(2024, 6, 5)}
	h.conditionals.rows = []models.Conditional{c}
	h.conditionals.executions = map[uuid.UUID][]models.ConditionalExecution{
		c.ID: {{ConditionalID: c.ID, OccurrenceDue: ptrTime(c.DueDate), ExecutedBy: "x", ExecutedAt: day(2024, 6, 1), Outcome: enums.ExecutionOutcomeCompleted}},
	}
	h.advancer.err = pkgerrors.New(pkgerrors.CodeConflict, "busy")
	if err := h.job.Run(context.Background()); err != nil {
		t.Fatalf("expected conflict to be skipped, got %v", err)
	}

	h.advancer.err = errors.New("db down")
	if err := h.job.Run(context.Background()); err == nil {
		t.Fatal("expected advance failure to surface")
	}
}

type fakeLicenseStatusRepo struct {
	rows    []models.License
	updates map[uuid.UUID]enums.ComplianceStatus
}

func (f *fakeLicenseStatusRepo) ListAll(context.Context) ([]models.License, error) {
	return f.rows, nil
}

func (f *fakeLicenseStatusRepo) UpdateStatusWithTx(tx *gorm.DB, id uuid.UUID, status enums.ComplianceStatus, evaluatedAt time.Time) error {
	if f.updates == nil {
		f.updates = map[uuid.UUID]enums.ComplianceStatus{}
	}
	f.updates[id] = status
	return nil
}

type fakeAvcbStatusRepo struct {
	rows    []models.Avcb
	updates map[uuid.UUID]enums.ComplianceStatus
}

func (f *fakeAvcbStatusRepo) ListAll(context.Context) ([]models.Avcb, error) {
	return f.rows, nil
}

func (f *fakeAvcbStatusRepo) UpdateStatusWithTx(tx *gorm.DB, id uuid.UUID, status enums.ComplianceStatus, evaluatedAt time.Time) error {
	if f.updates == nil {
		f.updates = map[uuid.UUID]enums.ComplianceStatus{}
	}
	f.updates[id] = status
	return nil
}

type fakeWasteHandlerRepo struct {
	rows    []models.WasteHandler
	updates map[uuid.UUID]enums.ComplianceStatus
}

func (f *fakeWasteHandlerRepo) ListAll(context.Context) ([]models.WasteHandler, error) {
	return f.rows, nil
}

func (f *fakeWasteHandlerRepo) UpdateStatusWithTx(tx *gorm.DB, id uuid.UUID, status enums.ComplianceStatus, evaluatedAt time.Time) error {
	if f.updates == nil {
		f.updates = map[uuid.UUID]enums.ComplianceStatus{}
	}
	f.updates[id] = status
	return nil
}

type fakeObligationRepo struct {
	rows       []models.Conditional
	executions map[uuid.UUID][]models.ConditionalExecution
	updates    map[uuid.UUID]enums.ObligationStatus
}

func (f *fakeObligationRepo) ListAll(context.Context) ([]models.Conditional, error) {
	return f.rows, nil
}

func (f *fakeObligationRepo) ListExecutionsFor(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID][]models.ConditionalExecution, error) {
	return f.executions, nil
}

func (f *fakeObligationRepo) UpdateStatusWithTx(tx *gorm.DB, id uuid.UUID, status enums.ObligationStatus, evaluatedAt time.Time) error {
	if f.updates == nil {
		f.updates = map[uuid.UUID]enums.ObligationStatus{}
	}
	f.updates[id] = status
	return nil
}

type fakeAdvancer struct {
	calls  []uuid.UUID
	result *conditionals.AdvanceResult
	err    error
}

func (f *fakeAdvancer) Advance(ctx context.Context, id uuid.UUID, input conditionals.AdvanceInput) (*conditionals.AdvanceResult, error) {
	f.calls = append(f.calls, id)
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeOutbox struct {
	events []outbox.DomainEvent
	keys   map[string]struct{}
}

func (f *fakeOutbox) EmitOnce(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) (bool, error) {
	if f.keys == nil {
		f.keys = map[string]struct{}{}
	}
	if _, ok := f.keys[event.DedupeKey]; ok {
		return false, nil
	}
	f.keys[event.DedupeKey] = struct{}{}
	f.events = append(f.events, event)
	return true, nil
}

type fakeTxRunner struct{}

func (fakeTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}
