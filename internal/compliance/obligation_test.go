package compliance

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/sitecompliance-backend/pkg/db/models"
	"github.com/angelmondragon/sitecompliance-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/sitecompliance-backend/pkg/errors"
)

func monthlyConditional(t *testing.T, due string) models.Conditional {
	t.Helper()
	return models.Conditional{
		ID:          uuid.New(),
		LicenseID:   uuid.New(),
		Description: "Monthly groundwater report",
		DueDate:     date(t, due),
		AnchorDate:  date(t, due),
		Frequency:   enums.FrequencyMonthly,
		Version:     1,
	}
}

func execution(t *testing.T, executedAt string, outcome enums.ExecutionOutcome, occurrence *time.Time) models.ConditionalExecution {
	t.Helper()
	at := date(t, executedAt).Add(9 * time.Hour)
	return models.ConditionalExecution{
		ID:            uuid.New(),
		ExecutedBy:    "inspector",
		ExecutedAt:    at,
		Outcome:       outcome,
		OccurrenceDue: occurrence,
		CreatedAt:     at,
	}
}

func TestObligationStatus_WithoutExecutions(t *testing.T) {
	engine := newTestEngine()
	c := monthlyConditional(t, "2024-04-10")

	cases := []struct {
		now  string
		want enums.ObligationStatus
	}{
		{"2024-01-01", enums.ObligationStatusPending},
		{"2024-03-20", enums.ObligationStatusDueSoon},
		{"2024-04-10", enums.ObligationStatusDueSoon},
		{"2024-04-11", enums.ObligationStatusOverdue},
	}
	for _, tc := range cases {
		if got := engine.ObligationStatus(c, nil, date(t, tc.now)); got != tc.want {
			t.Fatalf("now=%s: expected %s, got %s", tc.now, tc.want, got)
		}
	}
}

func TestObligationStatus_CompletedInCycleFulfills(t *testing.T) {
	engine := newTestEngine()
	c := monthlyConditional(t, "2024-04-10")
	history := []models.ConditionalExecution{
		execution(t, "2024-03-25", enums.ExecutionOutcomeCompleted, nil),
	}

	if got := engine.ObligationStatus(c, history, date(t, "2024-04-20")); got != enums.ObligationStatusFulfilled {
		t.Fatalf("expected fulfilled, got %s", got)
	}
}

func TestObligationStatus_ExecutionBeforeCycleIgnored(t *testing.T) {
	engine := newTestEngine()
	c := monthlyConditional(t, "2024-04-10")
	history := []models.ConditionalExecution{
		execution(t, "2024-03-01", enums.ExecutionOutcomeCompleted, nil),
	}

	if got := engine.ObligationStatus(c, history, date(t, "2024-04-20")); got != enums.ObligationStatusOverdue {
		t.Fatalf("expected overdue, got %s", got)
	}
}

func TestObligationStatus_CycleBoundary(t *testing.T) {
	c := monthlyConditional(t, "2024-04-10")
	history := []models.ConditionalExecution{
		execution(t, "2024-03-10", enums.ExecutionOutcomeCompleted, nil),
	}
	now := date(t, "2024-04-01")

	inclusive := newTestEngine()
	if got := inclusive.ObligationStatus(c, history, now); got != enums.ObligationStatusFulfilled {
		t.Fatalf("inclusive boundary: expected fulfilled, got %s", got)
	}

	exclusive := NewEngine(Options{WarningWindow: 30 * day, ExclusiveCycleBoundary: true})
	if got := exclusive.ObligationStatus(c, history, now); got != enums.ObligationStatusDueSoon {
		t.Fatalf("exclusive boundary: expected due_soon, got %s", got)
	}
}

func TestObligationStatus_LatestExecutionWins(t *testing.T) {
	engine := newTestEngine()
	c := monthlyConditional(t, "2024-04-10")
	history := []models.ConditionalExecution{
		execution(t, "2024-03-20", enums.ExecutionOutcomeCompleted, nil),
		execution(t, "2024-03-28", enums.ExecutionOutcomeFailed, nil),
	}

	if got := engine.ObligationStatus(c, history, date(t, "2024-04-01")); got != enums.ObligationStatusDueSoon {
		t.Fatalf("expected due_soon after failed retry, got %s", got)
	}
}

func TestObligationStatus_BoundExecutionOnlyCountsForItsOccurrence(t *testing.T) {
	engine := newTestEngine()
	c := monthlyConditional(t, "2024-05-10")
	previous := date(t, "2024-04-10")
	history := []models.ConditionalExecution{
		execution(t, "2024-04-15", enums.ExecutionOutcomeCompleted, &previous),
	}

	if got := engine.ObligationStatus(c, history, date(t, "2024-04-20")); got != enums.ObligationStatusDueSoon {
		t.Fatalf("expected execution for the previous occurrence to be ignored, got %s", got)
	}
}

func TestObligationStatus_OneTimeHasNoLowerBound(t *testing.T) {
	engine := newTestEngine()
	c := monthlyConditional(t, "2024-04-10")
	c.Frequency = enums.FrequencyOneTime
	history := []models.ConditionalExecution{
		execution(t, "2022-01-01", enums.ExecutionOutcomeCompleted, nil),
	}

	if got := engine.ObligationStatus(c, history, date(t, "2024-06-01")); got != enums.ObligationStatusFulfilled {
		t.Fatalf("expected fulfilled, got %s", got)
	}
}

func TestRecordExecution_RejectsFutureExecution(t *testing.T) {
	engine := newTestEngine()
	c := monthlyConditional(t, "2024-04-10")
	now := date(t, "2024-04-01").Add(12 * time.Hour)

	_, err := engine.RecordExecution(c, nil, ExecutionInput{
		ExecutedBy: "inspector",
		ExecutedAt: now.AddDate(0, 0, 1),
		Outcome:    enums.ExecutionOutcomeCompleted,
	}, now)
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestRecordExecution_Validation(t *testing.T) {
	engine := newTestEngine()
	c := monthlyConditional(t, "2024-04-10")
	now := date(t, "2024-04-01")

	cases := map[string]ExecutionInput{
		"missing executor": {ExecutedAt: now, Outcome: enums.ExecutionOutcomeCompleted},
		"blank executor":   {ExecutedBy: "   ", ExecutedAt: now, Outcome: enums.ExecutionOutcomeCompleted},
		"missing time":     {ExecutedBy: "inspector", Outcome: enums.ExecutionOutcomeCompleted},
		"bad outcome":      {ExecutedBy: "inspector", ExecutedAt: now, Outcome: "skipped"},
	}
	for name, input := range cases {
		if _, err := engine.RecordExecution(c, nil, input, now); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
			t.Fatalf("%s: expected validation error, got %v", name, err)
		}
	}
}

func TestRecordExecution_BindsToCurrentDueDate(t *testing.T) {
	engine := newTestEngine()
	c := monthlyConditional(t, "2024-04-10")
	now := date(t, "2024-04-01").Add(12 * time.Hour)

	exec, err := engine.RecordExecution(c, nil, ExecutionInput{
		ExecutedBy: " inspector ",
		ExecutedAt: now.Add(-time.Hour),
		Outcome:    enums.ExecutionOutcomeCompleted,
		Notes:      " all wells sampled ",
	}, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if exec.ID == uuid.Nil || exec.ConditionalID != c.ID {
		t.Fatalf("expected identifiers to be set, got %+v", exec)
	}
	if exec.OccurrenceDue == nil || !exec.OccurrenceDue.Equal(c.DueDate) {
		t.Fatalf("expected occurrence due %s, got %v", c.DueDate, exec.OccurrenceDue)
	}
	if exec.ExecutedBy != "inspector" || exec.Notes != "all wells sampled" {
		t.Fatalf("expected trimmed fields, got %q / %q", exec.ExecutedBy, exec.Notes)
	}
}

func TestRecordExecution_TerminalOneTime(t *testing.T) {
	engine := newTestEngine()
	c := monthlyConditional(t, "2024-04-10")
	c.Frequency = enums.FrequencyOneTime
	now := date(t, "2024-04-01")
	history := []models.ConditionalExecution{
		execution(t, "2024-03-01", enums.ExecutionOutcomeCompleted, nil),
	}

	_, err := engine.RecordExecution(c, history, ExecutionInput{
		ExecutedBy: "inspector",
		ExecutedAt: now,
		Outcome:    enums.ExecutionOutcomeCompleted,
	}, now)
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for terminal obligation, got %v", err)
	}
}

func TestRecordExecution_RejectsExecutionBeforeCycle(t *testing.T) {
	engine := newTestEngine()
	c := monthlyConditional(t, "2024-04-10")
	now := date(t, "2024-04-20")

	_, err := engine.RecordExecution(c, nil, ExecutionInput{
		ExecutedBy: "inspector",
		ExecutedAt: date(t, "2024-03-01"),
		Outcome:    enums.ExecutionOutcomeCompleted,
	}, now)
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for stale execution, got %v", err)
	}
	if got := engine.ObligationStatus(c, nil, now); got != enums.ObligationStatusOverdue {
		t.Fatalf("expected obligation to remain overdue, got %s", got)
	}
}

func TestRecordExecution_CycleBoundary(t *testing.T) {
	c := monthlyConditional(t, "2024-04-10")
	now := date(t, "2024-04-20")
	input := ExecutionInput{
		ExecutedBy: "inspector",
		ExecutedAt: date(t, "2024-03-10").Add(8 * time.Hour),
		Outcome:    enums.ExecutionOutcomeCompleted,
	}

	inclusive := newTestEngine()
	exec, err := inclusive.RecordExecution(c, nil, input, now)
	if err != nil {
		t.Fatalf("expected boundary execution to be accepted, got %v", err)
	}
	if got := inclusive.ObligationStatus(c, []models.ConditionalExecution{exec}, now); got != enums.ObligationStatusFulfilled {
		t.Fatalf("expected fulfilled, got %s", got)
	}

	exclusive := NewEngine(Options{WarningWindow: 30 * 24 * time.Hour, ExclusiveCycleBoundary: true})
	if _, err := exclusive.RecordExecution(c, nil, input, now); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error on exclusive boundary, got %v", err)
	}
}

func TestAdvance_MovesFulfilledToNextOccurrence(t *testing.T) {
	engine := newTestEngine()
	c := monthlyConditional(t, "2024-04-10")
	now := date(t, "2024-04-05").Add(10 * time.Hour)

	exec, err := engine.RecordExecution(c, nil, ExecutionInput{
		ExecutedBy: "inspector",
		ExecutedAt: now,
		Outcome:    enums.ExecutionOutcomeCompleted,
	}, now)
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	history := []models.ConditionalExecution{exec}

	advanced, changed := engine.Advance(c, history, now)
	if !changed {
		t.Fatal("expected advance to change the due date")
	}
	if advanced.DueDate.Format(time.DateOnly) != "2024-05-10" {
		t.Fatalf("expected 2024-05-10, got %s", advanced.DueDate.Format(time.DateOnly))
	}
	if advanced.Status != enums.ObligationStatusPending {
		t.Fatalf("expected pending after advance, got %s", advanced.Status)
	}

	again, changed := engine.Advance(advanced, history, now)
	if changed || !again.DueDate.Equal(advanced.DueDate) {
		t.Fatalf("expected second advance to be a no-op, got %s", again.DueDate.Format(time.DateOnly))
	}
}

func TestAdvance_LateExecutionSkipsMissedOccurrences(t *testing.T) {
	engine := newTestEngine()
	c := monthlyConditional(t, "2024-01-10")
	now := date(t, "2024-04-05")

	exec, err := engine.RecordExecution(c, nil, ExecutionInput{
		ExecutedBy: "inspector",
		ExecutedAt: now,
		Outcome:    enums.ExecutionOutcomeCompleted,
	}, now)
	if err != nil {
		t.Fatalf("record: %v", err)
	}

	advanced, changed := engine.Advance(c, []models.ConditionalExecution{exec}, now)
	if !changed || advanced.DueDate.Format(time.DateOnly) != "2024-04-10" {
		t.Fatalf("expected 2024-04-10, got %s (changed=%v)", advanced.DueDate.Format(time.DateOnly), changed)
	}
}

func TestAdvance_MonthEndAnchorDoesNotDrift(t *testing.T) {
	engine := newTestEngine()
	c := monthlyConditional(t, "2024-02-29")
	c.AnchorDate = date(t, "2024-01-31")
	now := date(t, "2024-02-20")

	exec, err := engine.RecordExecution(c, nil, ExecutionInput{
		ExecutedBy: "inspector",
		ExecutedAt: now,
		Outcome:    enums.ExecutionOutcomeCompleted,
	}, now)
	if err != nil {
		t.Fatalf("record: %v", err)
	}

	advanced, _ := engine.Advance(c, []models.ConditionalExecution{exec}, now)
	if advanced.DueDate.Format(time.DateOnly) != "2024-03-31" {
		t.Fatalf("expected 2024-03-31, got %s", advanced.DueDate.Format(time.DateOnly))
	}
}

func TestAdvance_NoOpCases(t *testing.T) {
	engine := newTestEngine()
	now := date(t, "2024-04-05")

	pending := monthlyConditional(t, "2024-04-10")
	if _, changed := engine.Advance(pending, nil, now); changed {
		t.Fatal("expected unfulfilled obligation to stay put")
	}

	oneTime := monthlyConditional(t, "2024-04-10")
	oneTime.Frequency = enums.FrequencyOneTime
	history := []models.ConditionalExecution{execution(t, "2024-04-01", enums.ExecutionOutcomeCompleted, nil)}
	if _, changed := engine.Advance(oneTime, history, now); changed {
		t.Fatal("expected one-time obligation to stay put")
	}
}

func TestFollowingDue(t *testing.T) {
	engine := newTestEngine()
	c := monthlyConditional(t, "2024-01-31")

	next, ok := engine.FollowingDue(c, date(t, "2024-01-15"))
	if !ok || next.Format(time.DateOnly) != "2024-02-29" {
		t.Fatalf("expected 2024-02-29, got %s (ok=%v)", next.Format(time.DateOnly), ok)
	}

	next, _ = engine.FollowingDue(c, date(t, "2024-04-02"))
	if next.Format(time.DateOnly) != "2024-04-30" {
		t.Fatalf("expected missed cycles skipped to 2024-04-30, got %s", next.Format(time.DateOnly))
	}

	c.Frequency = enums.FrequencyOneTime
	if _, ok := engine.FollowingDue(c, date(t, "2024-01-15")); ok {
		t.Fatal("one-time obligations have no following due date")
	}
}
