package compliance

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/sitecompliance-backend/pkg/db/models"
	"github.com/angelmondragon/sitecompliance-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/sitecompliance-backend/pkg/errors"
)

// ExecutionInput carries what the caller knows about a performed obligation.
type ExecutionInput struct {
	ExecutedBy           string
	ExecutedAt           time.Time
	Outcome              enums.ExecutionOutcome
	EvidenceAttachmentID *uuid.UUID
	Notes                string
}

// CycleStart returns the first day of the cycle ending at the conditional's
// due date. One-time obligations have no lower bound (ok=false).
func CycleStart(c models.Conditional) (time.Time, bool) {
	n := c.Frequency.Months()
	if n <= 0 {
		return time.Time{}, false
	}
	return AddMonths(calendarDay(c.DueDate), -n), true
}

// CurrentExecutions filters history down to the executions that count toward
// the current occurrence, most recent first.
func (e *Engine) CurrentExecutions(c models.Conditional, history []models.ConditionalExecution) []models.ConditionalExecution {
	due := calendarDay(c.DueDate)
	start, bounded := CycleStart(c)

	out := make([]models.ConditionalExecution, 0, len(history))
	for _, exec := range history {
		if exec.OccurrenceDue != nil && !calendarDay(*exec.OccurrenceDue).Equal(due) {
			continue
		}
		if bounded && !e.withinCycle(start, exec.ExecutedAt) {
			continue
		}
		out = append(out, exec)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].ExecutedAt.Equal(out[j].ExecutedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ExecutedAt.After(out[j].ExecutedAt)
	})
	return out
}

// withinCycle reports whether executedAt falls on or after the cycle start,
// honoring the exclusive boundary setting.
func (e *Engine) withinCycle(start, executedAt time.Time) bool {
	executed := e.Today(executedAt)
	if executed.Before(start) {
		return false
	}
	return !(e.exclusiveBoundary && executed.Equal(start))
}

// ObligationStatus derives the state of the conditional's current occurrence.
// The most recent execution in the cycle decides fulfillment, so a later
// failed attempt reopens a previously completed one.
func (e *Engine) ObligationStatus(c models.Conditional, history []models.ConditionalExecution, now time.Time) enums.ObligationStatus {
	if current := e.CurrentExecutions(c, history); len(current) > 0 &&
		current[0].Outcome == enums.ExecutionOutcomeCompleted {
		return enums.ObligationStatusFulfilled
	}

	today := e.Today(now)
	due := calendarDay(c.DueDate)
	switch {
	case today.After(due):
		return enums.ObligationStatusOverdue
	case due.Sub(today) <= e.warningWindow:
		return enums.ObligationStatusDueSoon
	default:
		return enums.ObligationStatusPending
	}
}

// RecordExecution validates input and builds the execution record bound to the
// conditional's current due date. The record is not persisted here.
func (e *Engine) RecordExecution(
	c models.Conditional,
	history []models.ConditionalExecution,
	input ExecutionInput,
	now time.Time,
) (models.ConditionalExecution, error) {
	executedBy := strings.TrimSpace(input.ExecutedBy)
	if executedBy == "" {
		return models.ConditionalExecution{}, pkgerrors.New(pkgerrors.CodeValidation, "executed_by is required")
	}
	if input.ExecutedAt.IsZero() {
		return models.ConditionalExecution{}, pkgerrors.New(pkgerrors.CodeValidation, "executed_at is required")
	}
	if input.ExecutedAt.After(now) {
		return models.ConditionalExecution{}, pkgerrors.New(pkgerrors.CodeValidation, "executed_at cannot be in the future").
			WithDetails(map[string]any{
				"executed_at": input.ExecutedAt.Format(time.RFC3339),
				"now":         now.Format(time.RFC3339),
			})
	}
	if start, bounded := CycleStart(c); bounded && !e.withinCycle(start, input.ExecutedAt) {
		return models.ConditionalExecution{}, pkgerrors.New(pkgerrors.CodeValidation, "executed_at is before the current cycle").
			WithDetails(map[string]any{
				"executed_at": input.ExecutedAt.Format(time.RFC3339),
				"cycle_start": start.Format(time.DateOnly),
				"due_date":    calendarDay(c.DueDate).Format(time.DateOnly),
			})
	}
	if !input.Outcome.IsValid() {
		return models.ConditionalExecution{}, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid outcome %q", input.Outcome)
	}
	if !c.Frequency.IsPeriodic() && e.ObligationStatus(c, history, now) == enums.ObligationStatusFulfilled {
		return models.ConditionalExecution{}, pkgerrors.New(pkgerrors.CodeValidation, "one-time obligation is already fulfilled")
	}

	due := calendarDay(c.DueDate)
	return models.ConditionalExecution{
		ID:                   uuid.New(),
		ConditionalID:        c.ID,
		OccurrenceDue:        &due,
		ExecutedBy:           executedBy,
		ExecutedAt:           input.ExecutedAt,
		Outcome:              input.Outcome,
		EvidenceAttachmentID: input.EvidenceAttachmentID,
		Notes:                strings.TrimSpace(input.Notes),
		CreatedAt:            now,
		UpdatedAt:            now,
	}, nil
}

// Advance moves a fulfilled periodic obligation to its next occurrence, the
// first one strictly after both now and the current due date. It reports
// whether the due date changed; calling it again is a no-op because no
// execution is bound to the new due date yet.
func (e *Engine) Advance(c models.Conditional, history []models.ConditionalExecution, now time.Time) (models.Conditional, bool) {
	if !c.Frequency.IsPeriodic() {
		return c, false
	}
	if e.ObligationStatus(c, history, now) != enums.ObligationStatusFulfilled {
		return c, false
	}

	next, _ := e.FollowingDue(c, now)
	if c.AnchorDate.IsZero() || calendarDay(c.AnchorDate).After(calendarDay(c.DueDate)) {
		c.AnchorDate = calendarDay(c.DueDate)
	}
	c.DueDate = next
	c.Status = e.ObligationStatus(c, history, now)
	return c, true
}

// FollowingDue returns the due date a periodic conditional moves to once its
// current occurrence is fulfilled: the first occurrence of the anchor's
// schedule strictly after both now and the current due date.
func (e *Engine) FollowingDue(c models.Conditional, now time.Time) (time.Time, bool) {
	if !c.Frequency.IsPeriodic() {
		return time.Time{}, false
	}
	due := calendarDay(c.DueDate)
	after := e.Today(now)
	if due.After(after) {
		after = due
	}
	anchor := calendarDay(c.AnchorDate)
	if c.AnchorDate.IsZero() || anchor.After(due) {
		anchor = due
	}
	return NextOccurrence(anchor, c.Frequency, after).Due, true
}
