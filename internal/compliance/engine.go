// Package compliance derives statuses, due dates and reminder schedules for
// licenses, AVCB certificates and their conditional obligations. Everything in
// this package is pure: callers pass "now" explicitly and persist the results.
package compliance

import (
	"time"

	"github.com/angelmondragon/sitecompliance-backend/pkg/config"
)

const day = 24 * time.Hour

// DefaultWarningWindow applies when Options leaves the window unset.
const DefaultWarningWindow = 30 * day

// Options tunes the engine policy.
type Options struct {
	// WarningWindow is how far ahead of a deadline an item turns EXPIRING_SOON / DUE_SOON.
	WarningWindow time.Duration
	// ExclusiveCycleBoundary drops executions dated exactly on the previous cycle boundary.
	ExclusiveCycleBoundary bool
	// Location decides which calendar day an instant falls on. Defaults to UTC.
	Location *time.Location
}

// OptionsFromConfig maps the compliance configuration section onto engine options.
func OptionsFromConfig(cfg config.ComplianceConfig) Options {
	window := cfg.WarningWindow()
	if window == 0 {
		// an explicit zero disables the window
		window = -1
	}
	return Options{
		WarningWindow:          window,
		ExclusiveCycleBoundary: cfg.ExclusiveCycleBoundary(),
		Location:               cfg.Location(),
	}
}

// Engine evaluates compliance rules. It holds only immutable policy and is safe
// for concurrent use.
type Engine struct {
	warningWindow     time.Duration
	exclusiveBoundary bool
	loc               *time.Location
}

// NewEngine constructs an Engine. A negative warning window is treated as zero.
func NewEngine(opts Options) *Engine {
	window := opts.WarningWindow
	if window == 0 {
		window = DefaultWarningWindow
	}
	if window < 0 {
		window = 0
	}
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	return &Engine{
		warningWindow:     window,
		exclusiveBoundary: opts.ExclusiveCycleBoundary,
		loc:               loc,
	}
}

// WarningWindow returns the configured look-ahead.
func (e *Engine) WarningWindow() time.Duration {
	return e.warningWindow
}

// Today returns the calendar day now falls on in the engine location, as UTC midnight.
func (e *Engine) Today(now time.Time) time.Time {
	return calendarDay(now.In(e.loc))
}

// calendarDay drops the clock part of a stored date. Dates read back from the
// database arrive as UTC midnight, so the fields are taken as-is.
func calendarDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func daysBetween(from, to time.Time) int {
	return int(to.Sub(from) / day)
}

// DateOnly truncates a submitted or stored date to its calendar day. nil stays nil.
func DateOnly(t *time.Time) *time.Time {
	if t == nil || t.IsZero() {
		return nil
	}
	d := calendarDay(*t)
	return &d
}
