package compliance

import (
	"testing"
	"time"
)

func date(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.Parse(time.DateOnly, value)
	if err != nil {
		t.Fatalf("parse %q: %v", value, err)
	}
	return parsed
}

func datePtr(t *testing.T, value string) *time.Time {
	t.Helper()
	d := date(t, value)
	return &d
}

func newTestEngine() *Engine {
	return NewEngine(Options{WarningWindow: 30 * 24 * time.Hour})
}
