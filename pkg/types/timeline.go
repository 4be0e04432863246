package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// TimelineEntry is one step of a licensing process as reported by the agency.
type TimelineEntry struct {
	Status     string    `json:"status"`
	Note       string    `json:"note,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
	Extra      Metadata  `json:"extra,omitempty"`
}

// Timeline is an append-only list of entries stored as a jsonb array.
type Timeline []TimelineEntry

// Value implements driver.Valuer.
func (t Timeline) Value() (driver.Value, error) {
	if t == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]TimelineEntry(t))
	if err != nil {
		return nil, fmt.Errorf("timeline: marshal: %w", err)
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (t *Timeline) Scan(value any) error {
	raw, err := jsonBytes(value)
	if err != nil {
		return fmt.Errorf("timeline: %w", err)
	}
	if len(raw) == 0 {
		*t = Timeline{}
		return nil
	}
	var entries []TimelineEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return fmt.Errorf("timeline: unmarshal: %w", err)
	}
	*t = entries
	return nil
}

// Latest returns the most recent entry by OccurredAt.
func (t Timeline) Latest() (TimelineEntry, bool) {
	if len(t) == 0 {
		return TimelineEntry{}, false
	}
	latest := t[0]
	for _, entry := range t[1:] {
		if !entry.OccurredAt.Before(latest.OccurredAt) {
			latest = entry
		}
	}
	return latest, true
}
