package compliance

import (
	"sort"
	"time"
)

// DefaultLeadDays is used when neither the event nor configuration provide lead days.
var DefaultLeadDays = []int{30, 7, 1}

// Reminder is one notification instant ahead of a deadline.
type Reminder struct {
	LeadDays int       `json:"lead_days"`
	At       time.Time `json:"at"`
	Elapsed  bool      `json:"elapsed"`
}

// ScheduleReminders places one reminder per distinct lead day before deadline,
// sorted by time. Negative lead days are ignored. Reminders whose instant is
// not after now are kept and flagged Elapsed.
func ScheduleReminders(deadline time.Time, leadDays []int, now time.Time) []Reminder {
	seen := make(map[int]struct{}, len(leadDays))
	out := make([]Reminder, 0, len(leadDays))
	for _, d := range leadDays {
		if d < 0 {
			continue
		}
		if _, dup := seen[d]; dup {
			continue
		}
		seen[d] = struct{}{}
		at := deadline.AddDate(0, 0, -d)
		out = append(out, Reminder{
			LeadDays: d,
			At:       at,
			Elapsed:  !at.After(now),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].At.Before(out[j].At)
	})
	return out
}

// DueReminders returns the reminders that became due in (since, now].
func DueReminders(schedule []Reminder, since, now time.Time) []Reminder {
	var due []Reminder
	for _, r := range schedule {
		if r.At.After(since) && !r.At.After(now) {
			due = append(due, r)
		}
	}
	return due
}
