package compliance

import (
	"time"

	"github.com/angelmondragon/sitecompliance-backend/pkg/enums"
)

// Occurrence is a computed due date plus the number of whole intervals that
// were stepped over to reach it.
type Occurrence struct {
	Due     time.Time `json:"due"`
	Skipped int       `json:"skipped"`
}

// AddMonths shifts t by whole calendar months, clamping the day to the last day
// of the target month. Clock and location are preserved.
func AddMonths(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	hh, mm, ss := t.Clock()
	first := time.Date(y, m+time.Month(months), 1, 0, 0, 0, 0, t.Location())
	if last := daysIn(first.Year(), first.Month(), t.Location()); d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, hh, mm, ss, t.Nanosecond(), t.Location())
}

func daysIn(year int, month time.Month, loc *time.Location) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}

// NextOccurrence returns the first occurrence of a series anchored at anchor
// that falls strictly after now. One-time obligations return the anchor as-is.
// Each candidate is computed from the anchor itself so month-end clamping never
// drifts (Jan 31 -> Feb 29 -> Mar 31).
func NextOccurrence(anchor time.Time, freq enums.Frequency, now time.Time) Occurrence {
	n := freq.Months()
	if n <= 0 {
		return Occurrence{Due: anchor}
	}

	elapsed := (now.Year()-anchor.Year())*12 + int(now.Month()) - int(anchor.Month())
	k := elapsed/n - 1
	if k < 0 {
		k = 0
	}
	for {
		candidate := AddMonths(anchor, k*n)
		if candidate.After(now) {
			return Occurrence{Due: candidate, Skipped: k}
		}
		k++
	}
}

// NextOccurrence is the day-precision variant: a candidate on today's date is
// not "after now".
func (e *Engine) NextOccurrence(anchor time.Time, freq enums.Frequency, now time.Time) Occurrence {
	return NextOccurrence(calendarDay(anchor), freq, e.Today(now))
}
