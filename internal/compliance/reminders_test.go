package compliance

import (
	"testing"
	"time"
)

func TestScheduleReminders_LeadDays(t *testing.T) {
	deadline := date(t, "2024-06-30")
	got := ScheduleReminders(deadline, []int{30, 7, 1}, date(t, "2024-05-01"))

	want := []string{"2024-05-31", "2024-06-23", "2024-06-29"}
	if len(got) != len(want) {
		t.Fatalf("expected %d reminders, got %d", len(want), len(got))
	}
	for i, expected := range want {
		if got[i].At.Format(time.DateOnly) != expected {
			t.Fatalf("reminder %d: expected %s, got %s", i, expected, got[i].At.Format(time.DateOnly))
		}
		if got[i].Elapsed {
			t.Fatalf("reminder %d should not be elapsed", i)
		}
	}
}

func TestScheduleReminders_DedupesSortsAndFlags(t *testing.T) {
	deadline := date(t, "2024-06-30")
	got := ScheduleReminders(deadline, []int{1, 7, 7, -3, 30, 0}, date(t, "2024-06-25"))

	if len(got) != 4 {
		t.Fatalf("expected 4 distinct reminders, got %d", len(got))
	}
	wantLeads := []int{30, 7, 1, 0}
	wantElapsed := []bool{true, true, false, false}
	for i := range got {
		if got[i].LeadDays != wantLeads[i] {
			t.Fatalf("reminder %d: expected lead %d, got %d", i, wantLeads[i], got[i].LeadDays)
		}
		if got[i].Elapsed != wantElapsed[i] {
			t.Fatalf("reminder %d: expected elapsed=%v", i, wantElapsed[i])
		}
		if got[i].At.After(deadline) {
			t.Fatalf("reminder %d after deadline", i)
		}
	}
}

func TestScheduleReminders_Empty(t *testing.T) {
	if got := ScheduleReminders(date(t, "2024-06-30"), nil, date(t, "2024-01-01")); len(got) != 0 {
		t.Fatalf("expected no reminders, got %d", len(got))
	}
}

func TestDueReminders_Window(t *testing.T) {
	schedule := ScheduleReminders(date(t, "2024-06-30"), []int{30, 7, 1}, date(t, "2024-06-24"))
	got := DueReminders(schedule, date(t, "2024-06-01"), date(t, "2024-06-24"))
	if len(got) != 1 || got[0].LeadDays != 7 {
		t.Fatalf("expected only the 7-day reminder, got %+v", got)
	}
}
