package enums

import (
	"fmt"
	"strings"
)

// ObligationStatus is the derived state of a conditional's current occurrence.
type ObligationStatus string

const (
	ObligationStatusPending   ObligationStatus = "pending"
	ObligationStatusDueSoon   ObligationStatus = "due_soon"
	ObligationStatusOverdue   ObligationStatus = "overdue"
	ObligationStatusFulfilled ObligationStatus = "fulfilled"
)

var validObligationStatuses = []ObligationStatus{
	ObligationStatusPending,
	ObligationStatusDueSoon,
	ObligationStatusOverdue,
	ObligationStatusFulfilled,
}

// String implements fmt.Stringer.
func (s ObligationStatus) String() string {
	return string(s)
}

// IsValid reports whether the value matches the obligation_status enum.
func (s ObligationStatus) IsValid() bool {
	for _, candidate := range validObligationStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseObligationStatus converts raw input into ObligationStatus.
func ParseObligationStatus(value string) (ObligationStatus, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range validObligationStatuses {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid obligation status %q", value)
}

// Frequency is how often a conditional recurs.
type Frequency string

const (
	FrequencyOneTime    Frequency = "one_time"
	FrequencyMonthly    Frequency = "monthly"
	FrequencyQuarterly  Frequency = "quarterly"
	FrequencySemiannual Frequency = "semiannual"
	FrequencyAnnual     Frequency = "annual"
)

var validFrequencies = []Frequency{
	FrequencyOneTime,
	FrequencyMonthly,
	FrequencyQuarterly,
	FrequencySemiannual,
	FrequencyAnnual,
}

var frequencyMonths = map[Frequency]int{
	FrequencyOneTime:    0,
	FrequencyMonthly:    1,
	FrequencyQuarterly:  3,
	FrequencySemiannual: 6,
	FrequencyAnnual:     12,
}

// String implements fmt.Stringer.
func (f Frequency) String() string {
	return string(f)
}

// IsValid reports whether the value matches the frequency enum.
func (f Frequency) IsValid() bool {
	_, ok := frequencyMonths[f]
	return ok
}

// Months returns the calendar interval in months; zero for one-time obligations.
func (f Frequency) Months() int {
	return frequencyMonths[f]
}

// IsPeriodic reports whether the obligation recurs.
func (f Frequency) IsPeriodic() bool {
	return f.Months() > 0
}

// ParseFrequency accepts the canonical values plus dashed and upper-case spellings.
func ParseFrequency(value string) (Frequency, error) {
	normalized := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(value)), "-", "_")
	for _, candidate := range validFrequencies {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid frequency %q", value)
}

// ExecutionOutcome records whether an execution satisfied the obligation.
type ExecutionOutcome string

const (
	ExecutionOutcomeCompleted ExecutionOutcome = "completed"
	ExecutionOutcomeFailed    ExecutionOutcome = "failed"
)

// String implements fmt.Stringer.
func (o ExecutionOutcome) String() string {
	return string(o)
}

// IsValid reports whether the value matches the execution_outcome enum.
func (o ExecutionOutcome) IsValid() bool {
	return o == ExecutionOutcomeCompleted || o == ExecutionOutcomeFailed
}

// ParseExecutionOutcome converts raw input into ExecutionOutcome.
func ParseExecutionOutcome(value string) (ExecutionOutcome, error) {
	candidate := ExecutionOutcome(strings.ToLower(strings.TrimSpace(value)))
	if !candidate.IsValid() {
		return "", fmt.Errorf("invalid execution outcome %q", value)
	}
	return candidate, nil
}
