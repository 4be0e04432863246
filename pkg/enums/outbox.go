package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type column of outbox_events.
type OutboxAggregateType string

const (
	AggregateLicense       OutboxAggregateType = "license"
	AggregateAvcb          OutboxAggregateType = "avcb"
	AggregateConditional   OutboxAggregateType = "conditional"
	AggregateCalendarEvent OutboxAggregateType = "calendar_event"
	AggregateWasteHandler  OutboxAggregateType = "waste_handler"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateLicense,
	AggregateAvcb,
	AggregateConditional,
	AggregateCalendarEvent,
	AggregateWasteHandler,
}

// IsValid reports whether the value matches a known aggregate type.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type column of outbox_events.
type OutboxEventType string

const (
	EventLicenseExpiringSoon      OutboxEventType = "license_expiring_soon"
	EventLicenseExpired           OutboxEventType = "license_expired"
	EventAvcbExpiringSoon         OutboxEventType = "avcb_expiring_soon"
	EventAvcbExpired              OutboxEventType = "avcb_expired"
	EventObligationOverdue        OutboxEventType = "obligation_overdue"
	EventObligationAdvanced       OutboxEventType = "obligation_advanced"
	EventReminderDue              OutboxEventType = "reminder_due"
	EventWasteLicenseExpiringSoon OutboxEventType = "waste_license_expiring_soon"
	EventWasteLicenseExpired      OutboxEventType = "waste_license_expired"
)

var validEventTypes = []OutboxEventType{
	EventLicenseExpiringSoon,
	EventLicenseExpired,
	EventAvcbExpiringSoon,
	EventAvcbExpired,
	EventObligationOverdue,
	EventObligationAdvanced,
	EventReminderDue,
	EventWasteLicenseExpiringSoon,
	EventWasteLicenseExpired,
}

// IsValid reports whether the value matches a known event type.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
