package enums

import (
	"fmt"
	"strings"
)

// EntityKind tags the owner of a polymorphic reference (attachments, calendar events).
type EntityKind string

const (
	EntityKindClient       EntityKind = "client"
	EntityKindProject      EntityKind = "project"
	EntityKindLicense      EntityKind = "license"
	EntityKindAvcb         EntityKind = "avcb"
	EntityKindConditional  EntityKind = "conditional"
	EntityKindExecution    EntityKind = "conditional_execution"
	EntityKindProcess      EntityKind = "process"
	EntityKindWasteHandler EntityKind = "waste_handler"
)

var validEntityKinds = []EntityKind{
	EntityKindClient,
	EntityKindProject,
	EntityKindLicense,
	EntityKindAvcb,
	EntityKindConditional,
	EntityKindExecution,
	EntityKindProcess,
	EntityKindWasteHandler,
}

// String implements fmt.Stringer.
func (k EntityKind) String() string {
	return string(k)
}

// IsValid reports whether the value matches the entity_kind enum.
func (k EntityKind) IsValid() bool {
	for _, candidate := range validEntityKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// ParseEntityKind converts raw input into EntityKind.
func ParseEntityKind(value string) (EntityKind, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range validEntityKinds {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid entity kind %q", value)
}
