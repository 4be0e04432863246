package enums

import (
	"fmt"
	"strings"
)

// WasteHandlerRole separates the licensed parties of a waste manifest.
type WasteHandlerRole string

const (
	WasteHandlerTransporter WasteHandlerRole = "transporter"
	WasteHandlerRecipient   WasteHandlerRole = "recipient"
)

var validWasteHandlerRoles = []WasteHandlerRole{
	WasteHandlerTransporter,
	WasteHandlerRecipient,
}

// String implements fmt.Stringer.
func (r WasteHandlerRole) String() string {
	return string(r)
}

// IsValid reports whether the value matches the waste_handler_role enum.
func (r WasteHandlerRole) IsValid() bool {
	for _, candidate := range validWasteHandlerRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseWasteHandlerRole converts raw input into WasteHandlerRole.
func ParseWasteHandlerRole(value string) (WasteHandlerRole, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range validWasteHandlerRoles {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid waste handler role %q", value)
}
