package enums

import (
	"fmt"
	"strings"
)

// ComplianceStatus is the lifecycle state derived for licenses and AVCB certificates.
type ComplianceStatus string

const (
	ComplianceStatusPending       ComplianceStatus = "pending"
	ComplianceStatusActive        ComplianceStatus = "active"
	ComplianceStatusExpiringSoon  ComplianceStatus = "expiring_soon"
	ComplianceStatusExpired       ComplianceStatus = "expired"
	ComplianceStatusIndeterminate ComplianceStatus = "indeterminate"
)

var validComplianceStatuses = []ComplianceStatus{
	ComplianceStatusPending,
	ComplianceStatusActive,
	ComplianceStatusExpiringSoon,
	ComplianceStatusExpired,
	ComplianceStatusIndeterminate,
}

// String implements fmt.Stringer.
func (s ComplianceStatus) String() string {
	return string(s)
}

// IsValid reports whether the value matches the compliance_status enum.
func (s ComplianceStatus) IsValid() bool {
	for _, candidate := range validComplianceStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// NeedsAttention is true for statuses a dashboard should highlight.
func (s ComplianceStatus) NeedsAttention() bool {
	return s == ComplianceStatusExpired || s == ComplianceStatusExpiringSoon || s == ComplianceStatusIndeterminate
}

// ParseComplianceStatus converts raw input into ComplianceStatus.
func ParseComplianceStatus(value string) (ComplianceStatus, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range validComplianceStatuses {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid compliance status %q", value)
}
