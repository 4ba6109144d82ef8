package enums

import "fmt"

// ToolStatus tracks where a tool sits in its usage lifecycle. The string
// values are persisted and exported verbatim.
type ToolStatus string

const (
	ToolStatusAvailable   ToolStatus = "Available"
	ToolStatusInUse       ToolStatus = "In Use"
	ToolStatusMaintenance ToolStatus = "Maintenance"
	ToolStatusDamaged     ToolStatus = "Damaged"
	ToolStatusLost        ToolStatus = "Lost"
)

var validToolStatuses = []ToolStatus{
	ToolStatusAvailable,
	ToolStatusInUse,
	ToolStatusMaintenance,
	ToolStatusDamaged,
	ToolStatusLost,
}

// String implements fmt.Stringer.
func (s ToolStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known ToolStatus.
func (s ToolStatus) IsValid() bool {
	for _, candidate := range validToolStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseToolStatus converts raw input into a ToolStatus.
func ParseToolStatus(value string) (ToolStatus, error) {
	for _, candidate := range validToolStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid tool status %q", value)
}
