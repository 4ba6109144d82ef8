package enums

import "fmt"

// MaintenanceStatus tracks a maintenance task's progress. Overdue is a
// derived classification applied when a scheduled date has passed.
type MaintenanceStatus string

const (
	MaintenanceStatusScheduled  MaintenanceStatus = "scheduled"
	MaintenanceStatusInProgress MaintenanceStatus = "in-progress"
	MaintenanceStatusCompleted  MaintenanceStatus = "completed"
	MaintenanceStatusCancelled  MaintenanceStatus = "cancelled"
	MaintenanceStatusOverdue    MaintenanceStatus = "overdue"
)

var validMaintenanceStatuses = []MaintenanceStatus{
	MaintenanceStatusScheduled,
	MaintenanceStatusInProgress,
	MaintenanceStatusCompleted,
	MaintenanceStatusCancelled,
	MaintenanceStatusOverdue,
}

// String implements fmt.Stringer.
func (s MaintenanceStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known MaintenanceStatus.
func (s MaintenanceStatus) IsValid() bool {
	for _, candidate := range validMaintenanceStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the task can no longer change status.
func (s MaintenanceStatus) IsTerminal() bool {
	return s == MaintenanceStatusCompleted || s == MaintenanceStatusCancelled
}

// ParseMaintenanceStatus converts raw input into a MaintenanceStatus.
func ParseMaintenanceStatus(value string) (MaintenanceStatus, error) {
	for _, candidate := range validMaintenanceStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid maintenance status %q", value)
}
