package enums

import "fmt"

// MaintenanceType is the reason a maintenance task exists.
type MaintenanceType string

const (
	MaintenanceTypePreventive MaintenanceType = "preventive"
	MaintenanceTypeCorrective MaintenanceType = "corrective"
	MaintenanceTypeEmergency  MaintenanceType = "emergency"
	MaintenanceTypeInspection MaintenanceType = "inspection"
)

var validMaintenanceTypes = []MaintenanceType{
	MaintenanceTypePreventive,
	MaintenanceTypeCorrective,
	MaintenanceTypeEmergency,
	MaintenanceTypeInspection,
}

// String implements fmt.Stringer.
func (t MaintenanceType) String() string {
	return string(t)
}

// IsValid reports whether the value is a known MaintenanceType.
func (t MaintenanceType) IsValid() bool {
	for _, candidate := range validMaintenanceTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseMaintenanceType converts raw input into a MaintenanceType.
func ParseMaintenanceType(value string) (MaintenanceType, error) {
	for _, candidate := range validMaintenanceTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid maintenance type %q", value)
}
