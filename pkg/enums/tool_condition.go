package enums

import "fmt"

// ToolCondition grades the physical state of a tool.
type ToolCondition string

const (
	ToolConditionExcellent ToolCondition = "Excellent"
	ToolConditionGood      ToolCondition = "Good"
	ToolConditionFair      ToolCondition = "Fair"
	ToolConditionPoor      ToolCondition = "Poor"
)

var validToolConditions = []ToolCondition{
	ToolConditionExcellent,
	ToolConditionGood,
	ToolConditionFair,
	ToolConditionPoor,
}

// String implements fmt.Stringer.
func (c ToolCondition) String() string {
	return string(c)
}

// IsValid reports whether the value is a known ToolCondition.
func (c ToolCondition) IsValid() bool {
	for _, candidate := range validToolConditions {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseToolCondition converts raw input into a ToolCondition.
func ParseToolCondition(value string) (ToolCondition, error) {
	for _, candidate := range validToolConditions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid tool condition %q", value)
}
