package enums

import "fmt"

// ToolCategory classifies inventory and drives serial number prefixes.
type ToolCategory string

const (
	ToolCategoryHandTools       ToolCategory = "Hand Tools"
	ToolCategoryPowerTools      ToolCategory = "Power Tools"
	ToolCategoryMeasuringTools  ToolCategory = "Measuring Tools"
	ToolCategorySafetyEquipment ToolCategory = "Safety Equipment"
	ToolCategoryOther           ToolCategory = "Other"
)

var validToolCategories = []ToolCategory{
	ToolCategoryHandTools,
	ToolCategoryPowerTools,
	ToolCategoryMeasuringTools,
	ToolCategorySafetyEquipment,
	ToolCategoryOther,
}

// String implements fmt.Stringer.
func (c ToolCategory) String() string {
	return string(c)
}

// IsValid reports whether the value is a known ToolCategory.
func (c ToolCategory) IsValid() bool {
	for _, candidate := range validToolCategories {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseToolCategory converts raw input into a ToolCategory.
func ParseToolCategory(value string) (ToolCategory, error) {
	for _, candidate := range validToolCategories {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid tool category %q", value)
}
