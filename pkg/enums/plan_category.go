package enums

import "fmt"

// PlanCategory groups catalog plans. Main plans are mutually exclusive, addons stack.
type PlanCategory string

const (
	PlanCategoryMain    PlanCategory = "main"
	PlanCategoryAddon   PlanCategory = "addon"
	PlanCategoryPartner PlanCategory = "partner"
)

var validPlanCategories = []PlanCategory{
	PlanCategoryMain,
	PlanCategoryAddon,
	PlanCategoryPartner,
}

// String implements fmt.Stringer.
func (p PlanCategory) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PlanCategory.
func (p PlanCategory) IsValid() bool {
	for _, candidate := range validPlanCategories {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePlanCategory converts raw input into a PlanCategory.
func ParsePlanCategory(value string) (PlanCategory, error) {
	for _, candidate := range validPlanCategories {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid plan category %q", value)
}
