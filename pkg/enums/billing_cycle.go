package enums

import (
	"fmt"
	"strings"
)

// BillingCycle is the payment period a plan is quoted for.
type BillingCycle string

const (
	BillingCycleMonthly BillingCycle = "monthly"
	BillingCycleYearly  BillingCycle = "yearly"
)

var validBillingCycles = []BillingCycle{
	BillingCycleMonthly,
	BillingCycleYearly,
}

// String implements fmt.Stringer.
func (b BillingCycle) String() string {
	return string(b)
}

// IsValid reports whether the value is a known BillingCycle.
func (b BillingCycle) IsValid() bool {
	for _, candidate := range validBillingCycles {
		if candidate == b {
			return true
		}
	}
	return false
}

// Label returns the console label for the cycle.
func (b BillingCycle) Label() string {
	switch b {
	case BillingCycleMonthly:
		return "월간"
	case BillingCycleYearly:
		return "연간"
	default:
		return string(b)
	}
}

// ParseBillingCycle converts raw input into a BillingCycle. Matching is case-insensitive.
func ParseBillingCycle(value string) (BillingCycle, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range validBillingCycles {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid billing cycle %q", value)
}
