package plans

import (
	"fmt"
	"strings"

	"github.com/dagym/contract-backend/pkg/enums"
	"github.com/dagym/contract-backend/pkg/types"
)

// PartnerMode selects how the partner price tier is decided for a selection.
type PartnerMode string

const (
	// PartnerModeAuto applies partner pricing whenever a main plan is selected.
	PartnerModeAuto PartnerMode = "auto"
	// PartnerModeManual leaves the partner flag to an explicit operator toggle.
	PartnerModeManual PartnerMode = "manual"
)

// ParsePartnerMode converts configuration input into a PartnerMode.
func ParsePartnerMode(value string) (PartnerMode, error) {
	switch PartnerMode(strings.ToLower(strings.TrimSpace(value))) {
	case PartnerModeAuto:
		return PartnerModeAuto, nil
	case PartnerModeManual:
		return PartnerModeManual, nil
	}
	return "", fmt.Errorf("invalid partner mode %q", value)
}

// SelectedPlan is a priced snapshot of a catalog plan inside a selection.
type SelectedPlan = types.SelectedPlan

// Price quotes plan for the billing cycle and partner flag.
//
// Plans with a partner tier are quoted from the yearly tier price; the monthly figure is that
// price divided by twelve, rounded to the nearest won. Other plans use their authored price.
func Price(plan Plan, cycle enums.BillingCycle, partner bool) int64 {
	if tier, ok := plan.PartnerPricing(); ok {
		yearly := tier.NonPartnerPrice
		if partner {
			yearly = tier.PartnerPrice
		}
		if cycle == enums.BillingCycleMonthly {
			return roundDiv(yearly, 12)
		}
		return yearly
	}
	if cycle == enums.BillingCycleMonthly {
		return plan.MonthlyPrice()
	}
	return plan.YearlyPrice()
}

// Quote builds the selection entry for plan at the given settings.
func Quote(plan Plan, cycle enums.BillingCycle, partner bool) SelectedPlan {
	return SelectedPlan{
		PlanID:      plan.ID(),
		PlanName:    plan.Name(),
		BillingType: cycle,
		Price:       Price(plan, cycle, partner),
	}
}

// Reprice recomputes every entry for the given settings. Entries whose plan is missing from the
// catalog are carried over untouched.
func Reprice(catalog *Catalog, selected []SelectedPlan, cycle enums.BillingCycle, partner bool) []SelectedPlan {
	out := make([]SelectedPlan, 0, len(selected))
	for _, entry := range selected {
		plan, ok := catalog.Lookup(entry.PlanID)
		if !ok {
			out = append(out, entry)
			continue
		}
		priced := entry
		priced.BillingType = cycle
		priced.Price = Price(plan, cycle, partner)
		out = append(out, priced)
	}
	return out
}

// DerivePartner reports whether any selected plan is a main plan.
func DerivePartner(catalog *Catalog, selected []SelectedPlan) bool {
	for _, entry := range selected {
		if catalog.CategoryOf(entry.PlanID) == enums.PlanCategoryMain {
			return true
		}
	}
	return false
}

// Total sums the price snapshots.
func Total(selected []SelectedPlan) int64 {
	var total int64
	for _, entry := range selected {
		total += entry.Price
	}
	return total
}

// roundDiv divides n by d, rounding halves away from zero.
func roundDiv(n, d int64) int64 {
	if d == 0 {
		return 0
	}
	if n < 0 {
		return -roundDiv(-n, d)
	}
	return (2*n + d) / (2 * d)
}
