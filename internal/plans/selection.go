package plans

import (
	"errors"
	"fmt"

	"github.com/dagym/contract-backend/pkg/enums"
)

var (
	ErrUnknownPlan         = errors.New("unknown plan")
	ErrPrerequisiteMissing = errors.New("prerequisite plan not selected")
	ErrMultipleMainPlans   = errors.New("only one main plan may be selected")
	ErrPartnerFlagDerived  = errors.New("partner flag is derived from the selection")
	ErrInvalidBillingCycle = errors.New("invalid billing cycle")
	ErrDuplicateSelection  = errors.New("plan selected more than once")
)

// Selection is the plan list together with the pricing settings it was quoted at.
type Selection struct {
	Plans   []SelectedPlan     `json:"selectedPlans"`
	Cycle   enums.BillingCycle `json:"billingCycle"`
	Partner bool               `json:"isPartner"`
}

// Total sums the selection.
func (s Selection) Total() int64 {
	return Total(s.Plans)
}

// Has reports whether planID is in the selection.
func (s Selection) Has(planID string) bool {
	for _, entry := range s.Plans {
		if entry.PlanID == planID {
			return true
		}
	}
	return false
}

// Selector applies the category and prerequisite rules to a Selection.
//
// Every method returns a new Selection and leaves its input untouched.
type Selector struct {
	catalog *Catalog
	mode    PartnerMode
}

// NewSelector returns a Selector over catalog using the given partner mode.
func NewSelector(catalog *Catalog, mode PartnerMode) (*Selector, error) {
	if catalog == nil {
		return nil, errors.New("selector requires a catalog")
	}
	if mode != PartnerModeAuto && mode != PartnerModeManual {
		return nil, fmt.Errorf("invalid partner mode %q", mode)
	}
	return &Selector{catalog: catalog, mode: mode}, nil
}

// Catalog exposes the catalog the selector prices against.
func (s *Selector) Catalog() *Catalog {
	return s.catalog
}

// Mode returns the configured partner mode.
func (s *Selector) Mode() PartnerMode {
	return s.mode
}

// Select adds planID. A main plan replaces any other main plan; an addon other than the
// prerequisite is refused until the prerequisite is selected. Selecting a plan that is already
// present is a no-op.
func (s *Selector) Select(sel Selection, planID string) (Selection, error) {
	plan, ok := s.catalog.Lookup(planID)
	if !ok {
		return sel, fmt.Errorf("%w: %s", ErrUnknownPlan, planID)
	}
	sel = s.withCycle(sel)
	if sel.Has(planID) {
		return s.normalize(sel), nil
	}

	next := make([]SelectedPlan, 0, len(sel.Plans)+1)
	switch plan.Category() {
	case enums.PlanCategoryMain:
		for _, entry := range sel.Plans {
			if s.catalog.CategoryOf(entry.PlanID) == enums.PlanCategoryMain {
				continue
			}
			next = append(next, entry)
		}
	case enums.PlanCategoryAddon:
		if s.catalog.RequiresManager(planID) && !sel.Has(s.catalog.ManagerID()) {
			return sel, fmt.Errorf("%w: %s requires %s", ErrPrerequisiteMissing, planID, s.catalog.ManagerID())
		}
		next = append(next, sel.Plans...)
	default:
		next = append(next, sel.Plans...)
	}

	next = append(next, Quote(plan, sel.Cycle, sel.Partner))
	sel.Plans = next
	return s.normalize(sel), nil
}

// Deselect removes planID. Removing the prerequisite addon removes every addon with it.
// Removing a plan that is not selected is a no-op.
func (s *Selector) Deselect(sel Selection, planID string) (Selection, error) {
	if _, ok := s.catalog.Lookup(planID); !ok {
		return sel, fmt.Errorf("%w: %s", ErrUnknownPlan, planID)
	}
	sel = s.withCycle(sel)
	cascade := s.catalog.IsManager(planID)

	next := make([]SelectedPlan, 0, len(sel.Plans))
	for _, entry := range sel.Plans {
		if entry.PlanID == planID {
			continue
		}
		if cascade && s.catalog.CategoryOf(entry.PlanID) == enums.PlanCategoryAddon {
			continue
		}
		next = append(next, entry)
	}
	sel.Plans = next
	return s.normalize(sel), nil
}

// SetCycle switches the billing cycle and reprices every entry.
func (s *Selector) SetCycle(sel Selection, cycle enums.BillingCycle) (Selection, error) {
	if !cycle.IsValid() {
		return sel, fmt.Errorf("%w: %q", ErrInvalidBillingCycle, cycle)
	}
	sel.Cycle = cycle
	return s.normalize(sel), nil
}

// SetPartner toggles partner pricing. Only allowed in manual mode.
func (s *Selector) SetPartner(sel Selection, partner bool) (Selection, error) {
	if s.mode == PartnerModeAuto {
		return sel, ErrPartnerFlagDerived
	}
	sel.Partner = partner
	return s.normalize(sel), nil
}

// Normalize re-derives the partner flag (auto mode) and reprices every entry.
func (s *Selector) Normalize(sel Selection) Selection {
	return s.normalize(s.withCycle(sel))
}

// Validate checks a plan list built outside the selector: every plan known, no duplicates,
// at most one main plan, and no dependent addon without the prerequisite.
func (s *Selector) Validate(selected []SelectedPlan) error {
	seen := make(map[string]struct{}, len(selected))
	mains := 0
	hasManager := false
	for _, entry := range selected {
		plan, ok := s.catalog.Lookup(entry.PlanID)
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownPlan, entry.PlanID)
		}
		if _, dup := seen[entry.PlanID]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateSelection, entry.PlanID)
		}
		seen[entry.PlanID] = struct{}{}
		if plan.Category() == enums.PlanCategoryMain {
			mains++
		}
		if s.catalog.IsManager(entry.PlanID) {
			hasManager = true
		}
	}
	if mains > 1 {
		return ErrMultipleMainPlans
	}
	if hasManager {
		return nil
	}
	for _, entry := range selected {
		if s.catalog.RequiresManager(entry.PlanID) {
			return fmt.Errorf("%w: %s requires %s", ErrPrerequisiteMissing, entry.PlanID, s.catalog.ManagerID())
		}
	}
	return nil
}

func (s *Selector) withCycle(sel Selection) Selection {
	if !sel.Cycle.IsValid() {
		sel.Cycle = enums.BillingCycleYearly
	}
	return sel
}

func (s *Selector) normalize(sel Selection) Selection {
	if s.mode == PartnerModeAuto {
		sel.Partner = DerivePartner(s.catalog, sel.Plans)
	}
	sel.Plans = Reprice(s.catalog, sel.Plans, sel.Cycle, sel.Partner)
	return sel
}
