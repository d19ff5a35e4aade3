package plans

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dagym/contract-backend/pkg/enums"
)

const (
	// ManagerPlanID is the addon every other addon depends on.
	ManagerPlanID = "manager"
	// FreePlanID is the zero-priced main plan.
	FreePlanID = "free"
)

// PartnerPricing holds the yearly price pair for plans quoted differently to affiliated businesses.
type PartnerPricing struct {
	PartnerPrice    int64 `json:"partnerPrice"`
	NonPartnerPrice int64 `json:"nonPartnerPrice"`
}

// PlanParams is the raw input for NewPlan.
type PlanParams struct {
	ID             string
	Name           string
	MonthlyPrice   int64
	YearlyPrice    int64
	Category       enums.PlanCategory
	Required       bool
	PartnerPricing *PartnerPricing
}

// Plan is an immutable catalog entry. Construct it with NewPlan.
type Plan struct {
	id       string
	name     string
	monthly  int64
	yearly   int64
	category enums.PlanCategory
	required bool
	partner  *PartnerPricing
}

// NewPlan validates params and returns a catalog entry.
func NewPlan(params PlanParams) (Plan, error) {
	id := strings.TrimSpace(params.ID)
	if id == "" {
		return Plan{}, errors.New("plan id is required")
	}
	if strings.TrimSpace(params.Name) == "" {
		return Plan{}, fmt.Errorf("plan %s: name is required", id)
	}
	if !params.Category.IsValid() {
		return Plan{}, fmt.Errorf("plan %s: invalid category %q", id, params.Category)
	}
	if params.MonthlyPrice < 0 || params.YearlyPrice < 0 {
		return Plan{}, fmt.Errorf("plan %s: prices must be non-negative", id)
	}

	var partner *PartnerPricing
	if params.PartnerPricing != nil {
		if params.PartnerPricing.PartnerPrice < 0 || params.PartnerPricing.NonPartnerPrice < 0 {
			return Plan{}, fmt.Errorf("plan %s: partner prices must be non-negative", id)
		}
		if params.PartnerPricing.PartnerPrice > params.PartnerPricing.NonPartnerPrice {
			return Plan{}, fmt.Errorf("plan %s: partner price exceeds non-partner price", id)
		}
		copied := *params.PartnerPricing
		partner = &copied
	}

	return Plan{
		id:       id,
		name:     strings.TrimSpace(params.Name),
		monthly:  params.MonthlyPrice,
		yearly:   params.YearlyPrice,
		category: params.Category,
		required: params.Required,
		partner:  partner,
	}, nil
}

func (p Plan) ID() string                   { return p.id }
func (p Plan) Name() string                 { return p.name }
func (p Plan) MonthlyPrice() int64          { return p.monthly }
func (p Plan) YearlyPrice() int64           { return p.yearly }
func (p Plan) Category() enums.PlanCategory { return p.category }
func (p Plan) Required() bool               { return p.required }

// PartnerPricing returns the partner tier when the plan defines one.
func (p Plan) PartnerPricing() (PartnerPricing, bool) {
	if p.partner == nil {
		return PartnerPricing{}, false
	}
	return *p.partner, true
}

// Descriptor is the wire shape of a catalog entry.
type Descriptor struct {
	ID              string             `json:"id"`
	Name            string             `json:"name"`
	MonthlyPrice    int64              `json:"monthlyPrice"`
	YearlyPrice     int64              `json:"yearlyPrice"`
	Category        enums.PlanCategory `json:"category"`
	IsRequired      bool               `json:"isRequired"`
	PartnerPrice    *int64             `json:"partnerPrice,omitempty"`
	NonPartnerPrice *int64             `json:"nonPartnerPrice,omitempty"`
	RequiresPlanID  string             `json:"requiresPlanId,omitempty"`
}

// Catalog is the fixed, ordered list of purchasable plans.
type Catalog struct {
	plans     []Plan
	byID      map[string]Plan
	managerID string
}

// NewCatalog indexes plans and checks that managerID names an addon in the list.
func NewCatalog(entries []Plan, managerID string) (*Catalog, error) {
	if len(entries) == 0 {
		return nil, errors.New("catalog requires at least one plan")
	}
	byID := make(map[string]Plan, len(entries))
	ordered := make([]Plan, 0, len(entries))
	for _, plan := range entries {
		if plan.id == "" {
			return nil, errors.New("catalog contains an unconstructed plan")
		}
		if _, dup := byID[plan.id]; dup {
			return nil, fmt.Errorf("duplicate plan id %q", plan.id)
		}
		byID[plan.id] = plan
		ordered = append(ordered, plan)
	}
	if managerID != "" {
		manager, ok := byID[managerID]
		if !ok {
			return nil, fmt.Errorf("prerequisite plan %q not in catalog", managerID)
		}
		if manager.category != enums.PlanCategoryAddon {
			return nil, fmt.Errorf("prerequisite plan %q must be an addon", managerID)
		}
	}
	return &Catalog{plans: ordered, byID: byID, managerID: managerID}, nil
}

// Lookup returns the plan with the given id.
func (c *Catalog) Lookup(id string) (Plan, bool) {
	plan, ok := c.byID[id]
	return plan, ok
}

// Plans returns every plan in catalog order.
func (c *Catalog) Plans() []Plan {
	out := make([]Plan, len(c.plans))
	copy(out, c.plans)
	return out
}

// ByCategory returns the plans in one category, in catalog order.
func (c *Catalog) ByCategory(category enums.PlanCategory) []Plan {
	out := []Plan{}
	for _, plan := range c.plans {
		if plan.category == category {
			out = append(out, plan)
		}
	}
	return out
}

// ManagerID returns the prerequisite addon id, or "" when addons are independent.
func (c *Catalog) ManagerID() string {
	return c.managerID
}

// IsManager reports whether id is the prerequisite addon.
func (c *Catalog) IsManager(id string) bool {
	return c.managerID != "" && id == c.managerID
}

// RequiresManager reports whether selecting id needs the prerequisite addon first.
func (c *Catalog) RequiresManager(id string) bool {
	plan, ok := c.byID[id]
	if !ok || c.managerID == "" {
		return false
	}
	return plan.category == enums.PlanCategoryAddon && id != c.managerID
}

// CategoryOf returns the category of id, or "" when unknown.
func (c *Catalog) CategoryOf(id string) enums.PlanCategory {
	if plan, ok := c.byID[id]; ok {
		return plan.category
	}
	return ""
}

// Describe renders every plan for the console.
func (c *Catalog) Describe() []Descriptor {
	out := make([]Descriptor, 0, len(c.plans))
	for _, plan := range c.plans {
		desc := Descriptor{
			ID:           plan.id,
			Name:         plan.name,
			MonthlyPrice: plan.monthly,
			YearlyPrice:  plan.yearly,
			Category:     plan.category,
			IsRequired:   plan.required,
		}
		if tier, ok := plan.PartnerPricing(); ok {
			partner, nonPartner := tier.PartnerPrice, tier.NonPartnerPrice
			desc.PartnerPrice = &partner
			desc.NonPartnerPrice = &nonPartner
		}
		if c.RequiresManager(plan.id) {
			desc.RequiresPlanID = c.managerID
		}
		out = append(out, desc)
	}
	return out
}

var defaultPlanParams = []PlanParams{
	{ID: FreePlanID, Name: "무료플랜", Category: enums.PlanCategoryMain},
	{ID: "light", Name: "라이트플랜", MonthlyPrice: 165000, YearlyPrice: 1188000, Category: enums.PlanCategoryMain},
	{ID: "standard", Name: "스탠다드플랜", MonthlyPrice: 517000, YearlyPrice: 3828000, Category: enums.PlanCategoryMain},
	{
		ID:             ManagerPlanID,
		Name:           "다짐매니저 (회원관리프로그램)",
		MonthlyPrice:   53900,
		YearlyPrice:    646800,
		Category:       enums.PlanCategoryAddon,
		PartnerPricing: &PartnerPricing{PartnerPrice: 20900, NonPartnerPrice: 53900},
	},
	{
		ID:             "data-migration",
		Name:           "데이터이관 (필요시 선택)",
		YearlyPrice:    770000,
		Category:       enums.PlanCategoryAddon,
		PartnerPricing: &PartnerPricing{PartnerPrice: 330000, NonPartnerPrice: 770000},
	},
	{ID: "multi-branch", Name: "다지점 관리", MonthlyPrice: 33000, YearlyPrice: 396000, Category: enums.PlanCategoryAddon},
	{ID: "unlimited-contract", Name: "전자계약서 무제한", MonthlyPrice: 22000, YearlyPrice: 264000, Category: enums.PlanCategoryAddon},
	{ID: "kiosk-access", Name: "키오스크와 출입제어", MonthlyPrice: 32000, YearlyPrice: 264000, Category: enums.PlanCategoryAddon},
}

// DefaultCatalog builds the production plan list.
func DefaultCatalog() (*Catalog, error) {
	entries := make([]Plan, 0, len(defaultPlanParams))
	for _, params := range defaultPlanParams {
		plan, err := NewPlan(params)
		if err != nil {
			return nil, err
		}
		entries = append(entries, plan)
	}
	return NewCatalog(entries, ManagerPlanID)
}

// MustDefaultCatalog is DefaultCatalog for package-level wiring; it panics on a malformed built-in list.
func MustDefaultCatalog() *Catalog {
	catalog, err := DefaultCatalog()
	if err != nil {
		panic(err)
	}
	return catalog
}
