package wizard

import (
	"github.com/dagym/contract-backend/internal/plans"
	"github.com/dagym/contract-backend/pkg/types"
)

const (
	StepBusiness       = 1
	StepAccount        = 2
	StepRepresentative = 3
	StepPlans          = 4
	StepPayment        = 5

	// FirstStep is where a fresh wizard starts.
	FirstStep = StepBusiness
	// LastStep is the final screen of the wizard.
	LastStep = StepPayment
)

type (
	// BusinessInfo is step 1. Empty strings mean "not yet provided".
	BusinessInfo = types.BusinessInfo
	// AccountInfo is step 2, the settlement account.
	AccountInfo = types.AccountInfo
	// RepresentativeInfo is step 3.
	RepresentativeInfo = types.RepresentativeInfo
)

// FormState is the wizard aggregate mutated through Reduce.
type FormState struct {
	CurrentStep        int                  `json:"currentStep"`
	BusinessInfo       BusinessInfo         `json:"businessInfo"`
	AccountInfo        AccountInfo          `json:"accountInfo"`
	RepresentativeInfo RepresentativeInfo   `json:"representativeInfo"`
	SelectedPlans      []plans.SelectedPlan `json:"selectedPlans"`
}

// InitialState returns the state of a fresh wizard.
func InitialState() FormState {
	return FormState{
		CurrentStep:   FirstStep,
		SelectedPlans: []plans.SelectedPlan{},
	}
}

// Clone returns a deep copy that shares no memory with s.
func (s FormState) Clone() FormState {
	out := s
	out.SelectedPlans = clonePlans(s.SelectedPlans)
	if s.RepresentativeInfo.AgreeToPersonalInfo != nil {
		agreed := *s.RepresentativeInfo.AgreeToPersonalInfo
		out.RepresentativeInfo.AgreeToPersonalInfo = &agreed
	}
	return out
}

// TotalAmount sums the selected plan prices.
func (s FormState) TotalAmount() int64 {
	return plans.Total(s.SelectedPlans)
}

func clonePlans(in []plans.SelectedPlan) []plans.SelectedPlan {
	out := make([]plans.SelectedPlan, len(in))
	copy(out, in)
	return out
}
