package wizard

import "strings"

// StepInfo describes a wizard step for navigation.
type StepInfo struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Path string `json:"path"`
}

// StepStatus is the gate's view of one step for a given state.
type StepStatus struct {
	StepInfo
	Completed  bool `json:"completed"`
	Accessible bool `json:"accessible"`
	Current    bool `json:"current"`
}

var steps = []StepInfo{
	{ID: StepBusiness, Name: "사업자 정보", Path: "/contract/new/business"},
	{ID: StepAccount, Name: "정산 계좌", Path: "/contract/new/account"},
	{ID: StepRepresentative, Name: "대표자 정보", Path: "/contract/new/representative"},
	{ID: StepPlans, Name: "플랜 선택", Path: "/contract/new/plans"},
	{ID: StepPayment, Name: "결제", Path: "/contract/new/payment"},
}

// Steps lists the wizard steps in order.
func Steps() []StepInfo {
	out := make([]StepInfo, len(steps))
	copy(out, steps)
	return out
}

// IsStepCompleted reports whether the fields gating step are present. Steps without a rule,
// including the payment step, are never complete.
func IsStepCompleted(state FormState, step int) bool {
	switch step {
	case StepBusiness:
		b := state.BusinessInfo
		return present(b.BusinessName, b.BusinessNumber, b.RepresentativeName, b.BusinessAddress)
	case StepAccount:
		a := state.AccountInfo
		return present(a.BankName, a.AccountNumber, a.AccountHolder)
	case StepRepresentative:
		r := state.RepresentativeInfo
		return present(r.Name, r.PhoneNumber, r.Address)
	case StepPlans:
		return len(state.SelectedPlans) > 0
	default:
		return false
	}
}

// CanProceedToStep reports whether every step before step is complete. Step 1 and below are
// always reachable.
func CanProceedToStep(state FormState, step int) bool {
	if step <= FirstStep {
		return true
	}
	for prior := FirstStep; prior < step; prior++ {
		if !IsStepCompleted(state, prior) {
			return false
		}
	}
	return true
}

// Navigate moves the step pointer when the gate allows it. An inaccessible target leaves the state
// unchanged and reports false.
func Navigate(state FormState, step int) (FormState, bool) {
	if step < FirstStep || step > LastStep || !CanProceedToStep(state, step) {
		return state.Clone(), false
	}
	return Reduce(state, SetCurrentStep{Step: step}), true
}

// Progress evaluates the gate for every step.
func Progress(state FormState) []StepStatus {
	out := make([]StepStatus, 0, len(steps))
	for _, info := range steps {
		out = append(out, StepStatus{
			StepInfo:   info,
			Completed:  IsStepCompleted(state, info.ID),
			Accessible: CanProceedToStep(state, info.ID),
			Current:    state.CurrentStep == info.ID,
		})
	}
	return out
}

func present(values ...string) bool {
	for _, v := range values {
		if v == "" {
			return false
		}
	}
	return true
}

// IsBlank reports whether every step-1 to step-3 field is empty and nothing is selected.
func IsBlank(state FormState) bool {
	b, a, r := state.BusinessInfo, state.AccountInfo, state.RepresentativeInfo
	joined := strings.Join([]string{
		b.BusinessName, b.BusinessNumber, b.RepresentativeName, b.BusinessAddress, b.BusinessType, b.BusinessCategory,
		a.BankName, a.AccountNumber, a.AccountHolder,
		r.Name, r.PhoneNumber, r.Address,
	}, "")
	return joined == "" && len(state.SelectedPlans) == 0
}
