package wizard

import (
	"encoding/json"
	"fmt"

	"github.com/dagym/contract-backend/internal/plans"
)

// ActionType names a reducer action on the wire.
type ActionType string

const (
	ActionSetCurrentStep        ActionType = "SET_CURRENT_STEP"
	ActionSetBusinessInfo       ActionType = "SET_BUSINESS_INFO"
	ActionSetAccountInfo        ActionType = "SET_ACCOUNT_INFO"
	ActionSetRepresentativeInfo ActionType = "SET_REPRESENTATIVE_INFO"
	ActionSetSelectedPlans      ActionType = "SET_SELECTED_PLANS"
	ActionAddSelectedPlan       ActionType = "ADD_SELECTED_PLAN"
	ActionRemoveSelectedPlan    ActionType = "REMOVE_SELECTED_PLAN"
	ActionResetForm             ActionType = "RESET_FORM"
	ActionLoadDraft             ActionType = "LOAD_DRAFT"
)

// Action is one reducer input.
type Action interface {
	Type() ActionType
	apply(FormState) FormState
}

// BusinessInfoPatch overwrites only the fields that are non-nil.
type BusinessInfoPatch struct {
	BusinessName             *string `json:"businessName,omitempty"`
	BusinessNumber           *string `json:"businessNumber,omitempty"`
	RepresentativeName       *string `json:"representativeName,omitempty"`
	BusinessAddress          *string `json:"businessAddress,omitempty"`
	BusinessType             *string `json:"businessType,omitempty"`
	BusinessCategory         *string `json:"businessCategory,omitempty"`
	BusinessRegistrationCert *string `json:"businessRegistrationCert,omitempty"`
	SportsLicenseCert        *string `json:"sportsLicenseCert,omitempty"`
}

// AccountInfoPatch overwrites only the fields that are non-nil.
type AccountInfoPatch struct {
	BankName      *string `json:"bankName,omitempty"`
	AccountNumber *string `json:"accountNumber,omitempty"`
	AccountHolder *string `json:"accountHolder,omitempty"`
	BankbookPhoto *string `json:"bankbookPhoto,omitempty"`
}

// RepresentativeInfoPatch overwrites only the fields that are non-nil.
type RepresentativeInfoPatch struct {
	Name                *string `json:"name,omitempty"`
	PhoneNumber         *string `json:"phoneNumber,omitempty"`
	Address             *string `json:"address,omitempty"`
	AgreeToPersonalInfo *bool   `json:"agreeToPersonalInfo,omitempty"`
}

type SetCurrentStep struct{ Step int }
type MergeBusinessInfo struct{ Patch BusinessInfoPatch }
type MergeAccountInfo struct{ Patch AccountInfoPatch }
type MergeRepresentativeInfo struct{ Patch RepresentativeInfoPatch }
type ReplaceSelectedPlans struct{ Plans []plans.SelectedPlan }
type AddSelectedPlan struct{ Plan plans.SelectedPlan }
type RemoveSelectedPlan struct{ PlanID string }
type Reset struct{}
type LoadDraft struct{ State FormState }

func (SetCurrentStep) Type() ActionType          { return ActionSetCurrentStep }
func (MergeBusinessInfo) Type() ActionType       { return ActionSetBusinessInfo }
func (MergeAccountInfo) Type() ActionType        { return ActionSetAccountInfo }
func (MergeRepresentativeInfo) Type() ActionType { return ActionSetRepresentativeInfo }
func (ReplaceSelectedPlans) Type() ActionType    { return ActionSetSelectedPlans }
func (AddSelectedPlan) Type() ActionType         { return ActionAddSelectedPlan }
func (RemoveSelectedPlan) Type() ActionType      { return ActionRemoveSelectedPlan }
func (Reset) Type() ActionType                   { return ActionResetForm }
func (LoadDraft) Type() ActionType               { return ActionLoadDraft }

func (a SetCurrentStep) apply(s FormState) FormState {
	s.CurrentStep = a.Step
	return s
}

func (a MergeBusinessInfo) apply(s FormState) FormState {
	b := &s.BusinessInfo
	mergeString(&b.BusinessName, a.Patch.BusinessName)
	mergeString(&b.BusinessNumber, a.Patch.BusinessNumber)
	mergeString(&b.RepresentativeName, a.Patch.RepresentativeName)
	mergeString(&b.BusinessAddress, a.Patch.BusinessAddress)
	mergeString(&b.BusinessType, a.Patch.BusinessType)
	mergeString(&b.BusinessCategory, a.Patch.BusinessCategory)
	mergeString(&b.BusinessRegistrationCert, a.Patch.BusinessRegistrationCert)
	mergeString(&b.SportsLicenseCert, a.Patch.SportsLicenseCert)
	return s
}

func (a MergeAccountInfo) apply(s FormState) FormState {
	acc := &s.AccountInfo
	mergeString(&acc.BankName, a.Patch.BankName)
	mergeString(&acc.AccountNumber, a.Patch.AccountNumber)
	mergeString(&acc.AccountHolder, a.Patch.AccountHolder)
	mergeString(&acc.BankbookPhoto, a.Patch.BankbookPhoto)
	return s
}

func (a MergeRepresentativeInfo) apply(s FormState) FormState {
	rep := &s.RepresentativeInfo
	mergeString(&rep.Name, a.Patch.Name)
	mergeString(&rep.PhoneNumber, a.Patch.PhoneNumber)
	mergeString(&rep.Address, a.Patch.Address)
	if a.Patch.AgreeToPersonalInfo != nil {
		agreed := *a.Patch.AgreeToPersonalInfo
		rep.AgreeToPersonalInfo = &agreed
	}
	return s
}

func (a ReplaceSelectedPlans) apply(s FormState) FormState {
	s.SelectedPlans = clonePlans(a.Plans)
	return s
}

func (a AddSelectedPlan) apply(s FormState) FormState {
	s.SelectedPlans = append(s.SelectedPlans, a.Plan)
	return s
}

func (a RemoveSelectedPlan) apply(s FormState) FormState {
	kept := make([]plans.SelectedPlan, 0, len(s.SelectedPlans))
	for _, entry := range s.SelectedPlans {
		if entry.PlanID != a.PlanID {
			kept = append(kept, entry)
		}
	}
	s.SelectedPlans = kept
	return s
}

func (Reset) apply(FormState) FormState {
	return InitialState()
}

func (a LoadDraft) apply(FormState) FormState {
	loaded := a.State.Clone()
	if loaded.SelectedPlans == nil {
		loaded.SelectedPlans = []plans.SelectedPlan{}
	}
	return loaded
}

func mergeString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

// Envelope is the wire form of an action: {"type": "...", "payload": {...}}.
type Envelope struct {
	Type    ActionType      `json:"type" validate:"required"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Decode turns an envelope into an Action.
func (e Envelope) Decode() (Action, error) {
	switch e.Type {
	case ActionSetCurrentStep:
		var body struct {
			Step int `json:"step"`
		}
		if err := decodePayload(e, &body); err != nil {
			return nil, err
		}
		return SetCurrentStep{Step: body.Step}, nil
	case ActionSetBusinessInfo:
		var patch BusinessInfoPatch
		if err := decodePayload(e, &patch); err != nil {
			return nil, err
		}
		return MergeBusinessInfo{Patch: patch}, nil
	case ActionSetAccountInfo:
		var patch AccountInfoPatch
		if err := decodePayload(e, &patch); err != nil {
			return nil, err
		}
		return MergeAccountInfo{Patch: patch}, nil
	case ActionSetRepresentativeInfo:
		var patch RepresentativeInfoPatch
		if err := decodePayload(e, &patch); err != nil {
			return nil, err
		}
		return MergeRepresentativeInfo{Patch: patch}, nil
	case ActionSetSelectedPlans:
		var list []plans.SelectedPlan
		if err := decodePayload(e, &list); err != nil {
			return nil, err
		}
		return ReplaceSelectedPlans{Plans: list}, nil
	case ActionAddSelectedPlan:
		var plan plans.SelectedPlan
		if err := decodePayload(e, &plan); err != nil {
			return nil, err
		}
		return AddSelectedPlan{Plan: plan}, nil
	case ActionRemoveSelectedPlan:
		var body struct {
			PlanID string `json:"planId"`
		}
		if err := decodePayload(e, &body); err != nil {
			return nil, err
		}
		return RemoveSelectedPlan{PlanID: body.PlanID}, nil
	case ActionResetForm:
		return Reset{}, nil
	case ActionLoadDraft:
		var state FormState
		if err := decodePayload(e, &state); err != nil {
			return nil, err
		}
		return LoadDraft{State: state}, nil
	}
	return nil, fmt.Errorf("unknown action type %q", e.Type)
}

func decodePayload(e Envelope, dest any) error {
	if len(e.Payload) == 0 {
		return fmt.Errorf("action %s requires a payload", e.Type)
	}
	if err := json.Unmarshal(e.Payload, dest); err != nil {
		return fmt.Errorf("decode %s payload: %w", e.Type, err)
	}
	return nil
}
