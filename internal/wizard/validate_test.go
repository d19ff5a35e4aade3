package wizard

import (
	"testing"

	pkgerrors "github.com/dagym/contract-backend/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestValidateStepAcceptsFilledState(t *testing.T) {
	sv := NewStepValidator()
	state := filledState()
	for step := FirstStep; step <= LastStep; step++ {
		require.Nil(t, sv.ValidateStep(state, step), "step %d", step)
	}
	require.Nil(t, sv.ValidateBefore(state, LastStep))
}

func TestValidateStepBusinessFields(t *testing.T) {
	sv := NewStepValidator()
	state := Reduce(filledState(), MergeBusinessInfo{Patch: BusinessInfoPatch{
		BusinessNumber: strPtr("12-345"),
		BusinessName:   strPtr("A"),
	}})

	err := sv.ValidateStep(state, StepBusiness)
	require.NotNil(t, err)
	require.Equal(t, pkgerrors.CodeValidation, err.Code())
	fields, ok := err.Details().(map[string]string)
	require.True(t, ok)
	require.Contains(t, fields, "businessNumber")
	require.Contains(t, fields, "businessName")
	require.NotContains(t, fields, "businessAddress")
}

func TestValidateStepAccountRejectsUnknownBank(t *testing.T) {
	sv := NewStepValidator()
	state := Reduce(filledState(), MergeAccountInfo{Patch: AccountInfoPatch{
		BankName:      strPtr("Bank of Nowhere"),
		AccountNumber: strPtr("123-456"),
	}})

	err := sv.ValidateStep(state, StepAccount)
	require.NotNil(t, err)
	fields := err.Details().(map[string]string)
	require.Contains(t, fields, "bankName")
	require.Contains(t, fields, "accountNumber")
}

func TestValidateStepRepresentativeRequiresConsent(t *testing.T) {
	sv := NewStepValidator()
	state := Reduce(filledState(), MergeRepresentativeInfo{Patch: RepresentativeInfoPatch{
		AgreeToPersonalInfo: boolPtr(false),
		PhoneNumber:         strPtr("01012345678"),
	}})

	err := sv.ValidateStep(state, StepRepresentative)
	require.NotNil(t, err)
	fields := err.Details().(map[string]string)
	require.Contains(t, fields, "agreeToPersonalInfo")
	require.Contains(t, fields, "phoneNumber")
}

func TestValidateBeforeReportsFirstFailingStep(t *testing.T) {
	sv := NewStepValidator()
	state := Reduce(filledState(), MergeAccountInfo{Patch: AccountInfoPatch{BankName: strPtr("")}})

	err := sv.ValidateBefore(state, StepPlans)
	require.NotNil(t, err)
	details, ok := err.Details().(map[string]any)
	require.True(t, ok)
	require.Equal(t, StepAccount, details["step"])
	require.Contains(t, details["fields"], "bankName")

	require.Nil(t, sv.ValidateBefore(state, StepAccount), "only earlier steps are checked")
}
