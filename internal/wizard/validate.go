package wizard

import (
	"github.com/go-playground/validator/v10"

	"github.com/dagym/contract-backend/internal/reference"
	pkgerrors "github.com/dagym/contract-backend/pkg/errors"
	"github.com/dagym/contract-backend/pkg/validation"
)

type businessForm struct {
	BusinessName       string `json:"businessName" validate:"required,runemin=2"`
	BusinessNumber     string `json:"businessNumber" validate:"required,bizno"`
	RepresentativeName string `json:"representativeName" validate:"required,runemin=2"`
	BusinessType       string `json:"businessType" validate:"required"`
	BusinessCategory   string `json:"businessCategory" validate:"required"`
	BusinessAddress    string `json:"businessAddress" validate:"required"`
}

type accountForm struct {
	BankName      string `json:"bankName" validate:"required,krbank"`
	AccountNumber string `json:"accountNumber" validate:"required,digits,min=10"`
	AccountHolder string `json:"accountHolder" validate:"required,runemin=2"`
}

type representativeForm struct {
	Name        string `json:"name" validate:"required,runemin=2,personname"`
	PhoneNumber string `json:"phoneNumber" validate:"required,krmobile"`
	Address     string `json:"address" validate:"required"`
	Consent     bool   `json:"agreeToPersonalInfo" validate:"eq=true"`
}

// StepValidator checks the form fields behind each of the first three steps.
type StepValidator struct {
	v *validator.Validate
}

// NewStepValidator builds a validator with the console's field rules.
func NewStepValidator() *StepValidator {
	v := validation.New()
	if err := v.RegisterValidation("krbank", func(fl validator.FieldLevel) bool {
		return reference.IsKnownBank(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	return &StepValidator{v: v}
}

// ValidateStep returns field errors for step, or nil when the step's data is well formed.
// Steps without field rules always pass.
func (sv *StepValidator) ValidateStep(state FormState, step int) *pkgerrors.Error {
	switch step {
	case StepBusiness:
		b := state.BusinessInfo
		return validation.Check(sv.v, &businessForm{
			BusinessName:       b.BusinessName,
			BusinessNumber:     b.BusinessNumber,
			RepresentativeName: b.RepresentativeName,
			BusinessType:       b.BusinessType,
			BusinessCategory:   b.BusinessCategory,
			BusinessAddress:    b.BusinessAddress,
		}, "invalid business info")
	case StepAccount:
		a := state.AccountInfo
		return validation.Check(sv.v, &accountForm{
			BankName:      a.BankName,
			AccountNumber: a.AccountNumber,
			AccountHolder: a.AccountHolder,
		}, "invalid account info")
	case StepRepresentative:
		r := state.RepresentativeInfo
		return validation.Check(sv.v, &representativeForm{
			Name:        r.Name,
			PhoneNumber: r.PhoneNumber,
			Address:     r.Address,
			Consent:     r.AgreeToPersonalInfo != nil && *r.AgreeToPersonalInfo,
		}, "invalid representative info")
	}
	return nil
}

// ValidateBefore checks every step strictly before step and returns the first failure.
func (sv *StepValidator) ValidateBefore(state FormState, step int) *pkgerrors.Error {
	for prior := FirstStep; prior < step && prior <= StepRepresentative; prior++ {
		if err := sv.ValidateStep(state, prior); err != nil {
			return err.WithDetails(withStep(err.Details(), prior))
		}
	}
	return nil
}

func withStep(details any, step int) map[string]any {
	out := map[string]any{"step": step}
	if fields, ok := details.(map[string]string); ok {
		out["fields"] = fields
	}
	return out
}
