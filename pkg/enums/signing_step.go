package enums

import "fmt"

// SigningStep is the position of a client inside the signing flow.
type SigningStep string

const (
	SigningStepTerms     SigningStep = "terms"
	SigningStepSignature SigningStep = "signature"
	SigningStepComplete  SigningStep = "complete"
)

var validSigningSteps = []SigningStep{
	SigningStepTerms,
	SigningStepSignature,
	SigningStepComplete,
}

// String implements fmt.Stringer.
func (s SigningStep) String() string {
	return string(s)
}

// IsValid reports whether the value is a known SigningStep.
func (s SigningStep) IsValid() bool {
	for _, candidate := range validSigningSteps {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSigningStep converts raw input into a SigningStep.
func ParseSigningStep(value string) (SigningStep, error) {
	for _, candidate := range validSigningSteps {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid signing step %q", value)
}
