package enums

import "fmt"

// PaymentMethod describes how a client intends to settle a signed contract.
type PaymentMethod string

const (
	PaymentMethodCard    PaymentMethod = "card"
	PaymentMethodBank    PaymentMethod = "bank"
	PaymentMethodVirtual PaymentMethod = "virtual"
)

var validPaymentMethods = []PaymentMethod{
	PaymentMethodCard,
	PaymentMethodBank,
	PaymentMethodVirtual,
}

var paymentMethodLabels = map[PaymentMethod]string{
	PaymentMethodCard:    "신용카드",
	PaymentMethodBank:    "계좌이체",
	PaymentMethodVirtual: "가상계좌",
}

// PaymentMethods returns every supported method.
func PaymentMethods() []PaymentMethod {
	out := make([]PaymentMethod, len(validPaymentMethods))
	copy(out, validPaymentMethods)
	return out
}

// String implements fmt.Stringer.
func (p PaymentMethod) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentMethod.
func (p PaymentMethod) IsValid() bool {
	_, ok := paymentMethodLabels[p]
	return ok
}

// Label returns the console label.
func (p PaymentMethod) Label() string {
	if label, ok := paymentMethodLabels[p]; ok {
		return label
	}
	return string(p)
}

// ParsePaymentMethod converts raw input into a PaymentMethod.
func ParsePaymentMethod(value string) (PaymentMethod, error) {
	for _, candidate := range validPaymentMethods {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment method %q", value)
}
