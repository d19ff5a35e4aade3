// Package reference holds the fixed option lists the console renders in its forms.
package reference

import "github.com/dagym/contract-backend/pkg/enums"

// Banks lists the settlement banks offered in step 2.
var Banks = []string{
	"국민은행",
	"신한은행",
	"우리은행",
	"하나은행",
	"KB국민은행",
	"SC제일은행",
	"씨티은행",
	"농협은행",
	"수협은행",
	"산업은행",
	"기업은행",
	"새마을금고",
	"신협",
	"우체국",
	"카카오뱅크",
	"토스뱅크",
	"케이뱅크",
	"기타",
}

// BusinessTypes lists the 업태 options offered in step 1.
var BusinessTypes = []string{
	"서비스업",
	"제조업",
	"도소매업",
	"건설업",
	"운수업",
	"숙박 및 음식점업",
	"교육서비스업",
	"보건업 및 사회복지서비스업",
	"예술, 스포츠 및 여가관련서비스업",
	"기타",
}

const maxUploadBytes = 10 * 1024 * 1024

// UploadLimits constrains the document references attached in steps 1 and 2.
type UploadLimits struct {
	MaxSizeBytes  int64    `json:"maxSize"`
	ImageTypes    []string `json:"imageTypes"`
	DocumentTypes []string `json:"documentTypes"`
	MaxFiles      int      `json:"maxFiles"`
}

// DefaultUploadLimits returns the accepted file types and size.
func DefaultUploadLimits() UploadLimits {
	return UploadLimits{
		MaxSizeBytes:  maxUploadBytes,
		ImageTypes:    []string{"image/jpeg", "image/jpg", "image/png", "image/gif"},
		DocumentTypes: []string{"application/pdf", "image/jpeg", "image/jpg", "image/png"},
		MaxFiles:      1,
	}
}

// Option is a value/label pair.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// SendMethodOptions lists the contract delivery channels.
func SendMethodOptions() []Option {
	out := []Option{}
	for _, method := range enums.SendMethods() {
		out = append(out, Option{Value: method.String(), Label: method.Label()})
	}
	return out
}

// PaymentMethodOptions lists the settlement methods.
func PaymentMethodOptions() []Option {
	out := []Option{}
	for _, method := range enums.PaymentMethods() {
		out = append(out, Option{Value: method.String(), Label: method.Label()})
	}
	return out
}

// BillingCycleOptions lists the payment periods the pricing step offers.
func BillingCycleOptions() []Option {
	return []Option{
		{Value: enums.BillingCycleMonthly.String(), Label: enums.BillingCycleMonthly.Label()},
		{Value: enums.BillingCycleYearly.String(), Label: enums.BillingCycleYearly.Label()},
	}
}

// ContractStatusOptions lists the lifecycle with labels.
func ContractStatusOptions() []Option {
	out := []Option{}
	for _, status := range enums.ContractStatuses() {
		out = append(out, Option{Value: status.String(), Label: status.Label()})
	}
	return out
}

// IsKnownBank reports whether name is in Banks.
func IsKnownBank(name string) bool {
	return contains(Banks, name)
}

// IsKnownBusinessType reports whether name is in BusinessTypes.
func IsKnownBusinessType(name string) bool {
	return contains(BusinessTypes, name)
}

func contains(list []string, value string) bool {
	for _, candidate := range list {
		if candidate == value {
			return true
		}
	}
	return false
}
