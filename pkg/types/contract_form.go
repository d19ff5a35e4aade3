package types

import "github.com/dagym/contract-backend/pkg/enums"

// BusinessInfo is the business section of a contract form. Empty strings mean "not yet provided".
type BusinessInfo struct {
	BusinessName             string `json:"businessName"`
	BusinessNumber           string `json:"businessNumber"`
	RepresentativeName       string `json:"representativeName"`
	BusinessAddress          string `json:"businessAddress"`
	BusinessType             string `json:"businessType"`
	BusinessCategory         string `json:"businessCategory"`
	BusinessRegistrationCert string `json:"businessRegistrationCert,omitempty"`
	SportsLicenseCert        string `json:"sportsLicenseCert,omitempty"`
}

// AccountInfo is the settlement account section.
type AccountInfo struct {
	BankName      string `json:"bankName"`
	AccountNumber string `json:"accountNumber"`
	AccountHolder string `json:"accountHolder"`
	BankbookPhoto string `json:"bankbookPhoto,omitempty"`
}

// RepresentativeInfo is the representative contact section.
type RepresentativeInfo struct {
	Name                string `json:"name"`
	PhoneNumber         string `json:"phoneNumber"`
	Address             string `json:"address"`
	AgreeToPersonalInfo *bool  `json:"agreeToPersonalInfo,omitempty"`
}

// SelectedPlan is a priced snapshot of a catalog plan.
type SelectedPlan struct {
	PlanID      string             `json:"planId"`
	PlanName    string             `json:"planName"`
	BillingType enums.BillingCycle `json:"billingType"`
	Price       int64              `json:"price"`
	// Injected marks the free plan added at submit because no main plan was chosen.
	Injected bool `json:"injected,omitempty"`
}

// ClientContact is who receives the signing link.
type ClientContact struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone"`
}
