package controllers

import (
	"net/http"

	"github.com/dagym/contract-backend/api/responses"
	"github.com/dagym/contract-backend/internal/plans"
	"github.com/dagym/contract-backend/internal/reference"
	"github.com/dagym/contract-backend/internal/signing"
	"github.com/dagym/contract-backend/internal/wizard"
)

type referenceResponse struct {
	Banks          []string               `json:"banks"`
	BusinessTypes  []string               `json:"businessTypes"`
	SendMethods    []reference.Option     `json:"sendMethods"`
	PaymentMethods []reference.Option     `json:"paymentMethods"`
	BillingCycles  []reference.Option     `json:"billingCycles"`
	Statuses       []reference.Option     `json:"contractStatuses"`
	Steps          []wizard.StepInfo      `json:"formSteps"`
	UploadLimits   reference.UploadLimits `json:"uploadLimits"`
}

// Reference returns the fixed option lists the console forms render.
func Reference() http.HandlerFunc {
	payload := referenceResponse{
		Banks:          reference.Banks,
		BusinessTypes:  reference.BusinessTypes,
		SendMethods:    reference.SendMethodOptions(),
		PaymentMethods: reference.PaymentMethodOptions(),
		BillingCycles:  reference.BillingCycleOptions(),
		Statuses:       reference.ContractStatusOptions(),
		Steps:          wizard.Steps(),
		UploadLimits:   reference.DefaultUploadLimits(),
	}
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, payload)
	}
}

type plansResponse struct {
	Plans       []plans.Descriptor `json:"plans"`
	PartnerMode plans.PartnerMode  `json:"partnerMode"`
}

// PlanCatalog lists the purchasable plans with their monthly, yearly and partner prices.
func PlanCatalog(catalog *plans.Catalog, mode plans.PartnerMode) http.HandlerFunc {
	payload := plansResponse{Plans: []plans.Descriptor{}, PartnerMode: mode}
	if catalog != nil {
		payload.Plans = catalog.Describe()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, payload)
	}
}

// Terms lists the clauses shown on the signing page.
func Terms(catalog *signing.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		terms := []signing.Term{}
		if catalog != nil {
			terms = catalog.Terms()
		}
		responses.WriteSuccess(w, map[string]any{"terms": terms})
	}
}
