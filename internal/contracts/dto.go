package contracts

import (
	"time"

	"github.com/google/uuid"

	"github.com/dagym/contract-backend/pkg/db/models"
	"github.com/dagym/contract-backend/pkg/enums"
	"github.com/dagym/contract-backend/pkg/types"
)

// Detail is the operator's full view of a contract.
type Detail struct {
	ID                 uuid.UUID                `json:"id"`
	BusinessID         *uuid.UUID               `json:"businessId,omitempty"`
	BusinessInfo       types.BusinessInfo       `json:"businessInfo"`
	AccountInfo        types.AccountInfo        `json:"accountInfo"`
	RepresentativeInfo types.RepresentativeInfo `json:"representativeInfo"`
	SelectedPlans      []types.SelectedPlan     `json:"selectedPlans"`
	BillingCycle       enums.BillingCycle       `json:"billingCycle"`
	BillingCycleLabel  string                   `json:"billingCycleLabel"`
	IsPartner          bool                     `json:"isPartner"`
	TotalAmount        int64                    `json:"totalAmount"`
	Status             enums.ContractStatus     `json:"status"`
	StatusLabel        string                   `json:"statusLabel"`
	ClientContact      types.ClientContact      `json:"clientContact"`
	SendMethod         enums.SendMethod         `json:"sendMethod"`
	SendMethodLabel    string                   `json:"sendMethodLabel"`
	Link               string                   `json:"link"`
	CreatedBy          uuid.UUID                `json:"createdBy"`
	CreatedAt          time.Time                `json:"createdAt"`
	UpdatedAt          time.Time                `json:"updatedAt"`
	SentAt             *time.Time               `json:"sentAt,omitempty"`
	SignedAt           *time.Time               `json:"signedAt,omitempty"`
	PaidAt             *time.Time               `json:"paidAt,omitempty"`
	CompletedAt        *time.Time               `json:"completedAt,omitempty"`
	Signature          *SignatureInfo           `json:"signature,omitempty"`
}

// SignatureInfo is the stored signature shown on the detail page.
type SignatureInfo struct {
	Agreements types.Agreements `json:"agreements"`
	ImageData  string           `json:"imageData"`
	SignedAt   time.Time        `json:"signedAt"`
	ReceivedAt time.Time        `json:"receivedAt"`
}

// Summary is one row of the contract list.
type Summary struct {
	ID                 uuid.UUID            `json:"id"`
	BusinessName       string               `json:"businessName"`
	RepresentativeName string               `json:"representativeName"`
	ClientName         string               `json:"clientName"`
	PlanNames          []string             `json:"planNames"`
	TotalAmount        int64                `json:"totalAmount"`
	Status             enums.ContractStatus `json:"status"`
	StatusLabel        string               `json:"statusLabel"`
	SendMethod         enums.SendMethod     `json:"sendMethod"`
	CreatedAt          time.Time            `json:"createdAt"`
	SentAt             *time.Time           `json:"sentAt,omitempty"`
}

// PublicView is what the client sees on the signing page. Settlement details and operator ids
// are left out.
type PublicView struct {
	ID                 uuid.UUID            `json:"id"`
	BusinessName       string               `json:"businessName"`
	BusinessNumber     string               `json:"businessNumber"`
	RepresentativeName string               `json:"representativeName"`
	BusinessAddress    string               `json:"businessAddress"`
	ClientName         string               `json:"clientName"`
	SelectedPlans      []types.SelectedPlan `json:"selectedPlans"`
	BillingCycle       enums.BillingCycle   `json:"billingCycle"`
	BillingCycleLabel  string               `json:"billingCycleLabel"`
	TotalAmount        int64                `json:"totalAmount"`
	Status             enums.ContractStatus `json:"status"`
	StatusLabel        string               `json:"statusLabel"`
	CreatedAt          time.Time            `json:"createdAt"`
}

// ListParams filters and pages the contract list. An empty or "all" status lists every contract.
type ListParams struct {
	Status string
	Limit  int
	Cursor string
}

// ListResult wraps returned contracts and the cursor for the next page.
type ListResult struct {
	Items  []Summary `json:"items"`
	Cursor string    `json:"cursor"`
}

func toDetail(c models.Contract, signature *models.Signature) Detail {
	detail := Detail{
		ID:                 c.ID,
		BusinessID:         c.BusinessID,
		BusinessInfo:       c.BusinessInfo,
		AccountInfo:        c.AccountInfo,
		RepresentativeInfo: c.RepresentativeInfo,
		SelectedPlans:      plansOrEmpty(c.SelectedPlans),
		BillingCycle:       c.BillingCycle,
		BillingCycleLabel:  c.BillingCycle.Label(),
		IsPartner:          c.Partner,
		TotalAmount:        c.TotalAmount,
		Status:             c.Status,
		StatusLabel:        c.Status.Label(),
		ClientContact:      c.ClientContact,
		SendMethod:         c.SendMethod,
		SendMethodLabel:    c.SendMethod.Label(),
		Link:               c.Link,
		CreatedBy:          c.CreatedBy,
		CreatedAt:          c.CreatedAt,
		UpdatedAt:          c.UpdatedAt,
		SentAt:             c.SentAt,
		SignedAt:           c.SignedAt,
		PaidAt:             c.PaidAt,
		CompletedAt:        c.CompletedAt,
	}
	if signature != nil {
		detail.Signature = &SignatureInfo{
			Agreements: signature.Agreements,
			ImageData:  signature.ImageData,
			SignedAt:   signature.SignedAt,
			ReceivedAt: signature.ReceivedAt,
		}
	}
	return detail
}

func toSummary(c models.Contract) Summary {
	names := make([]string, 0, len(c.SelectedPlans))
	for _, plan := range c.SelectedPlans {
		names = append(names, plan.PlanName)
	}
	return Summary{
		ID:                 c.ID,
		BusinessName:       c.BusinessInfo.BusinessName,
		RepresentativeName: c.BusinessInfo.RepresentativeName,
		ClientName:         c.ClientContact.Name,
		PlanNames:          names,
		TotalAmount:        c.TotalAmount,
		Status:             c.Status,
		StatusLabel:        c.Status.Label(),
		SendMethod:         c.SendMethod,
		CreatedAt:          c.CreatedAt,
		SentAt:             c.SentAt,
	}
}

func toPublicView(c models.Contract) PublicView {
	return PublicView{
		ID:                 c.ID,
		BusinessName:       c.BusinessInfo.BusinessName,
		BusinessNumber:     c.BusinessInfo.BusinessNumber,
		RepresentativeName: c.BusinessInfo.RepresentativeName,
		BusinessAddress:    c.BusinessInfo.BusinessAddress,
		ClientName:         c.ClientContact.Name,
		SelectedPlans:      plansOrEmpty(c.SelectedPlans),
		BillingCycle:       c.BillingCycle,
		BillingCycleLabel:  c.BillingCycle.Label(),
		TotalAmount:        c.TotalAmount,
		Status:             c.Status,
		StatusLabel:        c.Status.Label(),
		CreatedAt:          c.CreatedAt,
	}
}

func plansOrEmpty(in []types.SelectedPlan) []types.SelectedPlan {
	if in == nil {
		return []types.SelectedPlan{}
	}
	return in
}
