package payloads

import (
	"time"

	"github.com/dagym/contract-backend/pkg/enums"
	"github.com/dagym/contract-backend/pkg/types"
	"github.com/google/uuid"
)

// ContractLinkEvent asks for the signing link to be delivered to the client.
type ContractLinkEvent struct {
	ContractID   uuid.UUID           `json:"contractId" validate:"required"`
	BusinessName string              `json:"businessName"`
	Recipient    types.ClientContact `json:"recipient"`
	SendMethod   enums.SendMethod    `json:"sendMethod" validate:"required"`
	Link         string              `json:"link" validate:"required,url"`
	TotalAmount  int64               `json:"totalAmount" validate:"gte=0"`
	BillingCycle enums.BillingCycle  `json:"billingCycle"`
	Resend       bool                `json:"resend,omitempty"`
}

// ContractStatusEvent reports a lifecycle transition after the link went out.
type ContractStatusEvent struct {
	ContractID   uuid.UUID            `json:"contractId" validate:"required"`
	BusinessName string               `json:"businessName"`
	Recipient    types.ClientContact  `json:"recipient"`
	SendMethod   enums.SendMethod     `json:"sendMethod" validate:"required"`
	From         enums.ContractStatus `json:"from" validate:"required"`
	To           enums.ContractStatus `json:"to" validate:"required"`
	TotalAmount  int64                `json:"totalAmount"`
	ChangedAt    time.Time            `json:"changedAt"`
}
