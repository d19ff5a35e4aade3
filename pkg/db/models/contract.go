package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dagym/contract-backend/pkg/enums"
	"github.com/dagym/contract-backend/pkg/types"
)

// Contract is a submitted onboarding contract and its lifecycle timestamps.
type Contract struct {
	ID                 uuid.UUID                `gorm:"column:id;type:uuid;primaryKey"`
	BusinessID         *uuid.UUID               `gorm:"column:business_id;type:uuid;index"`
	BusinessNumber     string                   `gorm:"column:business_number;type:text;not null;index"`
	BusinessInfo       types.BusinessInfo       `gorm:"column:business_info;type:jsonb;serializer:json;not null"`
	AccountInfo        types.AccountInfo        `gorm:"column:account_info;type:jsonb;serializer:json;not null"`
	RepresentativeInfo types.RepresentativeInfo `gorm:"column:representative_info;type:jsonb;serializer:json;not null"`
	SelectedPlans      []types.SelectedPlan     `gorm:"column:selected_plans;type:jsonb;serializer:json;not null"`
	BillingCycle       enums.BillingCycle       `gorm:"column:billing_cycle;type:text;not null"`
	Partner            bool                     `gorm:"column:partner;not null;default:false"`
	TotalAmount        int64                    `gorm:"column:total_amount;not null"`
	Status             enums.ContractStatus     `gorm:"column:status;type:text;not null;index"`
	ClientContact      types.ClientContact      `gorm:"column:client_contact;type:jsonb;serializer:json;not null"`
	SendMethod         enums.SendMethod         `gorm:"column:send_method;type:text;not null"`
	Link               string                   `gorm:"column:link;type:text;not null"`
	CreatedBy          uuid.UUID                `gorm:"column:created_by;type:uuid;not null"`
	CreatedAt          time.Time                `gorm:"column:created_at;autoCreateTime;index"`
	UpdatedAt          time.Time                `gorm:"column:updated_at;autoUpdateTime"`
	SentAt             *time.Time               `gorm:"column:sent_at"`
	SignedAt           *time.Time               `gorm:"column:signed_at"`
	PaidAt             *time.Time               `gorm:"column:paid_at"`
	CompletedAt        *time.Time               `gorm:"column:completed_at"`
}

// BeforeCreate assigns the id when the caller has not.
func (c *Contract) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
