package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dagym/contract-backend/pkg/types"
)

// Signature is the client's signed consent to a contract. One per contract.
type Signature struct {
	ID         uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	ContractID uuid.UUID        `gorm:"column:contract_id;type:uuid;not null;uniqueIndex"`
	Agreements types.Agreements `gorm:"column:agreements;type:jsonb;not null"`
	ImageData  string           `gorm:"column:image_data;type:text;not null"`
	SignedAt   time.Time        `gorm:"column:signed_at;not null"`
	ReceivedAt time.Time        `gorm:"column:received_at;autoCreateTime"`
	ClientIP   *string          `gorm:"column:client_ip"`
	UserAgent  *string          `gorm:"column:user_agent"`
}

// BeforeCreate assigns the id when the caller has not.
func (s *Signature) BeforeCreate(*gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
