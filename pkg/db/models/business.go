package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dagym/contract-backend/pkg/enums"
)

// Business is a gym operator's company, keyed by its registration number.
type Business struct {
	ID                 uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	Name               string               `gorm:"column:name;type:text;not null"`
	BusinessNumber     string               `gorm:"column:business_number;type:text;not null;uniqueIndex"`
	RepresentativeName string               `gorm:"column:representative_name;type:text;not null"`
	BusinessType       string               `gorm:"column:business_type;type:text;not null;default:''"`
	BusinessCategory   string               `gorm:"column:business_category;type:text;not null;default:''"`
	Address            string               `gorm:"column:address;type:text;not null;default:''"`
	DetailAddress      *string              `gorm:"column:detail_address"`
	Phone              *string              `gorm:"column:phone"`
	Status             enums.BusinessStatus `gorm:"column:status;type:text;not null;default:'active'"`
	RegisteredAt       time.Time            `gorm:"column:registered_at;autoCreateTime"`
	UpdatedAt          time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

// BeforeCreate assigns the id when the caller has not.
func (b *Business) BeforeCreate(*gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}
