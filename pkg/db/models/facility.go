package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dagym/contract-backend/pkg/enums"
)

// Facility is a branch operated by a business.
type Facility struct {
	ID             uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	BusinessID     uuid.UUID            `gorm:"column:business_id;type:uuid;not null;index"`
	Name           string               `gorm:"column:name;type:text;not null"`
	FacilityType   string               `gorm:"column:facility_type;type:text;not null"`
	Status         enums.FacilityStatus `gorm:"column:status;type:text;not null;default:'operating'"`
	MemberCount    int                  `gorm:"column:member_count;not null;default:0"`
	MonthlyRevenue int64                `gorm:"column:monthly_revenue;not null;default:0"`
	CreatedAt      time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

// BeforeCreate assigns the id when the caller has not.
func (f *Facility) BeforeCreate(*gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return nil
}
