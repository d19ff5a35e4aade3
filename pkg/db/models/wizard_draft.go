package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// WizardDraft is a named snapshot of an operator's wizard form.
type WizardDraft struct {
	ID           uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	OperatorID   uuid.UUID       `gorm:"column:operator_id;type:uuid;not null;index"`
	Name         string          `gorm:"column:name;type:text;not null"`
	BusinessName string          `gorm:"column:business_name;type:text;not null;default:''"`
	CurrentStep  int             `gorm:"column:current_step;not null"`
	State        json.RawMessage `gorm:"column:state;type:jsonb;not null"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// BeforeCreate assigns the id when the caller has not.
func (d *WizardDraft) BeforeCreate(*gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}
