package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dagym/contract-backend/pkg/enums"
)

// User is a console operator account.
type User struct {
	ID           uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	Email        string             `gorm:"column:email;type:text;not null;uniqueIndex"`
	PasswordHash string             `gorm:"column:password_hash;not null"`
	Name         string             `gorm:"column:name;type:text;not null"`
	Role         enums.OperatorRole `gorm:"column:role;type:text;not null;default:'user'"`
	IsActive     bool               `gorm:"column:is_active;not null;default:true"`
	LastLoginAt  *time.Time         `gorm:"column:last_login_at"`
	CreatedAt    time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

// BeforeCreate assigns the id when the caller has not.
func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
