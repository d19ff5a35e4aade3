package users

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dagym/contract-backend/internal/repo"
	"github.com/dagym/contract-backend/pkg/db/models"
)

// Repository stores console operators. Lookups by email are case-insensitive; emails are stored
// lower-cased.
type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

func (r *Repository) Create(ctx context.Context, dto CreateUserDTO) (*models.User, error) {
	operator := dto.ToModel()
	operator.Email = normalizeEmail(operator.Email)
	if err := r.DB(ctx).Create(operator).Error; err != nil {
		return nil, err
	}
	return operator, nil
}

// FindByEmail returns gorm.ErrRecordNotFound for unknown addresses.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.first(ctx, "email = ?", normalizeEmail(email))
}

// FindByID returns gorm.ErrRecordNotFound for unknown ids.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return r.first(ctx, "id = ?", id)
}

// UpdateLastLogin stamps a successful login without touching updated_at.
func (r *Repository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.DB(ctx).Model(&models.User{}).Where("id = ?", id).UpdateColumn("last_login_at", at).Error
}

func (r *Repository) first(ctx context.Context, cond string, arg any) (*models.User, error) {
	var operator models.User
	if err := r.DB(ctx).Where(cond, arg).Take(&operator).Error; err != nil {
		return nil, err
	}
	return &operator, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
