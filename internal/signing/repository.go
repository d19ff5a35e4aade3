package signing

import (
	"context"

	"gorm.io/gorm"

	"github.com/dagym/contract-backend/internal/repo"
	"github.com/dagym/contract-backend/pkg/db/models"
)

// Repository stores captured signatures.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, signature *models.Signature) error
}

type repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{Base: r.Rebind(tx)}
}

func (r *repository) Create(ctx context.Context, signature *models.Signature) error {
	return r.DB(ctx).Create(signature).Error
}
