package contracts

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dagym/contract-backend/internal/repo"
	"github.com/dagym/contract-backend/pkg/db/models"
	"github.com/dagym/contract-backend/pkg/enums"
	"github.com/dagym/contract-backend/pkg/pagination"
)

// Repository persists contracts and reads their signatures.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, contract *models.Contract) error
	Find(ctx context.Context, id uuid.UUID) (*models.Contract, error)
	FindSignature(ctx context.Context, contractID uuid.UUID) (*models.Signature, error)
	List(ctx context.Context, params listContractsParams) ([]models.Contract, *pagination.Cursor, error)
	Transition(ctx context.Context, id uuid.UUID, from, to enums.ContractStatus, at time.Time) (bool, error)
	Touch(ctx context.Context, id uuid.UUID, at time.Time) error
}

type repository struct {
	repo.Base
}

// NewRepository returns a contracts repository bound to db.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

type listContractsParams struct {
	Status *enums.ContractStatus
	Limit  int
	Cursor *pagination.Cursor
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{Base: r.Rebind(tx)}
}

func (r *repository) Create(ctx context.Context, contract *models.Contract) error {
	return r.DB(ctx).Create(contract).Error
}

// Find returns gorm.ErrRecordNotFound when the contract does not exist.
func (r *repository) Find(ctx context.Context, id uuid.UUID) (*models.Contract, error) {
	var contract models.Contract
	if err := r.DB(ctx).Where("id = ?", id).First(&contract).Error; err != nil {
		return nil, err
	}
	return &contract, nil
}

// FindSignature returns nil when the contract has not been signed.
func (r *repository) FindSignature(ctx context.Context, contractID uuid.UUID) (*models.Signature, error) {
	return repo.FirstOrNil[models.Signature](r.DB(ctx).Where("contract_id = ?", contractID))
}

func (r *repository) List(ctx context.Context, params listContractsParams) ([]models.Contract, *pagination.Cursor, error) {
	query := r.DB(ctx).Model(&models.Contract{})
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}

	var rows []models.Contract
	if err := query.Scopes(pagination.Keyset("created_at", params.Cursor, params.Limit)).Find(&rows).Error; err != nil {
		return nil, nil, err
	}
	page, next := pagination.Split(rows, params.Limit, func(c models.Contract) pagination.Cursor {
		return pagination.Cursor{CreatedAt: c.CreatedAt, ID: c.ID}
	})
	return page, next, nil
}

// Transition moves the contract from one status to the next and stamps the matching timestamp
// column. It reports false when the row was no longer in from.
func (r *repository) Transition(ctx context.Context, id uuid.UUID, from, to enums.ContractStatus, at time.Time) (bool, error) {
	updates := map[string]any{
		"status":     to,
		"updated_at": at,
	}
	if column := timestampColumn(to); column != "" {
		updates[column] = at
	}
	return r.Swap(ctx, &models.Contract{}, updates, "id = ? AND status = ?", id, from)
}

func (r *repository) Touch(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.DB(ctx).Model(&models.Contract{}).Where("id = ?", id).Update("updated_at", at).Error
}

func timestampColumn(status enums.ContractStatus) string {
	switch status {
	case enums.ContractStatusSent:
		return "sent_at"
	case enums.ContractStatusSigned:
		return "signed_at"
	case enums.ContractStatusPaid:
		return "paid_at"
	case enums.ContractStatusCompleted:
		return "completed_at"
	}
	return ""
}
