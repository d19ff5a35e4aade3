package wizard

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dagym/contract-backend/internal/repo"
	"github.com/dagym/contract-backend/pkg/db/models"
	"github.com/dagym/contract-backend/pkg/pagination"
)

const pruneBatch = 500

// DraftRepository persists named wizard snapshots.
type DraftRepository interface {
	WithTx(tx *gorm.DB) DraftRepository
	Create(ctx context.Context, draft *models.WizardDraft) error
	Find(ctx context.Context, operatorID, draftID uuid.UUID) (*models.WizardDraft, error)
	List(ctx context.Context, params listDraftsParams) ([]models.WizardDraft, *pagination.Cursor, error)
	Delete(ctx context.Context, operatorID, draftID uuid.UUID) (bool, error)
	PruneOldest(ctx context.Context, operatorID uuid.UUID, keep int) (int64, error)
	DeleteUpdatedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type draftRepository struct {
	repo.Base
}

// NewDraftRepository returns a draft repository bound to db.
func NewDraftRepository(db *gorm.DB) DraftRepository {
	return &draftRepository{Base: repo.NewBase(db)}
}

type listDraftsParams struct {
	OperatorID uuid.UUID
	Limit      int
	Cursor     *pagination.Cursor
}

func (r *draftRepository) WithTx(tx *gorm.DB) DraftRepository {
	return &draftRepository{Base: r.Rebind(tx)}
}

func (r *draftRepository) Create(ctx context.Context, draft *models.WizardDraft) error {
	return r.DB(ctx).Create(draft).Error
}

func (r *draftRepository) Find(ctx context.Context, operatorID, draftID uuid.UUID) (*models.WizardDraft, error) {
	return repo.FirstOrNil[models.WizardDraft](r.DB(ctx).Where("id = ? AND operator_id = ?", draftID, operatorID))
}

func (r *draftRepository) List(ctx context.Context, params listDraftsParams) ([]models.WizardDraft, *pagination.Cursor, error) {
	var drafts []models.WizardDraft
	err := r.DB(ctx).
		Where("operator_id = ?", params.OperatorID).
		Scopes(pagination.Keyset("created_at", params.Cursor, params.Limit)).
		Find(&drafts).Error
	if err != nil {
		return nil, nil, err
	}
	page, next := pagination.Split(drafts, params.Limit, func(d models.WizardDraft) pagination.Cursor {
		return pagination.Cursor{CreatedAt: d.CreatedAt, ID: d.ID}
	})
	return page, next, nil
}

func (r *draftRepository) Delete(ctx context.Context, operatorID, draftID uuid.UUID) (bool, error) {
	result := r.DB(ctx).Where("id = ? AND operator_id = ?", draftID, operatorID).Delete(&models.WizardDraft{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// PruneOldest keeps the operator's newest keep drafts and deletes the rest.
func (r *draftRepository) PruneOldest(ctx context.Context, operatorID uuid.UUID, keep int) (int64, error) {
	if keep <= 0 {
		return 0, nil
	}
	var stale []uuid.UUID
	err := r.DB(ctx).Model(&models.WizardDraft{}).
		Where("operator_id = ?", operatorID).
		Order("created_at DESC, id DESC").
		Offset(keep).
		Limit(pruneBatch).
		Pluck("id", &stale).Error
	if err != nil {
		return 0, err
	}
	if len(stale) == 0 {
		return 0, nil
	}
	result := r.DB(ctx).Where("id IN ?", stale).Delete(&models.WizardDraft{})
	return result.RowsAffected, result.Error
}

// DeleteUpdatedBefore removes drafts nobody touched since cutoff.
func (r *draftRepository) DeleteUpdatedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.DB(ctx).Where("updated_at < ?", cutoff).Delete(&models.WizardDraft{})
	return result.RowsAffected, result.Error
}
