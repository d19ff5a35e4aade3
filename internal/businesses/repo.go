package businesses

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dagym/contract-backend/internal/repo"
	"github.com/dagym/contract-backend/pkg/db/models"
	"github.com/dagym/contract-backend/pkg/enums"
	"github.com/dagym/contract-backend/pkg/pagination"
)

// Repository handles business persistence.
type Repository struct {
	repo.Base
}

// NewRepository binds a GORM DB to business operations.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

type listQuery struct {
	Search string
	Status *enums.BusinessStatus
	Limit  int
	Cursor *pagination.Cursor
}

// Create persists a new business row.
func (r *Repository) Create(ctx context.Context, business *models.Business) error {
	if business == nil {
		return fmt.Errorf("business is required")
	}
	return r.DB(ctx).Create(business).Error
}

// FindByID loads a business by its UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Business, error) {
	var business models.Business
	if err := r.DB(ctx).Where("id = ?", id).First(&business).Error; err != nil {
		return nil, err
	}
	return &business, nil
}

// UpsertWithTx inserts the business or refreshes the registration details of the existing row
// with the same number, then returns the stored row. Status is never changed here.
func (r *Repository) UpsertWithTx(ctx context.Context, tx *gorm.DB, business *models.Business) (*models.Business, error) {
	if tx == nil {
		return nil, gorm.ErrInvalidTransaction
	}
	if business == nil {
		return nil, fmt.Errorf("business is required")
	}
	err := tx.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "business_number"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name",
			"representative_name",
			"business_type",
			"business_category",
			"address",
			"updated_at",
		}),
	}).Create(business).Error
	if err != nil {
		return nil, err
	}
	var stored models.Business
	if err := tx.WithContext(ctx).Where("business_number = ?", business.BusinessNumber).First(&stored).Error; err != nil {
		return nil, err
	}
	return &stored, nil
}

// UpdateStatus reports false when no row matched.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.BusinessStatus, at time.Time) (bool, error) {
	return r.Swap(ctx, &models.Business{}, map[string]any{"status": status, "updated_at": at}, "id = ?", id)
}

// List returns one page ordered by registration time, newest first.
func (r *Repository) List(ctx context.Context, q listQuery) ([]models.Business, *pagination.Cursor, error) {
	query := r.DB(ctx).Model(&models.Business{})
	if term := strings.TrimSpace(q.Search); term != "" {
		like := "%" + strings.ToLower(term) + "%"
		digits := "%" + strings.ReplaceAll(term, "-", "") + "%"
		query = query.Where("LOWER(name) LIKE ? OR REPLACE(business_number, '-', '') LIKE ?", like, digits)
	}
	if q.Status != nil {
		query = query.Where("status = ?", *q.Status)
	}

	var rows []models.Business
	if err := query.Scopes(pagination.Keyset("registered_at", q.Cursor, q.Limit)).Find(&rows).Error; err != nil {
		return nil, nil, err
	}
	page, next := pagination.Split(rows, q.Limit, func(b models.Business) pagination.Cursor {
		return pagination.Cursor{CreatedAt: b.RegisteredAt, ID: b.ID}
	})
	return page, next, nil
}

type countRow struct {
	BusinessID uuid.UUID
	Total      int64
}

// Counts returns contract and facility totals keyed by business id.
func (r *Repository) Counts(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]counts, error) {
	out := make(map[uuid.UUID]counts, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	contractRows, err := r.countBy(ctx, &models.Contract{}, ids)
	if err != nil {
		return nil, err
	}
	facilityRows, err := r.countBy(ctx, &models.Facility{}, ids)
	if err != nil {
		return nil, err
	}
	for _, row := range contractRows {
		c := out[row.BusinessID]
		c.contracts = row.Total
		out[row.BusinessID] = c
	}
	for _, row := range facilityRows {
		c := out[row.BusinessID]
		c.facilities = row.Total
		out[row.BusinessID] = c
	}
	return out, nil
}

func (r *Repository) countBy(ctx context.Context, model any, ids []uuid.UUID) ([]countRow, error) {
	var rows []countRow
	err := r.DB(ctx).Model(model).
		Select("business_id, COUNT(*) AS total").
		Where("business_id IN ?", ids).
		Group("business_id").
		Scan(&rows).Error
	return rows, err
}

// Summary computes the management page totals.
func (r *Repository) Summary(ctx context.Context) (Summary, error) {
	var summary Summary
	db := r.DB(ctx)
	if err := db.Model(&models.Business{}).Count(&summary.Total).Error; err != nil {
		return Summary{}, err
	}
	if err := db.Model(&models.Business{}).Where("status = ?", enums.BusinessStatusActive).Count(&summary.Active).Error; err != nil {
		return Summary{}, err
	}
	if err := db.Model(&models.Contract{}).Where("business_id IS NOT NULL").Count(&summary.TotalContracts).Error; err != nil {
		return Summary{}, err
	}
	if err := db.Model(&models.Facility{}).Count(&summary.TotalFacilities).Error; err != nil {
		return Summary{}, err
	}
	return summary, nil
}
