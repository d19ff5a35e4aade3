package facilities

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dagym/contract-backend/internal/repo"
	"github.com/dagym/contract-backend/pkg/db/models"
	"github.com/dagym/contract-backend/pkg/enums"
	"github.com/dagym/contract-backend/pkg/pagination"
)

// Repository handles facility persistence.
type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

type listQuery struct {
	BusinessID *uuid.UUID
	Status     *enums.FacilityStatus
	Limit      int
	Cursor     *pagination.Cursor
}

func (r *Repository) Create(ctx context.Context, facility *models.Facility) error {
	if facility == nil {
		return fmt.Errorf("facility is required")
	}
	return r.DB(ctx).Create(facility).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Facility, error) {
	var facility models.Facility
	if err := r.DB(ctx).Where("id = ?", id).First(&facility).Error; err != nil {
		return nil, err
	}
	return &facility, nil
}

// BusinessExists reports whether the owning business row is present.
func (r *Repository) BusinessExists(ctx context.Context, businessID uuid.UUID) (bool, error) {
	var count int64
	err := r.DB(ctx).Model(&models.Business{}).Where("id = ?", businessID).Count(&count).Error
	return count > 0, err
}

// Update saves the provided facility.
func (r *Repository) Update(ctx context.Context, facility *models.Facility) error {
	if facility == nil {
		return fmt.Errorf("facility is required")
	}
	return r.DB(ctx).Save(facility).Error
}

func (r *Repository) List(ctx context.Context, q listQuery) ([]models.Facility, *pagination.Cursor, error) {
	query := r.DB(ctx).Model(&models.Facility{})
	if q.BusinessID != nil {
		query = query.Where("business_id = ?", *q.BusinessID)
	}
	if q.Status != nil {
		query = query.Where("status = ?", *q.Status)
	}

	var rows []models.Facility
	if err := query.Scopes(pagination.Keyset("created_at", q.Cursor, q.Limit)).Find(&rows).Error; err != nil {
		return nil, nil, err
	}
	page, next := pagination.Split(rows, q.Limit, func(f models.Facility) pagination.Cursor {
		return pagination.Cursor{CreatedAt: f.CreatedAt, ID: f.ID}
	})
	return page, next, nil
}

// Summary aggregates all facilities, optionally for one business.
func (r *Repository) Summary(ctx context.Context, businessID *uuid.UUID) (Summary, error) {
	var row struct {
		Total        int64
		Operating    int64
		TotalMembers int64
		TotalRevenue int64
	}
	query := r.DB(ctx).Model(&models.Facility{}).Select(
		"COUNT(*) AS total, "+
			"COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS operating, "+
			"COALESCE(SUM(member_count), 0) AS total_members, "+
			"COALESCE(SUM(monthly_revenue), 0) AS total_revenue",
		enums.FacilityStatusOperating,
	)
	if businessID != nil {
		query = query.Where("business_id = ?", *businessID)
	}
	if err := query.Scan(&row).Error; err != nil {
		return Summary{}, err
	}
	return Summary{
		Total:        row.Total,
		Operating:    row.Operating,
		TotalMembers: row.TotalMembers,
		TotalRevenue: row.TotalRevenue,
	}, nil
}
