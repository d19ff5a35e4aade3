package statistics

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/dagym/contract-backend/pkg/db/models"
	"github.com/dagym/contract-backend/pkg/enums"
)

// revenueStatuses are the statuses whose amount has been collected.
var revenueStatuses = []enums.ContractStatus{
	enums.ContractStatusPaid,
	enums.ContractStatusCompleted,
}

// Repository reads contract aggregates.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

type contractRow struct {
	Status      enums.ContractStatus
	TotalAmount int64
	CreatedAt   time.Time
}

type statusRow struct {
	Status enums.ContractStatus
	Total  int64
}

type revenueRow struct {
	Contracts int64
	Revenue   int64
}

// ContractsSince returns the minimal columns of every contract created at or after from. Month
// bucketing happens in Go so the query stays portable between Postgres and SQLite.
func (r *Repository) ContractsSince(ctx context.Context, from time.Time) ([]contractRow, error) {
	var rows []contractRow
	err := r.db.WithContext(ctx).Model(&models.Contract{}).
		Select("status, total_amount, created_at").
		Where("created_at >= ?", from).
		Order("created_at ASC").
		Scan(&rows).Error
	return rows, err
}

func (r *Repository) StatusCounts(ctx context.Context) ([]statusRow, error) {
	var rows []statusRow
	err := r.db.WithContext(ctx).Model(&models.Contract{}).
		Select("status, COUNT(*) AS total").
		Group("status").
		Scan(&rows).Error
	return rows, err
}

func (r *Repository) Revenue(ctx context.Context) (revenueRow, error) {
	var row revenueRow
	err := r.db.WithContext(ctx).Model(&models.Contract{}).
		Select("COUNT(*) AS contracts, COALESCE(SUM(CASE WHEN status IN ? THEN total_amount ELSE 0 END), 0) AS revenue", revenueStatuses).
		Scan(&row).Error
	return row, err
}
