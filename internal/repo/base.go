package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// Base is embedded by the gorm-backed repositories. It carries either the root connection or an
// open transaction.
type Base struct {
	db *gorm.DB
}

func NewBase(db *gorm.DB) Base {
	return Base{db: db}
}

// DB scopes the connection to ctx.
func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return b.db
	}
	return b.db.WithContext(ctx)
}

// Rebind returns a Base on tx, or b itself when tx is nil so callers outside a transaction can pass
// whatever they hold.
func (b Base) Rebind(tx *gorm.DB) Base {
	if tx == nil {
		return b
	}
	return Base{db: tx}
}

// Swap applies updates to the single row of model matching the condition and reports whether
// exactly one row changed. The condition normally pins the expected current status, which makes
// the update a compare-and-set against concurrent writers.
func (b Base) Swap(ctx context.Context, model any, updates map[string]any, cond string, args ...any) (bool, error) {
	result := b.DB(ctx).Model(model).Where(cond, args...).Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// FirstOrNil runs First on query and maps a missing row to (nil, nil).
func FirstOrNil[T any](query *gorm.DB) (*T, error) {
	var out T
	if err := query.First(&out).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &out, nil
}
