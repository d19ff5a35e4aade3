package outbox

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dagym/contract-backend/pkg/db/models"
	"github.com/dagym/contract-backend/pkg/enums"
)

const errTextLimit = 1024

var errTxRequired = errors.New("outbox: transaction required")

// Repository owns outbox_events and the outbox_dlq table rows are parked in once the publisher
// gives up on them. Write methods take the caller's transaction.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Insert(tx *gorm.DB, event models.OutboxEvent) error {
	if tx == nil {
		return errTxRequired
	}
	return tx.Create(&event).Error
}

// Claim locks up to limit unpublished rows, oldest first. Rows held by another publisher are
// skipped, and so are rows with maxAttempts or more failed attempts.
func (r *Repository) Claim(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error) {
	if tx == nil {
		return nil, errTxRequired
	}
	q := tx.Where("published_at IS NULL")
	if maxAttempts > 0 {
		q = q.Where("attempt_count < ?", maxAttempts)
	}
	var rows []models.OutboxEvent
	err := q.Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate, Options: clause.LockingOptionsSkipLocked}).
		Order("created_at, id").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *Repository) MarkPublished(tx *gorm.DB, id uuid.UUID) error {
	if tx == nil {
		return errTxRequired
	}
	return tx.Model(&models.OutboxEvent{}).Where("id = ?", id).
		Updates(map[string]any{"published_at": time.Now().UTC(), "last_error": nil}).Error
}

// RecordFailure bumps the attempt counter and keeps the latest error.
func (r *Repository) RecordFailure(tx *gorm.DB, id uuid.UUID, cause error) error {
	if tx == nil {
		return errTxRequired
	}
	return tx.Model(&models.OutboxEvent{}).Where("id = ?", id).
		Updates(map[string]any{
			"last_error":    clip(cause),
			"attempt_count": gorm.Expr("attempt_count + 1"),
		}).Error
}

// Park copies event into outbox_dlq and raises its attempt count to ceiling so Claim never
// returns it again.
func (r *Repository) Park(tx *gorm.DB, event models.OutboxEvent, reason enums.OutboxDLQErrorReason, cause error, ceiling int) error {
	if tx == nil {
		return errTxRequired
	}
	if !reason.IsValid() {
		return errors.New("outbox: unknown dead letter reason")
	}
	var msg *string
	if cause != nil {
		text := clip(cause)
		msg = &text
	}
	entry := models.OutboxDLQ{
		EventID:       event.ID,
		EventType:     event.EventType,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		Payload:       event.Payload,
		ErrorReason:   reason,
		ErrorMessage:  msg,
		AttemptCount:  event.AttemptCount,
		FailedAt:      time.Now().UTC(),
	}
	if err := tx.Create(&entry).Error; err != nil {
		return err
	}
	return tx.Model(&models.OutboxEvent{}).Where("id = ?", event.ID).
		Updates(map[string]any{"last_error": msg, "attempt_count": ceiling}).Error
}

// DeadLetters lists parked events, newest first.
func (r *Repository) DeadLetters(ctx context.Context, limit int) ([]models.OutboxDLQ, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []models.OutboxDLQ
	err := r.db.WithContext(ctx).Order("failed_at DESC").Limit(limit).Find(&rows).Error
	return rows, err
}

// Prune deletes rows published before cutoff, plus unpublished rows created before cutoff that
// reached minAttempts. A nil tx runs against the repository connection.
func (r *Repository) Prune(ctx context.Context, tx *gorm.DB, cutoff time.Time, minAttempts int) (int64, error) {
	if tx == nil {
		tx = r.db
	}
	q := tx.WithContext(ctx).Where("published_at IS NOT NULL AND published_at < ?", cutoff)
	if minAttempts > 0 {
		q = q.Or("published_at IS NULL AND attempt_count >= ? AND created_at < ?", minAttempts, cutoff)
	}
	res := q.Delete(&models.OutboxEvent{})
	return res.RowsAffected, res.Error
}

func clip(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	if len(msg) > errTextLimit {
		msg = msg[:errTextLimit]
	}
	return msg
}
