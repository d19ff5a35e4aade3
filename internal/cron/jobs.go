package cron

import (
	"context"
	"time"

	"gorm.io/gorm"
)

const (
	defaultOutboxRetentionDays = 30
	defaultDraftRetentionDays  = 90
	defaultOutboxMaxAttempts   = 10
)

// Job is one housekeeping task. Run receives the scheduler's clock and reports how many rows it
// touched.
type Job struct {
	Name string
	Run  func(ctx context.Context, now time.Time) (int64, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPruner interface {
	Prune(ctx context.Context, tx *gorm.DB, cutoff time.Time, minAttempts int) (int64, error)
}

type draftPruner interface {
	DeleteUpdatedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// OutboxRetention drops published contract events older than days, together with rows the
// publisher gave up on after maxAttempts.
func OutboxRetention(db txRunner, repo outboxPruner, days, maxAttempts int) Job {
	if days <= 0 {
		days = defaultOutboxRetentionDays
	}
	if maxAttempts <= 0 {
		maxAttempts = defaultOutboxMaxAttempts
	}
	return Job{
		Name: "outbox-retention",
		Run: func(ctx context.Context, now time.Time) (int64, error) {
			cutoff := now.UTC().AddDate(0, 0, -days)
			var deleted int64
			err := db.WithTx(ctx, func(tx *gorm.DB) error {
				n, err := repo.Prune(ctx, tx, cutoff, maxAttempts)
				deleted = n
				return err
			})
			return deleted, err
		},
	}
}

// DraftRetention deletes saved wizard drafts nobody touched in days.
func DraftRetention(repo draftPruner, days int) Job {
	if days <= 0 {
		days = defaultDraftRetentionDays
	}
	return Job{
		Name: "wizard-draft-retention",
		Run: func(ctx context.Context, now time.Time) (int64, error) {
			return repo.DeleteUpdatedBefore(ctx, now.UTC().AddDate(0, 0, -days))
		},
	}
}
