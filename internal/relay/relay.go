// Package relay moves committed outbox rows onto the task queue.
package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"gorm.io/gorm"

	"github.com/dagym/contract-backend/pkg/db/models"
	"github.com/dagym/contract-backend/pkg/enums"
	"github.com/dagym/contract-backend/pkg/logger"
	"github.com/dagym/contract-backend/pkg/metrics"
	"github.com/dagym/contract-backend/pkg/outbox"
	"github.com/dagym/contract-backend/pkg/outbox/registry"
)

type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Store is the slice of the outbox repository the relay drives.
type Store interface {
	Claim(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublished(tx *gorm.DB, id uuid.UUID) error
	RecordFailure(tx *gorm.DB, id uuid.UUID, cause error) error
	Park(tx *gorm.DB, event models.OutboxEvent, reason enums.OutboxDLQErrorReason, cause error, ceiling int) error
}

type Resolver interface {
	Resolve(models.OutboxEvent) (*registry.Resolved, error)
}

type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Options tune batching and retry. Zero values take the defaults below.
type Options struct {
	BatchSize      int
	MaxAttempts    int
	TaskRetry      int
	PollInterval   time.Duration
	MaxBackoff     time.Duration
	EnqueueTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.BatchSize <= 0 {
		o.BatchSize = 50
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 10
	}
	if o.TaskRetry <= 0 {
		o.TaskRetry = 5
	}
	if o.PollInterval <= 0 {
		o.PollInterval = 500 * time.Millisecond
	}
	if o.MaxBackoff <= 0 {
		o.MaxBackoff = 10 * time.Second
	}
	if o.EnqueueTimeout <= 0 {
		o.EnqueueTimeout = 15 * time.Second
	}
	return o
}

type Relay struct {
	db      TxRunner
	store   Store
	routes  Resolver
	queue   Enqueuer
	logg    *logger.Logger
	metrics *metrics.RelayMetrics
	opts    Options
	sleep   func(context.Context, time.Duration) error
}

func New(db TxRunner, store Store, routes Resolver, queue Enqueuer, logg *logger.Logger, m *metrics.RelayMetrics, opts Options) (*Relay, error) {
	switch {
	case db == nil:
		return nil, errors.New("relay: db required")
	case store == nil:
		return nil, errors.New("relay: outbox store required")
	case routes == nil:
		return nil, errors.New("relay: route resolver required")
	case queue == nil:
		return nil, errors.New("relay: task queue required")
	case logg == nil:
		return nil, errors.New("relay: logger required")
	}
	return &Relay{
		db:      db,
		store:   store,
		routes:  routes,
		queue:   queue,
		logg:    logg,
		metrics: m,
		opts:    opts.withDefaults(),
		sleep:   sleepCtx,
	}, nil
}

// Run drains the outbox until ctx is canceled. A full batch is followed immediately by the next
// one; an empty batch waits one poll interval; a failed batch backs off exponentially.
func (r *Relay) Run(ctx context.Context) error {
	wait := r.opts.PollInterval
	for {
		n, err := r.Drain(ctx)
		switch {
		case ctx.Err() != nil:
			return ctx.Err()
		case err != nil:
			r.logg.Error(ctx, "outbox batch failed", err)
			wait = min(wait*2, r.opts.MaxBackoff)
		case n >= r.opts.BatchSize:
			wait = r.opts.PollInterval
			continue
		default:
			wait = r.opts.PollInterval
		}
		if err := r.sleep(ctx, jitter(wait)); err != nil {
			return err
		}
	}
}

// Drain handles one batch inside a single transaction and returns how many rows it claimed.
func (r *Relay) Drain(ctx context.Context) (int, error) {
	var claimed int
	err := r.db.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := r.store.Claim(tx, r.opts.BatchSize, r.opts.MaxAttempts)
		if err != nil {
			return fmt.Errorf("claim: %w", err)
		}
		claimed = len(rows)
		r.metrics.Batch(claimed)
		for _, row := range rows {
			if err := r.relay(ctx, tx, row); err != nil {
				return err
			}
		}
		return nil
	})
	return claimed, err
}

// relay publishes one row and records the outcome. Only bookkeeping errors are returned; a
// failed publish is recorded on the row instead.
func (r *Relay) relay(ctx context.Context, tx *gorm.DB, row models.OutboxEvent) error {
	ctx = r.logg.WithFields(ctx, map[string]any{
		"outbox_id":     row.ID.String(),
		"event_type":    row.EventType,
		"aggregate_id":  row.AggregateID.String(),
		"attempt_count": row.AttemptCount,
	})

	resolved, err := r.routes.Resolve(row)
	if err == nil {
		err = r.publish(ctx, row, resolved)
	}

	switch {
	case err == nil:
		if err := r.store.MarkPublished(tx, row.ID); err != nil {
			return fmt.Errorf("mark published %s: %w", row.ID, err)
		}
		r.metrics.Row(string(row.EventType), metrics.RelayPublished)
		r.logg.Info(ctx, "outbox event published")
	case registry.IsPermanent(err):
		return r.park(ctx, tx, row, enums.OutboxDLQReasonNonRetryable, err)
	case row.AttemptCount+1 >= r.opts.MaxAttempts:
		return r.park(ctx, tx, row, enums.OutboxDLQReasonMaxAttempts, fmt.Errorf("gave up after %d attempts: %w", row.AttemptCount+1, err))
	default:
		if err := r.store.RecordFailure(tx, row.ID, err); err != nil {
			return fmt.Errorf("record failure %s: %w", row.ID, err)
		}
		r.metrics.Row(string(row.EventType), metrics.RelayRetried)
		r.logg.Warn(r.logg.WithField(ctx, "error", err.Error()), "outbox publish failed, will retry")
	}
	return nil
}

func (r *Relay) park(ctx context.Context, tx *gorm.DB, row models.OutboxEvent, reason enums.OutboxDLQErrorReason, cause error) error {
	if err := r.store.Park(tx, row, reason, cause, r.opts.MaxAttempts); err != nil {
		return fmt.Errorf("park %s: %w", row.ID, err)
	}
	r.metrics.Row(string(row.EventType), metrics.RelayParked)
	r.logg.Warn(r.logg.WithFields(ctx, map[string]any{
		"reason": reason,
		"error":  cause.Error(),
	}), "outbox event parked")
	return nil
}

func (r *Relay) publish(ctx context.Context, row models.OutboxEvent, resolved *registry.Resolved) error {
	body, err := json.Marshal(outbox.TaskMessage{
		OutboxID:      row.ID,
		EventType:     row.EventType,
		AggregateType: row.AggregateType,
		AggregateID:   row.AggregateID,
		Envelope:      resolved.Envelope,
	})
	if err != nil {
		return registry.Permanent(fmt.Errorf("encode task: %w", err))
	}
	taskID := resolved.Envelope.EventID
	if taskID == "" {
		taskID = row.ID.String()
	}

	ctx, cancel := context.WithTimeout(ctx, r.opts.EnqueueTimeout)
	defer cancel()
	_, err = r.queue.EnqueueContext(ctx, asynq.NewTask(resolved.Route.TaskType, body),
		asynq.Queue(resolved.Route.Queue),
		asynq.TaskID(taskID),
		asynq.MaxRetry(r.opts.TaskRetry),
	)
	if errors.Is(err, asynq.ErrTaskIDConflict) || errors.Is(err, asynq.ErrDuplicateTask) {
		return nil
	}
	return err
}

func jitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d + rand.N(d/4+1)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
