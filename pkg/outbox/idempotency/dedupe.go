package idempotency

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// DefaultTTL is how long a handled event is remembered when no TTL is configured.
const DefaultTTL = 7 * 24 * time.Hour

type markStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	IdempotencyKey(scope, id string) string
}

// Deduper remembers which events each task consumer has already handled, so an asynq retry or a
// republished outbox row does not send the same SMS or email twice.
type Deduper struct {
	store markStore
	ttl   time.Duration
}

func NewDeduper(store markStore, ttl time.Duration) (*Deduper, error) {
	if store == nil {
		return nil, errors.New("dedupe store is required")
	}
	if ttl < 0 {
		return nil, errors.New("dedupe ttl must not be negative")
	}
	if ttl == 0 {
		ttl = DefaultTTL
	}
	return &Deduper{store: store, ttl: ttl}, nil
}

// Claim reports true when this call is the first to see eventID for consumer.
func (d *Deduper) Claim(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error) {
	key, err := d.key(consumer, eventID)
	if err != nil {
		return false, err
	}
	return d.store.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), d.ttl)
}

// Release forgets a claim after a failed delivery so the retry is not skipped.
func (d *Deduper) Release(ctx context.Context, consumer string, eventID uuid.UUID) error {
	key, err := d.key(consumer, eventID)
	if err != nil {
		return err
	}
	return d.store.Del(ctx, key)
}

func (d *Deduper) key(consumer string, eventID uuid.UUID) (string, error) {
	switch {
	case consumer == "":
		return "", errors.New("consumer name is required")
	case eventID == uuid.Nil:
		return "", errors.New("event id is required")
	}
	return d.store.IdempotencyKey("evt:"+consumer, eventID.String()), nil
}
