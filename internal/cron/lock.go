package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const defaultLeaseTTL = time.Hour

type leaseStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	DelIfValue(ctx context.Context, key, value string) (bool, error)
	CronLockKey(env, job string) string
}

// Locker hands out one lease per job so replicas of the cron worker never run the same job at
// the same time.
type Locker interface {
	TryLock(ctx context.Context, job string) (release func(context.Context) error, ok bool, err error)
}

// RedisLocker leases jobs with SET NX and an owner token. The TTL frees the lease if a worker dies
// mid-job; release only deletes the key while the token still matches.
type RedisLocker struct {
	store leaseStore
	env   string
	ttl   time.Duration
}

func NewRedisLocker(store leaseStore, env string, ttl time.Duration) (*RedisLocker, error) {
	if store == nil {
		return nil, errors.New("cron: lease store required")
	}
	if env == "" {
		env = "local"
	}
	if ttl <= 0 {
		ttl = defaultLeaseTTL
	}
	return &RedisLocker{store: store, env: env, ttl: ttl}, nil
}

func (l *RedisLocker) TryLock(ctx context.Context, job string) (func(context.Context) error, bool, error) {
	key := l.store.CronLockKey(l.env, job)
	token := uuid.NewString()
	ok, err := l.store.SetNX(ctx, key, token, l.ttl)
	if err != nil {
		return nil, false, fmt.Errorf("cron: lease %s: %w", key, err)
	}
	if !ok {
		return nil, false, nil
	}
	return func(ctx context.Context) error {
		if _, err := l.store.DelIfValue(ctx, key, token); err != nil {
			return fmt.Errorf("cron: release %s: %w", key, err)
		}
		return nil
	}, true, nil
}
