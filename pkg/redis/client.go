package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/dagym/contract-backend/pkg/config"
	"github.com/dagym/contract-backend/pkg/logger"
)

// Every key this service writes starts with "cb:". The second segment names the owner.
const keyNamespace = "cb"

const (
	spaceIdempotency = "idempotency"
	spaceRateLimit   = "rate_limit"
	spaceSession     = "session"
	spaceWizard      = "wizard"
	spaceSigning     = "signing"
	spaceStats       = "stats"
	spaceCron        = "cron"
)

var errNotInitialized = errors.New("redis client not initialized")

// fixedWindow increments a counter and starts its window on the first hit, atomically.
var fixedWindow = redis.NewScript(`
local n = redis.call('INCR', KEYS[1])
if n == 1 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return n
`)

// compareAndDelete removes KEYS[1] only while it still holds ARGV[1].
var compareAndDelete = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
  return redis.call('DEL', KEYS[1])
end
return 0
`)

// Client is the shared redis handle for the api, the outbox publisher and the workers. It adds
// key naming on top of go-redis so callers never build raw keys.
type Client struct {
	cmd redis.Cmdable
	raw *redis.Client
}

// Pinger exposes the health-check surface.
type Pinger interface {
	Ping(context.Context) error
}

// IdempotencyStore is what the request and event idempotency guards need.
type IdempotencyStore interface {
	Get(context.Context, string) (string, error)
	Set(context.Context, string, any, time.Duration) error
	SetNX(context.Context, string, any, time.Duration) (bool, error)
	IdempotencyKey(scope, id string) string
	Del(context.Context, ...string) error
}

// New dials redis and fails fast when it does not answer PING.
func New(ctx context.Context, cfg config.RedisConfig, logg *logger.Logger) (*Client, error) {
	opts, err := OptionsFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	client := Wrap(redis.NewClient(opts))
	if err := client.Ping(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{"redis_addr": opts.Addr, "redis_db": opts.DB}), "redis connection established")
	}
	return client, nil
}

// Wrap adapts an existing go-redis client, e.g. one pointed at miniredis in tests.
func Wrap(raw *redis.Client) *Client {
	if raw == nil {
		return &Client{}
	}
	return &Client{cmd: raw, raw: raw}
}

// OptionsFromConfig prefers CONTRACT_REDIS_URL and falls back to the discrete address fields.
// Pool and timeout settings fill whatever the URL left unset.
func OptionsFromConfig(cfg config.RedisConfig) (*redis.Options, error) {
	var opts *redis.Options
	switch {
	case cfg.URL != "":
		parsed, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("parsing redis url: %w", err)
		}
		opts = parsed
	case cfg.Address != "":
		opts = &redis.Options{Addr: cfg.Address, Password: cfg.Password, DB: cfg.DB}
	default:
		return nil, errors.New("redis url or address is required")
	}

	fillInt(&opts.DB, cfg.DB)
	fillInt(&opts.PoolSize, cfg.PoolSize)
	fillInt(&opts.MinIdleConns, cfg.MinIdleConns)
	fillDuration(&opts.DialTimeout, cfg.DialTimeout)
	fillDuration(&opts.ReadTimeout, cfg.ReadTimeout)
	fillDuration(&opts.WriteTimeout, cfg.WriteTimeout)
	return opts, nil
}

func fillInt(dst *int, v int) {
	if *dst == 0 {
		*dst = v
	}
}

func fillDuration(dst *time.Duration, v time.Duration) {
	if *dst == 0 {
		*dst = v
	}
}

func (c *Client) ready() error {
	if c == nil || c.cmd == nil {
		return errNotInitialized
	}
	return nil
}

func (c *Client) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if err := c.ready(); err != nil {
		return err
	}
	return c.cmd.Set(ctx, key, value, ttl).Err()
}

// Get returns redis.Nil for a missing key.
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	if err := c.ready(); err != nil {
		return "", err
	}
	return c.cmd.Get(ctx, key).Result()
}

// GetDel reads and removes key in one round trip.
func (c *Client) GetDel(ctx context.Context, key string) (string, error) {
	if err := c.ready(); err != nil {
		return "", err
	}
	return c.cmd.GetDel(ctx, key).Result()
}

func (c *Client) Exists(ctx context.Context, key string) (bool, error) {
	if err := c.ready(); err != nil {
		return false, err
	}
	n, err := c.cmd.Exists(ctx, key).Result()
	return n > 0, err
}

func (c *Client) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if err := c.ready(); err != nil {
		return false, err
	}
	return c.cmd.SetNX(ctx, key, value, ttl).Result()
}

// FixedWindowAllow counts a hit against scope and reports whether it is within limit for the
// current window. The count is returned either way so callers can log it.
func (c *Client) FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error) {
	if err := c.ready(); err != nil {
		return false, 0, err
	}
	count, err := fixedWindow.Run(ctx, c.cmd, []string{c.RateLimitKey(scope)}, window.Milliseconds()).Int64()
	if err != nil {
		return false, 0, err
	}
	return count <= limit, count, nil
}

// DelIfValue deletes key when its value equals value and reports whether it did.
func (c *Client) DelIfValue(ctx context.Context, key, value string) (bool, error) {
	if err := c.ready(); err != nil {
		return false, err
	}
	n, err := compareAndDelete.Run(ctx, c.cmd, []string{key}, value).Int64()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// ErrLeaseBusy means another holder kept the lease for the whole wait.
var ErrLeaseBusy = errors.New("redis: lease busy")

const leaseRetryInterval = 20 * time.Millisecond

// Lease takes key with SET NX and an owner token, retrying until wait elapses. Release deletes the
// key only while it still carries the token, so a lease that expired and was re-taken stays put.
func (c *Client) Lease(ctx context.Context, key string, ttl, wait time.Duration) (func(context.Context) error, error) {
	token := uuid.NewString()
	deadline := time.Now().Add(wait)
	for {
		ok, err := c.SetNX(ctx, key, token, ttl)
		if err != nil {
			return nil, err
		}
		if ok {
			return func(ctx context.Context) error {
				_, err := c.DelIfValue(ctx, key, token)
				return err
			}, nil
		}
		if !time.Now().Before(deadline) {
			return nil, ErrLeaseBusy
		}
		timer := time.NewTimer(leaseRetryInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

func (c *Client) TTL(ctx context.Context, key string) (time.Duration, error) {
	if err := c.ready(); err != nil {
		return 0, err
	}
	return c.cmd.TTL(ctx, key).Result()
}

func (c *Client) Del(ctx context.Context, keys ...string) error {
	if err := c.ready(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return c.cmd.Del(ctx, keys...).Err()
}

func (c *Client) Ping(ctx context.Context) error {
	if err := c.ready(); err != nil {
		return err
	}
	return c.cmd.Ping(ctx).Err()
}

// Close is a no-op for a client that was never connected.
func (c *Client) Close() error {
	if c == nil || c.raw == nil {
		return nil
	}
	return c.raw.Close()
}

// IdempotencyKey scopes a client-supplied or event idempotency key.
func (c *Client) IdempotencyKey(scope, id string) string {
	return key(spaceIdempotency, scope, id)
}

func (c *Client) RateLimitKey(scope string) string {
	return key(spaceRateLimit, scope)
}

// AccessSessionKey holds the refresh token digest for one access token id.
func (c *Client) AccessSessionKey(accessID string) string {
	return key(spaceSession, "access", accessID)
}

// WizardDraftKey is where an operator's in-progress wizard session lives.
func (c *Client) WizardDraftKey(operatorID string) string {
	return key(spaceWizard, "draft", operatorID)
}

// WizardLockKey guards read-modify-write of one operator's wizard session.
func (c *Client) WizardLockKey(operatorID string) string {
	return key(spaceWizard, "lock", operatorID)
}

// SigningSessionKey is where a client's signing progress for a contract lives.
func (c *Client) SigningSessionKey(contractID string) string {
	return key(spaceSigning, contractID)
}

// SigningLockKey guards read-modify-write of one contract's signing session.
func (c *Client) SigningLockKey(contractID string) string {
	return key(spaceSigning, "lock", contractID)
}

// CronLockKey is the per-environment lease for one housekeeping job.
func (c *Client) CronLockKey(env, job string) string {
	return key(spaceCron, strings.ToLower(env), job)
}

// StatsKey namespaces cached statistics snapshots.
func (c *Client) StatsKey(parts ...string) string {
	return key(append([]string{spaceStats}, parts...)...)
}

func key(parts ...string) string {
	var b strings.Builder
	b.WriteString(keyNamespace)
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		b.WriteByte(':')
		b.WriteString(part)
	}
	return b.String()
}
