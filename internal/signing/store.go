package signing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"

	pkgerrors "github.com/dagym/contract-backend/pkg/errors"
	"github.com/dagym/contract-backend/pkg/redis"
	"github.com/dagym/contract-backend/pkg/types"
)

const (
	sessionLeaseTTL  = 30 * time.Second
	sessionLeaseWait = 3 * time.Second
)

type sessionClient interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	Lease(ctx context.Context, key string, ttl, wait time.Duration) (func(context.Context) error, error)
	SigningSessionKey(contractID string) string
	SigningLockKey(contractID string) string
}

// Store keeps signing sessions in Redis, one per contract.
type Store struct {
	client    sessionClient
	ttl       time.Duration
	leaseWait time.Duration
	now       func() time.Time
}

func NewStore(client sessionClient, ttl time.Duration) (*Store, error) {
	if client == nil {
		return nil, errors.New("signing store requires a redis client")
	}
	return &Store{client: client, ttl: ttl, leaseWait: sessionLeaseWait, now: time.Now}, nil
}

// Lock holds the contract's session lease until the returned func runs. Two tabs signing the same
// contract take turns instead of overwriting each other's agreements.
func (s *Store) Lock(ctx context.Context, contractID uuid.UUID) (func(), error) {
	release, err := s.client.Lease(ctx, s.client.SigningLockKey(contractID.String()), sessionLeaseTTL, s.leaseWait)
	if err != nil {
		if errors.Is(err, redis.ErrLeaseBusy) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "signing session is busy, retry shortly")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock signing session")
	}
	return func() { _ = release(context.WithoutCancel(ctx)) }, nil
}

// Load returns the stored session and whether one existed.
func (s *Store) Load(ctx context.Context, contractID uuid.UUID) (Session, bool, error) {
	raw, err := s.client.Get(ctx, s.client.SigningSessionKey(contractID.String()))
	if err != nil {
		if errors.Is(err, redislib.Nil) {
			return Session{}, false, nil
		}
		return Session{}, false, fmt.Errorf("load signing session: %w", err)
	}
	var session Session
	if err := json.Unmarshal([]byte(raw), &session); err != nil {
		return Session{}, false, fmt.Errorf("decode signing session: %w", err)
	}
	if session.Agreements == nil {
		session.Agreements = types.Agreements{}
	}
	session.ContractID = contractID
	return session, true, nil
}

func (s *Store) Save(ctx context.Context, session Session) error {
	if session.ContractID == uuid.Nil {
		return errors.New("signing session missing contract id")
	}
	session.UpdatedAt = s.now().UTC()
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode signing session: %w", err)
	}
	if err := s.client.Set(ctx, s.client.SigningSessionKey(session.ContractID.String()), data, s.ttl); err != nil {
		return fmt.Errorf("save signing session: %w", err)
	}
	return nil
}

func (s *Store) Clear(ctx context.Context, contractID uuid.UUID) error {
	return s.client.Del(ctx, s.client.SigningSessionKey(contractID.String()))
}
