package wizard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"

	"github.com/dagym/contract-backend/internal/plans"
	"github.com/dagym/contract-backend/pkg/enums"
	pkgerrors "github.com/dagym/contract-backend/pkg/errors"
	"github.com/dagym/contract-backend/pkg/redis"
)

const (
	sessionLeaseTTL  = 30 * time.Second
	sessionLeaseWait = 5 * time.Second
)

// Session is one operator's in-progress wizard: the form aggregate plus the pricing settings
// the selected plans were quoted at.
type Session struct {
	State     FormState          `json:"state"`
	Cycle     enums.BillingCycle `json:"billingCycle"`
	Partner   bool               `json:"isPartner"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

// Selection returns the plan half of the session in the selector's shape.
func (s Session) Selection() plans.Selection {
	return plans.Selection{
		Plans:   clonePlans(s.State.SelectedPlans),
		Cycle:   s.Cycle,
		Partner: s.Partner,
	}
}

// WithSelection writes a selector result back through the reducer.
func (s Session) WithSelection(sel plans.Selection) Session {
	s.State = Reduce(s.State, ReplaceSelectedPlans{Plans: sel.Plans})
	s.Cycle = sel.Cycle
	s.Partner = sel.Partner
	return s
}

type sessionStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	Lease(ctx context.Context, key string, ttl, wait time.Duration) (func(context.Context) error, error)
	WizardDraftKey(operatorID string) string
	WizardLockKey(operatorID string) string
}

// Store persists sessions in Redis and serializes mutations per operator: a local mutex orders
// requests inside this process and a Redis lease orders them across replicas.
type Store struct {
	client       sessionStore
	ttl          time.Duration
	defaultCycle enums.BillingCycle
	locks        *keyedMutex
	leaseWait    time.Duration
	now          func() time.Time
}

// NewStore builds a session store. A zero ttl keeps sessions until they are reset.
func NewStore(client sessionStore, ttl time.Duration, defaultCycle enums.BillingCycle) (*Store, error) {
	if client == nil {
		return nil, errors.New("wizard store requires a redis client")
	}
	if !defaultCycle.IsValid() {
		defaultCycle = enums.BillingCycleYearly
	}
	return &Store{
		client:       client,
		ttl:          ttl,
		defaultCycle: defaultCycle,
		locks:        newKeyedMutex(),
		leaseWait:    sessionLeaseWait,
		now:          time.Now,
	}, nil
}

// Fresh returns the session a new wizard starts from.
func (s *Store) Fresh() Session {
	return Session{State: InitialState(), Cycle: s.defaultCycle}
}

// Load returns the operator's session, or a fresh one when none is stored.
func (s *Store) Load(ctx context.Context, operatorID uuid.UUID) (Session, error) {
	raw, err := s.client.Get(ctx, s.client.WizardDraftKey(operatorID.String()))
	if err != nil {
		if errors.Is(err, redislib.Nil) {
			return s.Fresh(), nil
		}
		return Session{}, fmt.Errorf("load wizard session: %w", err)
	}
	var session Session
	if err := json.Unmarshal([]byte(raw), &session); err != nil {
		return Session{}, fmt.Errorf("decode wizard session: %w", err)
	}
	if session.State.SelectedPlans == nil {
		session.State.SelectedPlans = []plans.SelectedPlan{}
	}
	if !session.Cycle.IsValid() {
		session.Cycle = s.defaultCycle
	}
	return session, nil
}

// Save writes the session and refreshes its TTL.
func (s *Store) Save(ctx context.Context, operatorID uuid.UUID, session Session) error {
	session.UpdatedAt = s.now().UTC()
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode wizard session: %w", err)
	}
	if err := s.client.Set(ctx, s.client.WizardDraftKey(operatorID.String()), data, s.ttl); err != nil {
		return fmt.Errorf("save wizard session: %w", err)
	}
	return nil
}

// Clear drops the stored session.
func (s *Store) Clear(ctx context.Context, operatorID uuid.UUID) error {
	return s.client.Del(ctx, s.client.WizardDraftKey(operatorID.String()))
}

// Update loads, mutates and saves the operator's session while holding the operator's lock.
// When fn returns an error nothing is written.
func (s *Store) Update(ctx context.Context, operatorID uuid.UUID, fn func(Session) (Session, error)) (Session, error) {
	unlock, err := s.lock(ctx, operatorID)
	if err != nil {
		return Session{}, err
	}
	defer unlock()

	current, err := s.Load(ctx, operatorID)
	if err != nil {
		return Session{}, err
	}
	next, err := fn(current)
	if err != nil {
		return current, err
	}
	if err := s.Save(ctx, operatorID, next); err != nil {
		return current, err
	}
	return next, nil
}

// Exclusive runs fn against the operator's session while holding the operator's lock. Nothing is
// written back; fn may Save or Clear itself.
func (s *Store) Exclusive(ctx context.Context, operatorID uuid.UUID, fn func(Session) error) error {
	unlock, err := s.lock(ctx, operatorID)
	if err != nil {
		return err
	}
	defer unlock()

	current, err := s.Load(ctx, operatorID)
	if err != nil {
		return err
	}
	return fn(current)
}

func (s *Store) lock(ctx context.Context, operatorID uuid.UUID) (func(), error) {
	id := operatorID.String()
	unlock := s.locks.Lock(id)
	release, err := s.client.Lease(ctx, s.client.WizardLockKey(id), sessionLeaseTTL, s.leaseWait)
	if err != nil {
		unlock()
		if errors.Is(err, redis.ErrLeaseBusy) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "wizard session is busy, retry shortly")
		}
		return nil, fmt.Errorf("lock wizard session: %w", err)
	}
	return func() {
		_ = release(context.WithoutCancel(ctx))
		unlock()
	}, nil
}

type refMutex struct {
	mu   sync.Mutex
	refs int
}

// keyedMutex hands out one mutex per key and forgets it once no goroutine holds or waits on it.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*refMutex)}
}

func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	entry, ok := k.locks[key]
	if !ok {
		entry = &refMutex{}
		k.locks[key] = entry
	}
	entry.refs++
	k.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()
		k.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
