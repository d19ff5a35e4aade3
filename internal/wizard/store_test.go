package wizard

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dagym/contract-backend/internal/plans"
	"github.com/dagym/contract-backend/pkg/enums"
	pkgerrors "github.com/dagym/contract-backend/pkg/errors"
	"github.com/dagym/contract-backend/pkg/redis"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.Wrap(goredis.NewClient(&goredis.Options{Addr: srv.Addr()}))
	t.Cleanup(func() { _ = client.Close() })

	store, err := NewStore(client, time.Hour, enums.BillingCycleYearly)
	require.NoError(t, err)
	return store, srv
}

func TestStoreLoadMissingReturnsFresh(t *testing.T) {
	store, _ := newTestStore(t)

	session, err := store.Load(context.Background(), uuid.New())
	require.NoError(t, err)
	require.Equal(t, FirstStep, session.State.CurrentStep)
	require.Equal(t, enums.BillingCycleYearly, session.Cycle)
	require.NotNil(t, session.State.SelectedPlans)
}

func TestStoreSaveAppliesTTLAndNamespace(t *testing.T) {
	store, srv := newTestStore(t)
	ctx := context.Background()
	operatorID := uuid.New()

	session := store.Fresh()
	session.State = filledState()
	require.NoError(t, store.Save(ctx, operatorID, session))

	key := "cb:wizard:draft:" + operatorID.String()
	require.True(t, srv.Exists(key))
	require.Equal(t, time.Hour, srv.TTL(key))

	loaded, err := store.Load(ctx, operatorID)
	require.NoError(t, err)
	require.Equal(t, session.State, loaded.State)
	require.False(t, loaded.UpdatedAt.IsZero())

	require.NoError(t, store.Clear(ctx, operatorID))
	require.False(t, srv.Exists(key))
}

func TestStoreUpdateErrorWritesNothing(t *testing.T) {
	store, srv := newTestStore(t)
	operatorID := uuid.New()

	_, err := store.Update(context.Background(), operatorID, func(s Session) (Session, error) {
		s.State.CurrentStep = StepPlans
		return s, context.Canceled
	})
	require.ErrorIs(t, err, context.Canceled)
	require.False(t, srv.Exists("cb:wizard:draft:"+operatorID.String()))
}

func TestStoreUpdateSerializesPerOperator(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	operatorID := uuid.New()

	const writers = 20
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Update(ctx, operatorID, func(s Session) (Session, error) {
				s.State = Reduce(s.State, AddSelectedPlan{Plan: plans.SelectedPlan{PlanID: uuid.NewString(), Price: 1000}})
				return s, nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	session, err := store.Load(ctx, operatorID)
	require.NoError(t, err)
	require.Len(t, session.State.SelectedPlans, writers)
	require.Empty(t, store.locks.locks)
}

func TestStoreUpdateSerializesAcrossReplicas(t *testing.T) {
	srv := miniredis.RunT(t)
	replicas := make([]*Store, 2)
	for i := range replicas {
		client := redis.Wrap(goredis.NewClient(&goredis.Options{Addr: srv.Addr()}))
		t.Cleanup(func() { _ = client.Close() })
		store, err := NewStore(client, time.Hour, enums.BillingCycleYearly)
		require.NoError(t, err)
		replicas[i] = store
	}
	ctx := context.Background()
	operatorID := uuid.New()

	const perReplica = 8
	var wg sync.WaitGroup
	for _, store := range replicas {
		for i := 0; i < perReplica; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := store.Update(ctx, operatorID, func(s Session) (Session, error) {
					s.State = Reduce(s.State, AddSelectedPlan{Plan: plans.SelectedPlan{PlanID: uuid.NewString(), Price: 1000}})
					time.Sleep(2 * time.Millisecond)
					return s, nil
				})
				assert.NoError(t, err)
			}()
		}
	}
	wg.Wait()

	session, err := replicas[0].Load(ctx, operatorID)
	require.NoError(t, err)
	require.Len(t, session.State.SelectedPlans, 2*perReplica)
	require.False(t, srv.Exists("cb:wizard:lock:"+operatorID.String()))
}

func TestStoreUpdateBusyLease(t *testing.T) {
	store, srv := newTestStore(t)
	store.leaseWait = 30 * time.Millisecond
	operatorID := uuid.New()
	require.NoError(t, srv.Set("cb:wizard:lock:"+operatorID.String(), "other-replica"))

	_, err := store.Update(context.Background(), operatorID, func(s Session) (Session, error) {
		t.Fatal("mutation must not run without the lease")
		return s, nil
	})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict), "got %v", err)
	require.False(t, srv.Exists("cb:wizard:draft:"+operatorID.String()))
	require.Empty(t, store.locks.locks)
}

func TestStoreLoadRejectsCorruptPayload(t *testing.T) {
	store, srv := newTestStore(t)
	operatorID := uuid.New()
	require.NoError(t, srv.Set("cb:wizard:draft:"+operatorID.String(), "{not json"))

	_, err := store.Load(context.Background(), operatorID)
	require.Error(t, err)
}
