package relay

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/dagym/contract-backend/pkg/db/models"
	"github.com/dagym/contract-backend/pkg/enums"
	"github.com/dagym/contract-backend/pkg/logger"
	"github.com/dagym/contract-backend/pkg/metrics"
	"github.com/dagym/contract-backend/pkg/outbox"
	"github.com/dagym/contract-backend/pkg/outbox/payloads"
	"github.com/dagym/contract-backend/pkg/outbox/registry"
	"github.com/dagym/contract-backend/pkg/types"
)

type gormTx struct{ conn *gorm.DB }

func (g gormTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return g.conn.WithContext(ctx).Transaction(fn)
}

type fakeQueue struct {
	errs  []error
	tasks []*asynq.Task
	opts  [][]asynq.Option
}

func (f *fakeQueue) EnqueueContext(_ context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	var err error
	if len(f.errs) > 0 {
		err, f.errs = f.errs[0], f.errs[1:]
	}
	if err == nil {
		f.tasks = append(f.tasks, task)
		f.opts = append(f.opts, opts)
	}
	return &asynq.TaskInfo{}, err
}

type fixture struct {
	conn  *gorm.DB
	repo  *outbox.Repository
	queue *fakeQueue
	relay *Relay
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	dsn := "file:relay_" + strings.ReplaceAll(t.Name(), "/", "_") + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormlogger.Discard})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.OutboxEvent{}, &models.OutboxDLQ{}))

	catalog, err := registry.NewCatalog("dispatch")
	require.NoError(t, err)
	repo := outbox.NewRepository(conn)
	queue := &fakeQueue{}
	logg := logger.New(logger.Options{ServiceName: "relay-test", Output: io.Discard})
	r, err := New(gormTx{conn}, repo, catalog, queue, logg, metrics.NewRelayMetrics(prometheus.NewRegistry()), opts)
	require.NoError(t, err)
	return &fixture{conn: conn, repo: repo, queue: queue, relay: r}
}

func (f *fixture) emit(t *testing.T, eventType enums.OutboxEventType, data any) uuid.UUID {
	t.Helper()
	id := uuid.New()
	emitter := outbox.NewEmitter(f.repo, nil)
	require.NoError(t, f.conn.Transaction(func(tx *gorm.DB) error {
		return emitter.Emit(context.Background(), tx, outbox.DomainEvent{
			EventType:     eventType,
			AggregateType: enums.AggregateContract,
			AggregateID:   id,
			Data:          data,
		})
	}))
	return id
}

func (f *fixture) row(t *testing.T, aggregateID uuid.UUID) models.OutboxEvent {
	t.Helper()
	var row models.OutboxEvent
	require.NoError(t, f.conn.First(&row, "aggregate_id = ?", aggregateID).Error)
	return row
}

func link(contractID uuid.UUID) payloads.ContractLinkEvent {
	return payloads.ContractLinkEvent{
		ContractID: contractID,
		Recipient:  types.ClientContact{Name: "홍길동", Phone: "010-1234-5678"},
		SendMethod: enums.SendMethodSMS,
		Link:       "https://sign.dagym.com/contract/" + contractID.String(),
	}
}

func TestDrainPublishesRows(t *testing.T) {
	f := newFixture(t, Options{})
	id := f.emit(t, enums.EventContractSent, link(uuid.New()))

	n, err := f.relay.Drain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.Len(t, f.queue.tasks, 1)
	assert.Equal(t, registry.TaskContractLink, f.queue.tasks[0].Type())
	assert.NotNil(t, f.row(t, id).PublishedAt)

	n, err = f.relay.Drain(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestDrainRecordsTransientFailureAndRetries(t *testing.T) {
	f := newFixture(t, Options{})
	f.queue.errs = []error{errors.New("redis timeout")}
	first := f.emit(t, enums.EventContractSent, link(uuid.New()))
	second := f.emit(t, enums.EventContractResent, link(uuid.New()))

	_, err := f.relay.Drain(context.Background())
	require.NoError(t, err)

	rows := []models.OutboxEvent{f.row(t, first), f.row(t, second)}
	var published, retried int
	for _, row := range rows {
		if row.PublishedAt != nil {
			published++
			continue
		}
		retried++
		assert.Equal(t, 1, row.AttemptCount)
		require.NotNil(t, row.LastError)
		assert.Contains(t, *row.LastError, "redis timeout")
	}
	assert.Equal(t, 1, published, "one failure must not block the batch")
	assert.Equal(t, 1, retried)

	_, err = f.relay.Drain(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, f.row(t, first).PublishedAt)
	assert.NotNil(t, f.row(t, second).PublishedAt)
}

func TestDrainParksPermanentFailures(t *testing.T) {
	f := newFixture(t, Options{})
	bad := link(uuid.New())
	bad.Link = ""
	id := f.emit(t, enums.EventContractSent, bad)

	_, err := f.relay.Drain(context.Background())
	require.NoError(t, err)
	assert.Empty(t, f.queue.tasks)

	parked, err := f.repo.DeadLetters(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, parked, 1)
	assert.Equal(t, enums.OutboxDLQReasonNonRetryable, parked[0].ErrorReason)
	assert.Equal(t, 10, f.row(t, id).AttemptCount)
}

func TestDrainParksAfterMaxAttempts(t *testing.T) {
	f := newFixture(t, Options{MaxAttempts: 2})
	f.queue.errs = []error{errors.New("down"), errors.New("still down")}
	id := f.emit(t, enums.EventContractSent, link(uuid.New()))

	for i := 0; i < 2; i++ {
		_, err := f.relay.Drain(context.Background())
		require.NoError(t, err)
	}

	parked, err := f.repo.DeadLetters(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, parked, 1)
	assert.Equal(t, enums.OutboxDLQReasonMaxAttempts, parked[0].ErrorReason)
	assert.Nil(t, f.row(t, id).PublishedAt)
}

func TestDrainTreatsDuplicateTaskAsPublished(t *testing.T) {
	f := newFixture(t, Options{})
	f.queue.errs = []error{asynq.ErrTaskIDConflict}
	id := f.emit(t, enums.EventContractSigned, payloads.ContractStatusEvent{
		ContractID: uuid.New(),
		SendMethod: enums.SendMethodEmail,
		From:       enums.ContractStatusSent,
		To:         enums.ContractStatusSigned,
	})

	_, err := f.relay.Drain(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, f.row(t, id).PublishedAt)
}

func TestRunBacksOffAndStops(t *testing.T) {
	f := newFixture(t, Options{PollInterval: 100 * time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	var waits []time.Duration
	f.relay.sleep = func(_ context.Context, d time.Duration) error {
		waits = append(waits, d)
		if len(waits) == 2 {
			cancel()
			return context.Canceled
		}
		return nil
	}

	assert.ErrorIs(t, f.relay.Run(ctx), context.Canceled)
	require.Len(t, waits, 2)
	for _, w := range waits {
		assert.GreaterOrEqual(t, w, 100*time.Millisecond)
		assert.LessOrEqual(t, w, 125*time.Millisecond)
	}
}

func TestNewRequiresDependencies(t *testing.T) {
	_, err := New(nil, nil, nil, nil, nil, nil, Options{})
	assert.Error(t, err)
}
