package statistics

import (
	"context"
	"io"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/dagym/contract-backend/pkg/db/models"
	"github.com/dagym/contract-backend/pkg/enums"
	pkgerrors "github.com/dagym/contract-backend/pkg/errors"
	"github.com/dagym/contract-backend/pkg/logger"
	"github.com/dagym/contract-backend/pkg/redis"
	"github.com/dagym/contract-backend/pkg/types"
)

type countingRepo struct {
	*Repository
	loads atomic.Int32
}

func (c *countingRepo) ContractsSince(ctx context.Context, from time.Time) ([]contractRow, error) {
	c.loads.Add(1)
	return c.Repository.ContractsSince(ctx, from)
}

func openDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:statistics_" + strings.ReplaceAll(t.Name(), "/", "_") + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:  gormlogger.Default.LogMode(gormlogger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.Contract{}))
	return conn
}

func seed(t *testing.T, conn *gorm.DB, status enums.ContractStatus, amount int64, createdAt time.Time) {
	t.Helper()
	require.NoError(t, conn.Create(&models.Contract{
		BillingCycle:  enums.BillingCycleYearly,
		SelectedPlans: []types.SelectedPlan{},
		TotalAmount:   amount,
		Status:        status,
		SendMethod:    enums.SendMethodSMS,
		CreatedBy:     uuid.New(),
		CreatedAt:     createdAt.UTC(),
	}).Error)
}

func kst(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 12, 0, 0, 0, seoul)
}

type testEnv struct {
	conn  *gorm.DB
	repo  *countingRepo
	redis *miniredis.Miniredis
	svc   *service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	conn := openDB(t)
	srv := miniredis.RunT(t)
	client := redis.Wrap(goredis.NewClient(&goredis.Options{Addr: srv.Addr()}))
	t.Cleanup(func() { _ = client.Close() })

	repo := &countingRepo{Repository: NewRepository(conn)}
	svc, err := NewService(ServiceParams{
		Repo:          repo,
		Cache:         client,
		Logger:        logger.New(logger.Options{ServiceName: "statistics-test", Output: io.Discard}),
		CacheTTL:      5 * time.Minute,
		DefaultMonths: 3,
	})
	require.NoError(t, err)
	impl := svc.(*service)
	impl.now = func() time.Time { return kst(2026, time.March, 15) }
	return &testEnv{conn: conn, repo: repo, redis: srv, svc: impl}
}

func seedQuarter(t *testing.T, conn *gorm.DB) {
	seed(t, conn, enums.ContractStatusCompleted, 400000, kst(2025, time.October, 3))
	seed(t, conn, enums.ContractStatusPaid, 100000, kst(2026, time.January, 10))
	seed(t, conn, enums.ContractStatusCompleted, 200000, kst(2026, time.February, 2))
	seed(t, conn, enums.ContractStatusDraft, 50000, kst(2026, time.February, 20))
	seed(t, conn, enums.ContractStatusSent, 10000, kst(2026, time.March, 1))
	seed(t, conn, enums.ContractStatusPaid, 300000, kst(2026, time.March, 5))
	seed(t, conn, enums.ContractStatusDraft, 0, kst(2026, time.March, 9))
}

func TestOverviewAggregates(t *testing.T) {
	env := newTestEnv(t)
	seedQuarter(t, env.conn)

	overview, err := env.svc.Overview(context.Background(), 0)
	require.NoError(t, err)
	require.Equal(t, 3, overview.Months)
	require.Equal(t, []MonthlyStat{
		{Month: "2026-01", Contracts: 1, Revenue: 100000},
		{Month: "2026-02", Contracts: 2, Revenue: 200000},
		{Month: "2026-03", Contracts: 3, Revenue: 300000},
	}, overview.Monthly)

	require.Len(t, overview.Statuses, 5)
	byStatus := map[enums.ContractStatus]StatusStat{}
	for _, stat := range overview.Statuses {
		byStatus[stat.Status] = stat
	}
	require.Equal(t, int64(2), byStatus[enums.ContractStatusDraft].Count)
	require.Equal(t, 28.6, byStatus[enums.ContractStatusDraft].Percentage)
	require.Equal(t, 14.3, byStatus[enums.ContractStatusSent].Percentage)
	require.Equal(t, int64(0), byStatus[enums.ContractStatusSigned].Count)
	require.Equal(t, "서명완료", byStatus[enums.ContractStatusSigned].Label)

	require.Equal(t, Totals{
		TotalContracts:   7,
		TotalRevenue:     1000000,
		AvgContractValue: 142857,
		MonthlyGrowth:    50,
	}, overview.Totals)
}

func TestOverviewServesFromCache(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seedQuarter(t, env.conn)

	first, err := env.svc.Overview(ctx, 3)
	require.NoError(t, err)
	require.True(t, env.redis.Exists("cb:stats:overview:3"))
	require.Equal(t, 5*time.Minute, env.redis.TTL("cb:stats:overview:3"))

	seed(t, env.conn, enums.ContractStatusPaid, 999, kst(2026, time.March, 10))
	second, err := env.svc.Overview(ctx, 3)
	require.NoError(t, err)
	require.Equal(t, first.Totals, second.Totals)
	require.Equal(t, int32(1), env.repo.loads.Load())

	env.redis.FastForward(6 * time.Minute)
	third, err := env.svc.Overview(ctx, 3)
	require.NoError(t, err)
	require.Equal(t, int64(8), third.Totals.TotalContracts)
	require.Equal(t, int32(2), env.repo.loads.Load())
}

func TestOverviewRejectsWindow(t *testing.T) {
	env := newTestEnv(t)
	for _, months := range []int{-1, 25} {
		_, err := env.svc.Overview(context.Background(), months)
		typed := pkgerrors.As(err)
		require.NotNil(t, typed)
		require.Equal(t, pkgerrors.CodeValidation, typed.Code())
	}
}

func TestOverviewEmptyDatabase(t *testing.T) {
	env := newTestEnv(t)

	overview, err := env.svc.Overview(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, []MonthlyStat{{Month: "2026-03"}}, overview.Monthly)
	require.Equal(t, Totals{}, overview.Totals)
	for _, stat := range overview.Statuses {
		require.Zero(t, stat.Percentage)
	}
}
