package statistics

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	redislib "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"github.com/dagym/contract-backend/pkg/enums"
	pkgerrors "github.com/dagym/contract-backend/pkg/errors"
	"github.com/dagym/contract-backend/pkg/logger"
)

const maxMonths = 24

var seoul = loadSeoul()

func loadSeoul() *time.Location {
	loc, err := time.LoadLocation("Asia/Seoul")
	if err != nil {
		return time.FixedZone("KST", 9*60*60)
	}
	return loc
}

type statsRepository interface {
	ContractsSince(ctx context.Context, from time.Time) ([]contractRow, error)
	StatusCounts(ctx context.Context) ([]statusRow, error)
	Revenue(ctx context.Context) (revenueRow, error)
}

type cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	StatsKey(parts ...string) string
}

// Service builds the statistics page.
type Service interface {
	Overview(ctx context.Context, months int) (*Overview, error)
}

type Overview struct {
	Months      int           `json:"months"`
	Monthly     []MonthlyStat `json:"monthlyStats"`
	Statuses    []StatusStat  `json:"statusStats"`
	Totals      Totals        `json:"totalStats"`
	GeneratedAt time.Time     `json:"generatedAt"`
}

type MonthlyStat struct {
	Month     string `json:"month"`
	Contracts int64  `json:"contracts"`
	Revenue   int64  `json:"revenue"`
}

type StatusStat struct {
	Status     enums.ContractStatus `json:"status"`
	Label      string               `json:"label"`
	Count      int64                `json:"count"`
	Percentage float64              `json:"percentage"`
}

type Totals struct {
	TotalContracts   int64   `json:"totalContracts"`
	TotalRevenue     int64   `json:"totalRevenue"`
	AvgContractValue int64   `json:"avgContractValue"`
	MonthlyGrowth    float64 `json:"monthlyGrowth"`
}

type ServiceParams struct {
	Repo          statsRepository
	Cache         cache
	Logger        *logger.Logger
	CacheTTL      time.Duration
	DefaultMonths int
}

type service struct {
	repo          statsRepository
	cache         cache
	logg          *logger.Logger
	ttl           time.Duration
	defaultMonths int
	group         singleflight.Group
	now           func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "statistics repository required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	months := params.DefaultMonths
	if months <= 0 || months > maxMonths {
		months = 6
	}
	return &service{
		repo:          params.Repo,
		cache:         params.Cache,
		logg:          params.Logger,
		ttl:           params.CacheTTL,
		defaultMonths: months,
		now:           time.Now,
	}, nil
}

// Overview returns the cached snapshot for the window when there is one. Concurrent misses for
// the same window share a single build.
func (s *service) Overview(ctx context.Context, months int) (*Overview, error) {
	if months == 0 {
		months = s.defaultMonths
	}
	if months < 0 || months > maxMonths {
		return nil, pkgerrors.FieldErrors("validation failed", map[string]string{
			"months": "must be between 1 and " + strconv.Itoa(maxMonths),
		})
	}

	key := s.cacheKey(months)
	if cached, ok := s.fromCache(ctx, key); ok {
		return cached, nil
	}

	ch := s.group.DoChan(key, func() (any, error) {
		overview, err := s.build(context.WithoutCancel(ctx), months)
		if err != nil {
			return nil, err
		}
		s.store(context.WithoutCancel(ctx), key, overview)
		return overview, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		overview := *res.Val.(*Overview)
		return &overview, nil
	}
}

func (s *service) build(ctx context.Context, months int) (*Overview, error) {
	now := s.now().In(seoul)
	start := time.Date(now.Year(), now.Month()-time.Month(months-1), 1, 0, 0, 0, 0, seoul)

	rows, err := s.repo.ContractsSince(ctx, start.UTC())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load monthly contracts")
	}
	statuses, err := s.repo.StatusCounts(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count contract statuses")
	}
	revenue, err := s.repo.Revenue(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum contract revenue")
	}

	monthly := monthlySeries(start, months, rows)
	return &Overview{
		Months:      months,
		Monthly:     monthly,
		Statuses:    statusBreakdown(statuses),
		Totals:      totals(revenue, monthly),
		GeneratedAt: now.UTC(),
	}, nil
}

func monthlySeries(start time.Time, months int, rows []contractRow) []MonthlyStat {
	series := make([]MonthlyStat, months)
	index := make(map[string]int, months)
	for i := 0; i < months; i++ {
		month := start.AddDate(0, i, 0).Format("2006-01")
		series[i] = MonthlyStat{Month: month}
		index[month] = i
	}
	for _, row := range rows {
		i, ok := index[row.CreatedAt.In(seoul).Format("2006-01")]
		if !ok {
			continue
		}
		series[i].Contracts++
		if isRevenue(row.Status) {
			series[i].Revenue += row.TotalAmount
		}
	}
	return series
}

func statusBreakdown(rows []statusRow) []StatusStat {
	counts := make(map[enums.ContractStatus]int64, len(rows))
	var total int64
	for _, row := range rows {
		counts[row.Status] += row.Total
		total += row.Total
	}
	out := make([]StatusStat, 0, len(enums.ContractStatuses()))
	for _, status := range enums.ContractStatuses() {
		out = append(out, StatusStat{
			Status:     status,
			Label:      status.Label(),
			Count:      counts[status],
			Percentage: percentOf(counts[status], total),
		})
	}
	return out
}

func totals(revenue revenueRow, monthly []MonthlyStat) Totals {
	t := Totals{
		TotalContracts: revenue.Contracts,
		TotalRevenue:   revenue.Revenue,
	}
	if revenue.Contracts > 0 {
		t.AvgContractValue = decimal.NewFromInt(revenue.Revenue).
			Div(decimal.NewFromInt(revenue.Contracts)).
			Round(0).
			IntPart()
	}
	if n := len(monthly); n >= 2 && monthly[n-2].Contracts > 0 {
		prev := decimal.NewFromInt(monthly[n-2].Contracts)
		t.MonthlyGrowth = decimal.NewFromInt(monthly[n-1].Contracts).
			Sub(prev).
			Div(prev).
			Mul(decimal.NewFromInt(100)).
			Round(1).
			InexactFloat64()
	}
	return t
}

// percentOf rounds to one decimal place.
func percentOf(part, total int64) float64 {
	if total == 0 {
		return 0
	}
	return decimal.NewFromInt(part).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(total)).
		Round(1).
		InexactFloat64()
}

func isRevenue(status enums.ContractStatus) bool {
	for _, candidate := range revenueStatuses {
		if candidate == status {
			return true
		}
	}
	return false
}

func (s *service) cacheKey(months int) string {
	if s.cache == nil {
		return "overview:" + strconv.Itoa(months)
	}
	return s.cache.StatsKey("overview", strconv.Itoa(months))
}

func (s *service) fromCache(ctx context.Context, key string) (*Overview, bool) {
	if s.cache == nil || s.ttl <= 0 {
		return nil, false
	}
	raw, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, redislib.Nil) {
			s.logg.Warn(s.logg.WithField(ctx, "cache_key", key), "statistics cache read failed")
		}
		return nil, false
	}
	var overview Overview
	if err := json.Unmarshal([]byte(raw), &overview); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "cache_key", key), "statistics cache entry unreadable")
		return nil, false
	}
	return &overview, true
}

func (s *service) store(ctx context.Context, key string, overview *Overview) {
	if s.cache == nil || s.ttl <= 0 {
		return
	}
	data, err := json.Marshal(overview)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, data, s.ttl); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "cache_key", key), "statistics cache write failed")
	}
}
