package cron

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dagym/contract-backend/pkg/logger"
	"github.com/dagym/contract-backend/pkg/metrics"
)

type memLocker struct {
	held     map[string]bool
	released []string
}

func (m *memLocker) TryLock(_ context.Context, job string) (func(context.Context) error, bool, error) {
	if m.held[job] {
		return nil, false, nil
	}
	m.held[job] = true
	return func(context.Context) error {
		m.held[job] = false
		m.released = append(m.released, job)
		return nil
	}, true, nil
}

func countingJob(name string, err error, runs *int) Job {
	return Job{Name: name, Run: func(context.Context, time.Time) (int64, error) {
		*runs++
		return 1, err
	}}
}

func newScheduler(t *testing.T, locker Locker, jobs ...Job) *Scheduler {
	t.Helper()
	s, err := NewScheduler(SchedulerParams{
		Logger:  logger.New(logger.Options{ServiceName: "cron-test", Output: io.Discard}),
		Locker:  locker,
		Metrics: metrics.NewCronJobMetrics(prometheus.NewRegistry()),
		Jobs:    jobs,
	})
	require.NoError(t, err)
	return s
}

func TestRunOnceRunsEveryJobAndCombinesFailures(t *testing.T) {
	var okRuns, badRuns int
	locker := &memLocker{held: map[string]bool{}}
	s := newScheduler(t, locker,
		countingJob("fails", errors.New("boom"), &badRuns),
		countingJob("works", nil, &okRuns),
	)

	err := s.RunOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fails: boom")
	assert.Equal(t, 1, okRuns)
	assert.Equal(t, 1, badRuns)
	assert.ElementsMatch(t, []string{"fails", "works"}, locker.released)
}

func TestRunOnceSkipsLeasedJob(t *testing.T) {
	var runs int
	locker := &memLocker{held: map[string]bool{"busy": true}}
	s := newScheduler(t, locker, countingJob("busy", nil, &runs))

	require.NoError(t, s.RunOnce(context.Background()))
	assert.Zero(t, runs)
}

func TestNewSchedulerValidates(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "cron-test", Output: io.Discard})
	locker := &memLocker{held: map[string]bool{}}
	var n int

	_, err := NewScheduler(SchedulerParams{Logger: logg, Locker: locker, Jobs: []Job{
		countingJob("same", nil, &n), countingJob("same", nil, &n),
	}})
	assert.Error(t, err)

	_, err = NewScheduler(SchedulerParams{Logger: logg, Locker: locker, Spec: "every tuesday"})
	assert.Error(t, err)

	_, err = NewScheduler(SchedulerParams{Logger: logg})
	assert.Error(t, err)
}

func TestNextHonoursLocation(t *testing.T) {
	seoul := time.FixedZone("KST", 9*3600)
	s, err := NewScheduler(SchedulerParams{
		Logger:   logger.New(logger.Options{ServiceName: "cron-test", Output: io.Discard}),
		Locker:   &memLocker{held: map[string]bool{}},
		Location: seoul,
	})
	require.NoError(t, err)

	from := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	next := s.Next(from)
	assert.True(t, next.Equal(time.Date(2026, 5, 2, 4, 0, 0, 0, seoul)), "got %s", next)
}

func TestRunStopsOnCancel(t *testing.T) {
	s := newScheduler(t, &memLocker{held: map[string]bool{}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Run(ctx), context.Canceled)
}
