package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"

	"github.com/dagym/contract-backend/pkg/logger"
	"github.com/dagym/contract-backend/pkg/metrics"
)

// DefaultSpec runs housekeeping once a day at 04:00 in the scheduler's location.
const DefaultSpec = "0 4 * * *"

type SchedulerParams struct {
	Logger   *logger.Logger
	Locker   Locker
	Metrics  *metrics.RunMetrics
	Spec     string
	Location *time.Location
	Jobs     []Job
}

// Scheduler runs every job on a cron schedule. Each job takes its own lease first; a job whose
// lease is held elsewhere is skipped for that tick.
type Scheduler struct {
	logg     *logger.Logger
	locker   Locker
	metrics  *metrics.RunMetrics
	spec     string
	schedule cron.Schedule
	loc      *time.Location
	jobs     []Job
	now      func() time.Time
}

func NewScheduler(params SchedulerParams) (*Scheduler, error) {
	if params.Logger == nil {
		return nil, errors.New("cron: logger required")
	}
	if params.Locker == nil {
		return nil, errors.New("cron: locker required")
	}
	seen := make(map[string]struct{}, len(params.Jobs))
	for _, job := range params.Jobs {
		if job.Name == "" || job.Run == nil {
			return nil, errors.New("cron: job needs a name and a run func")
		}
		if _, dup := seen[job.Name]; dup {
			return nil, fmt.Errorf("cron: job %q registered twice", job.Name)
		}
		seen[job.Name] = struct{}{}
	}
	spec := params.Spec
	if spec == "" {
		spec = DefaultSpec
	}
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("cron: parse %q: %w", spec, err)
	}
	loc := params.Location
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{
		logg:     params.Logger,
		locker:   params.Locker,
		metrics:  params.Metrics,
		spec:     spec,
		schedule: schedule,
		loc:      loc,
		jobs:     params.Jobs,
		now:      time.Now,
	}, nil
}

// Next is the first scheduled tick after from.
func (s *Scheduler) Next(from time.Time) time.Time {
	return s.schedule.Next(from.In(s.loc))
}

// Run blocks until ctx is canceled, running all jobs on every tick. A tick that fires while the
// previous one is still running is skipped.
func (s *Scheduler) Run(ctx context.Context) error {
	adapter := cronLogger{logg: s.logg, ctx: ctx}
	c := cron.New(
		cron.WithLocation(s.loc),
		cron.WithLogger(adapter),
		cron.WithChain(cron.Recover(adapter), cron.SkipIfStillRunning(adapter)),
	)
	c.Schedule(s.schedule, cron.FuncJob(func() {
		if err := s.RunOnce(ctx); err != nil {
			s.logg.Error(ctx, "cron tick finished with failures", err)
		}
	}))
	c.Start()
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"spec":     s.spec,
		"next_run": s.Next(s.now()).Format(time.RFC3339),
	}), "cron scheduler started")

	<-ctx.Done()
	<-c.Stop().Done()
	return ctx.Err()
}

// RunOnce runs every job once, in order. Failures do not stop later jobs and come back combined.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	var errs error
	for _, job := range s.jobs {
		errs = multierr.Append(errs, s.runJob(ctx, job))
	}
	return errs
}

func (s *Scheduler) runJob(ctx context.Context, job Job) error {
	ctx = s.logg.WithField(ctx, "job", job.Name)
	release, ok, err := s.locker.TryLock(ctx, job.Name)
	if err != nil {
		return err
	}
	if !ok {
		s.logg.Info(ctx, "cron job leased by another worker, skipping")
		return nil
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			s.logg.Error(ctx, "cron lease release failed", err)
		}
	}()

	start := s.now()
	rows, err := job.Run(ctx, start)
	elapsed := s.now().Sub(start)
	s.metrics.Observe(job.Name, elapsed, err)
	ctx = s.logg.WithFields(ctx, map[string]any{
		"rows":       rows,
		"elapsed_ms": elapsed.Milliseconds(),
	})
	if err != nil {
		s.logg.Error(ctx, "cron job failed", err)
		return fmt.Errorf("%s: %w", job.Name, err)
	}
	s.logg.Info(ctx, "cron job complete")
	return nil
}

// cronLogger routes the scheduler library's own messages into the service logger.
type cronLogger struct {
	logg *logger.Logger
	ctx  context.Context
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logg.Debug(l.logg.WithFields(l.ctx, pairs(keysAndValues)), "cron: "+msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logg.Error(l.logg.WithFields(l.ctx, pairs(keysAndValues)), "cron: "+msg, err)
}

func pairs(kv []any) map[string]any {
	fields := make(map[string]any, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		if k, ok := kv[i].(string); ok {
			fields[k] = kv[i+1]
		}
	}
	return fields
}
