package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/dagym/contract-backend/api/controllers"
	"github.com/dagym/contract-backend/api/routes"
	"github.com/dagym/contract-backend/internal/cron"
	"github.com/dagym/contract-backend/internal/wizard"
	"github.com/dagym/contract-backend/pkg/config"
	"github.com/dagym/contract-backend/pkg/db"
	"github.com/dagym/contract-backend/pkg/httpserver"
	"github.com/dagym/contract-backend/pkg/logger"
	"github.com/dagym/contract-backend/pkg/metrics"
	"github.com/dagym/contract-backend/pkg/migrate"
	"github.com/dagym/contract-backend/pkg/outbox"
	"github.com/dagym/contract-backend/pkg/redis"
)

func main() {
	once := flag.Bool("once", false, "run a single cycle and exit")
	flag.Parse()

	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	locker, err := cron.NewRedisLocker(redisClient, cfg.App.Env, cfg.Cron.LeaseTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron locker", err)
		os.Exit(1)
	}
	loc, err := time.LoadLocation(cfg.Cron.Timezone)
	if err != nil {
		logg.Error(context.Background(), "unknown cron timezone", err)
		os.Exit(1)
	}

	scheduler, err := cron.NewScheduler(cron.SchedulerParams{
		Logger:   logg,
		Locker:   locker,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Spec:     cfg.Cron.Schedule,
		Location: loc,
		Jobs: []cron.Job{
			cron.OutboxRetention(dbClient, outbox.NewRepository(dbClient.DB()), cfg.Cron.OutboxRetentionDays, cfg.Outbox.MaxAttempts),
			cron.DraftRetention(wizard.NewDraftRepository(dbClient.DB()), cfg.Cron.DraftRetentionDays),
		},
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron scheduler", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting cron worker")

	if *once {
		if err := scheduler.RunOnce(ctx); err != nil {
			logg.Error(ctx, "cron cycle failed", err)
			os.Exit(1)
		}
		return
	}

	ops := &http.Server{
		Addr: cfg.Service.OpsAddr,
		Handler: routes.NewOpsRouter(cfg, map[string]controllers.Pinger{
			"database": dbClient,
			"redis":    redisClient,
		}, prometheus.DefaultGatherer, logg),
	}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return scheduler.Run(gctx) })
	g.Go(func() error { return httpserver.Serve(gctx, ops, 0, logg) })
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}
