package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/dagym/contract-backend/api/controllers"
	"github.com/dagym/contract-backend/api/routes"
	"github.com/dagym/contract-backend/internal/dispatch"
	"github.com/dagym/contract-backend/internal/relay"
	"github.com/dagym/contract-backend/pkg/config"
	"github.com/dagym/contract-backend/pkg/db"
	"github.com/dagym/contract-backend/pkg/httpserver"
	"github.com/dagym/contract-backend/pkg/logger"
	"github.com/dagym/contract-backend/pkg/metrics"
	"github.com/dagym/contract-backend/pkg/migrate"
	"github.com/dagym/contract-backend/pkg/outbox"
	"github.com/dagym/contract-backend/pkg/outbox/registry"
	"github.com/dagym/contract-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "outbox-publisher"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	cfg.Service.Kind = "outbox-publisher"

	logg = logger.New(logger.Options{
		ServiceName: "outbox-publisher",
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

	redisOpts, err := dispatch.RedisClientOpt(cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to resolve task queue connection", err)
		os.Exit(1)
	}
	queueClient := dispatch.NewClient(redisOpts)
	defer func() {
		if err := queueClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing task queue client", err)
		}
	}()

	catalog, err := registry.NewCatalog(cfg.Worker.Queue)
	if err != nil {
		logg.Error(context.Background(), "failed to build route catalog", err)
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	publisher, err := relay.New(dbClient, outbox.NewRepository(dbClient.DB()), catalog, queueClient, logg,
		metrics.NewRelayMetrics(reg),
		relay.Options{
			BatchSize:    cfg.Outbox.BatchSize,
			MaxAttempts:  cfg.Outbox.MaxAttempts,
			TaskRetry:    cfg.Worker.MaxRetry,
			PollInterval: cfg.Outbox.PollInterval(),
		})
	if err != nil {
		logg.Error(context.Background(), "failed to create outbox publisher", err)
		os.Exit(1)
	}

	ops := &http.Server{
		Addr: cfg.Service.OpsAddr,
		Handler: routes.NewOpsRouter(cfg, map[string]controllers.Pinger{
			"database": dbClient,
			"redis":    redisClient,
		}, reg, logg),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting outbox publisher")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return publisher.Run(gctx) })
	g.Go(func() error { return httpserver.Serve(gctx, ops, 0, logg) })
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "outbox publisher stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "outbox publisher shut down gracefully")
}
