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
	"golang.org/x/sync/errgroup"

	"github.com/dagym/contract-backend/api/controllers"
	"github.com/dagym/contract-backend/api/routes"
	"github.com/dagym/contract-backend/internal/dispatch"
	"github.com/dagym/contract-backend/pkg/config"
	"github.com/dagym/contract-backend/pkg/httpserver"
	"github.com/dagym/contract-backend/pkg/logger"
	"github.com/dagym/contract-backend/pkg/metrics"
	"github.com/dagym/contract-backend/pkg/outbox/idempotency"
	"github.com/dagym/contract-backend/pkg/outbox/registry"
	"github.com/dagym/contract-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "worker"

	logg = logger.New(logger.Options{
		ServiceName: "worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})

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

	dedupe, err := idempotency.NewDeduper(redisClient, cfg.Worker.DedupeTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create deduper", err)
		os.Exit(1)
	}
	catalog, err := registry.NewCatalog(cfg.Worker.Queue)
	if err != nil {
		logg.Error(context.Background(), "failed to build route catalog", err)
		os.Exit(1)
	}
	handler, err := dispatch.NewHandler(dispatch.HandlerParams{
		Logger:      logg,
		Catalog:     catalog,
		Dedupe:      dedupe,
		Sender:      dispatch.NewLogRouter(logg),
		Metrics:     metrics.NewDispatchMetrics(prometheus.DefaultRegisterer),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create dispatch handler", err)
		os.Exit(1)
	}
	worker, err := dispatch.NewWorker(dispatch.WorkerParams{
		RedisOpts: redisOpts,
		Config:    cfg.Worker,
		Logger:    logg,
		Handler:   handler,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create dispatch worker", err)
		os.Exit(1)
	}

	ops := &http.Server{
		Addr:    cfg.Service.OpsAddr,
		Handler: routes.NewOpsRouter(cfg, map[string]controllers.Pinger{"redis": redisClient}, prometheus.DefaultGatherer, logg),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"queue":       cfg.Worker.Queue,
	})
	logg.Info(ctx, "starting worker")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return worker.Run(gctx) })
	g.Go(func() error { return httpserver.Serve(gctx, ops, 0, logg) })
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "worker shutting down gracefully")
}
