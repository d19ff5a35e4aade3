package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/dagym/contract-backend/api/routes"
	"github.com/dagym/contract-backend/internal/auth"
	"github.com/dagym/contract-backend/internal/businesses"
	"github.com/dagym/contract-backend/internal/contracts"
	"github.com/dagym/contract-backend/internal/dispatch"
	"github.com/dagym/contract-backend/internal/facilities"
	"github.com/dagym/contract-backend/internal/plans"
	"github.com/dagym/contract-backend/internal/signing"
	"github.com/dagym/contract-backend/internal/statistics"
	"github.com/dagym/contract-backend/internal/users"
	"github.com/dagym/contract-backend/internal/wizard"
	pkgauth "github.com/dagym/contract-backend/pkg/auth"
	"github.com/dagym/contract-backend/pkg/auth/session"
	"github.com/dagym/contract-backend/pkg/config"
	"github.com/dagym/contract-backend/pkg/db"
	"github.com/dagym/contract-backend/pkg/enums"
	"github.com/dagym/contract-backend/pkg/httpserver"
	"github.com/dagym/contract-backend/pkg/logger"
	"github.com/dagym/contract-backend/pkg/metrics"
	"github.com/dagym/contract-backend/pkg/migrate"
	"github.com/dagym/contract-backend/pkg/outbox"
	"github.com/dagym/contract-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}

	redisOpts, err := dispatch.RedisClientOpt(cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to resolve task queue connection", err)
		os.Exit(1)
	}
	inspector := dispatch.NewInspector(redisOpts, cfg.Worker.Queue)

	defer func() {
		if err := multierr.Combine(inspector.Close(), redisClient.Close(), dbClient.Close()); err != nil {
			logg.Error(context.Background(), "error closing dependencies", err)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	contractMetrics := metrics.NewContractMetrics(registry)

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	tokens, err := pkgauth.NewTokens(cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create token authority", err)
		os.Exit(1)
	}

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       users.NewRepository(dbClient.DB()),
		SessionManager: sessionManager,
		Tokens:         tokens,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}
	registerService, err := auth.NewRegisterService(auth.RegisterServiceParams{
		TxRunner:       dbClient,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create register service", err)
		os.Exit(1)
	}

	partnerMode, err := plans.ParsePartnerMode(cfg.Wizard.PartnerMode)
	if err != nil {
		logg.Error(context.Background(), "invalid partner mode", err)
		os.Exit(1)
	}
	planCatalog, err := plans.DefaultCatalog()
	if err != nil {
		logg.Error(context.Background(), "failed to build plan catalog", err)
		os.Exit(1)
	}
	selector, err := plans.NewSelector(planCatalog, partnerMode)
	if err != nil {
		logg.Error(context.Background(), "failed to create plan selector", err)
		os.Exit(1)
	}

	businessService, err := businesses.NewService(businesses.NewRepository(dbClient.DB()), logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create business service", err)
		os.Exit(1)
	}
	facilityService, err := facilities.NewService(facilities.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create facility service", err)
		os.Exit(1)
	}

	outboxRepo := outbox.NewRepository(dbClient.DB())
	outboxEmitter := outbox.NewEmitter(outboxRepo, logg)

	contractService, err := contracts.NewService(contracts.ServiceParams{
		Repo:           contracts.NewRepository(dbClient.DB()),
		Tx:             dbClient,
		Outbox:         outboxEmitter,
		Businesses:     businessService,
		Selector:       selector,
		Logger:         logg,
		Metrics:        contractMetrics,
		PublicBaseURL:  cfg.App.PublicBaseURL,
		InjectFreePlan: cfg.Wizard.InjectFreePlan,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create contracts service", err)
		os.Exit(1)
	}

	defaultCycle, err := enums.ParseBillingCycle(cfg.Wizard.DefaultCycle)
	if err != nil {
		logg.Error(context.Background(), "invalid default billing cycle", err)
		os.Exit(1)
	}
	wizardStore, err := wizard.NewStore(redisClient, cfg.Wizard.DraftTTL, defaultCycle)
	if err != nil {
		logg.Error(context.Background(), "failed to create wizard store", err)
		os.Exit(1)
	}
	wizardService, err := wizard.NewService(wizard.ServiceParams{
		Store:          wizardStore,
		Selector:       selector,
		Validator:      wizard.NewStepValidator(),
		Drafts:         wizard.NewDraftRepository(dbClient.DB()),
		Contracts:      contractService,
		Logger:         logg,
		Metrics:        metrics.NewWizardMetrics(registry),
		MaxSavedDrafts: cfg.Wizard.MaxSavedDrafts,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create wizard service", err)
		os.Exit(1)
	}

	termsCatalog := signing.DefaultCatalog()
	signingStore, err := signing.NewStore(redisClient, cfg.Signing.SessionTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create signing store", err)
		os.Exit(1)
	}
	signingService, err := signing.NewService(signing.ServiceParams{
		Contracts:         contractService,
		Store:             signingStore,
		Repo:              signing.NewRepository(dbClient.DB()),
		Tx:                dbClient,
		Flow:              signing.NewFlow(termsCatalog),
		Logger:            logg,
		Metrics:           contractMetrics,
		MaxSignatureBytes: cfg.Signing.MaxSignatureBytes,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create signing service", err)
		os.Exit(1)
	}

	statisticsService, err := statistics.NewService(statistics.ServiceParams{
		Repo:          statistics.NewRepository(dbClient.DB()),
		Cache:         redisClient,
		Logger:        logg,
		CacheTTL:      cfg.Stats.CacheTTL,
		DefaultMonths: cfg.Stats.DefaultMonths,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create statistics service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"addr":        addr,
		"partnerMode": string(partnerMode),
	})

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:         cfg,
			Logger:         logg,
			DB:             dbClient,
			Redis:          redisClient,
			Sessions:       sessionManager,
			Tokens:         tokens,
			Auth:           authService,
			Register:       registerService,
			Wizard:         wizardService,
			Contracts:      contractService,
			Signing:        signingService,
			Businesses:     businessService,
			Facilities:     facilityService,
			Statistics:     statisticsService,
			Queue:          inspector,
			DeadLetters:    outboxRepo,
			PlanCatalog:    planCatalog,
			TermsCatalog:   termsCatalog,
			HTTPMetrics:    metrics.NewHTTPMetrics(registry),
			MetricsHandler: registry,
		}),
	}

	logg.Info(ctx, "starting api server")
	if err := httpserver.Serve(ctx, server, shutdownTimeout, logg); err != nil {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "api server shut down gracefully")
}
