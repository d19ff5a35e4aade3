package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dagym/contract-backend/api/controllers"
	businesscontrollers "github.com/dagym/contract-backend/api/controllers/businesses"
	contractcontrollers "github.com/dagym/contract-backend/api/controllers/contracts"
	signingcontrollers "github.com/dagym/contract-backend/api/controllers/signing"
	wizardcontrollers "github.com/dagym/contract-backend/api/controllers/wizard"
	"github.com/dagym/contract-backend/api/middleware"
	"github.com/dagym/contract-backend/internal/auth"
	"github.com/dagym/contract-backend/internal/businesses"
	"github.com/dagym/contract-backend/internal/contracts"
	"github.com/dagym/contract-backend/internal/facilities"
	"github.com/dagym/contract-backend/internal/plans"
	"github.com/dagym/contract-backend/internal/signing"
	"github.com/dagym/contract-backend/internal/statistics"
	"github.com/dagym/contract-backend/internal/wizard"
	"github.com/dagym/contract-backend/pkg/auth/session"
	"github.com/dagym/contract-backend/pkg/config"
	"github.com/dagym/contract-backend/pkg/enums"
	"github.com/dagym/contract-backend/pkg/logger"
	"github.com/dagym/contract-backend/pkg/metrics"
	"github.com/dagym/contract-backend/pkg/redis"
)

// Deps carries everything the router hands to controllers. Nil services surface as
// "service unavailable" responses instead of panics.
type Deps struct {
	Config         *config.Config
	Logger         *logger.Logger
	DB             controllers.Pinger
	Redis          *redis.Client
	Sessions       session.AccessSessionChecker
	Tokens         middleware.TokenVerifier
	Auth           auth.Service
	Register       auth.RegisterService
	Wizard         wizard.Service
	Contracts      contracts.Service
	Signing        signing.Service
	Businesses     businesses.Service
	Facilities     facilities.Service
	Statistics     statistics.Service
	Queue          controllers.QueueInspector
	DeadLetters    controllers.DeadLetterLister
	PlanCatalog    *plans.Catalog
	TermsCatalog   *signing.Catalog
	HTTPMetrics    *metrics.HTTPMetrics
	MetricsHandler prometheus.Gatherer
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(deps.HTTPMetrics),
		middleware.CORS(cfg.CORS),
		middleware.SecureHeaders(cfg.App.IsDev(), logg),
	)

	loginLimits := middleware.LoginLimits{
		Window:   cfg.AuthRateLimit.LoginWindow,
		PerIP:    cfg.AuthRateLimit.LoginIPLimit,
		PerEmail: cfg.AuthRateLimit.LoginEmailLimit,
	}
	var (
		loginCounter     middleware.WindowCounter
		idempotencyStore redis.IdempotencyStore
	)
	if deps.Redis != nil {
		loginCounter = deps.Redis
		idempotencyStore = deps.Redis
	}
	partnerMode, err := plans.ParsePartnerMode(cfg.Wizard.PartnerMode)
	if err != nil {
		partnerMode = plans.PartnerModeAuto
	}

	readiness := map[string]controllers.Pinger{}
	if deps.DB != nil {
		readiness["database"] = deps.DB
	}
	if deps.Redis != nil {
		readiness["redis"] = deps.Redis
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, readiness, logg))
	})
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.MetricsHandler, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.LoginThrottle(loginLimits, loginCounter, logg)).Post("/login", controllers.AuthLogin(deps.Auth, logg))
		r.Post("/refresh", controllers.AuthRefresh(deps.Auth, logg))
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(deps.Tokens, deps.Sessions, logg))
			r.Post("/logout", controllers.AuthLogout(deps.Auth, logg))
			r.Get("/me", controllers.AuthMe(deps.Auth, logg))
		})
	})

	r.Get("/api/v1/reference", controllers.Reference())
	r.Get("/api/v1/plans", controllers.PlanCatalog(deps.PlanCatalog, partnerMode))
	r.Get("/api/v1/terms", controllers.Terms(deps.TermsCatalog))

	r.Route("/api/v1/public/contracts/{contractId}", func(r chi.Router) {
		r.Use(middleware.PublicRateLimit(cfg.Signing.PublicRateLimit, logg))
		r.Get("/", signingcontrollers.ContractView(deps.Signing, logg))
		r.Get("/session", signingcontrollers.SigningSession(deps.Signing, logg))
		r.Put("/agreements", signingcontrollers.Agreements(deps.Signing, logg))
		r.Post("/proceed", signingcontrollers.Proceed(deps.Signing, logg))
		r.Post("/back", signingcontrollers.Back(deps.Signing, logg))
		r.Post("/sign", signingcontrollers.Sign(deps.Signing, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(deps.Tokens, deps.Sessions, logg))
		once := func(ttl time.Duration) func(http.Handler) http.Handler {
			return middleware.Idempotent(idempotencyStore, ttl, logg)
		}

		r.Route("/wizard", func(r chi.Router) {
			r.Get("/", wizardcontrollers.WizardGet(deps.Wizard, logg))
			r.Post("/actions", wizardcontrollers.WizardDispatch(deps.Wizard, logg))
			r.Post("/navigate", wizardcontrollers.WizardNavigate(deps.Wizard, logg))
			r.Post("/plans/select", wizardcontrollers.WizardSelectPlan(deps.Wizard, logg))
			r.Post("/plans/deselect", wizardcontrollers.WizardDeselectPlan(deps.Wizard, logg))
			r.Put("/pricing", wizardcontrollers.WizardPricing(deps.Wizard, logg))
			r.Post("/reset", wizardcontrollers.WizardReset(deps.Wizard, logg))
			r.With(once(middleware.SubmitIdempotencyTTL)).Post("/submit", wizardcontrollers.WizardSubmit(deps.Wizard, logg))
			r.Route("/drafts", func(r chi.Router) {
				r.Get("/", wizardcontrollers.DraftList(deps.Wizard, logg))
				r.Post("/", wizardcontrollers.DraftSave(deps.Wizard, logg))
				r.Post("/{draftId}/load", wizardcontrollers.DraftLoad(deps.Wizard, logg))
				r.Delete("/{draftId}", wizardcontrollers.DraftDelete(deps.Wizard, logg))
			})
		})

		r.Route("/contracts", func(r chi.Router) {
			r.Get("/", contractcontrollers.ContractList(deps.Contracts, logg))
			r.Route("/{contractId}", func(r chi.Router) {
				r.Get("/", contractcontrollers.ContractDetail(deps.Contracts, logg))
				r.Post("/load", wizardcontrollers.ContractLoad(deps.Wizard, logg))
				r.With(once(middleware.IdempotencyTTL)).Post("/send", contractcontrollers.ContractSend(deps.Contracts, logg))
				r.With(once(middleware.IdempotencyTTL)).Post("/resend", contractcontrollers.ContractResend(deps.Contracts, logg))
				r.With(once(middleware.IdempotencyTTL)).Post("/paid", contractcontrollers.ContractMarkPaid(deps.Contracts, logg))
				r.With(once(middleware.IdempotencyTTL)).Post("/complete", contractcontrollers.ContractComplete(deps.Contracts, logg))
			})
		})

		r.Route("/businesses", func(r chi.Router) {
			r.Get("/", businesscontrollers.BusinessList(deps.Businesses, logg))
			r.With(once(middleware.IdempotencyTTL)).Post("/", businesscontrollers.BusinessCreate(deps.Businesses, logg))
			r.Get("/summary", businesscontrollers.BusinessSummary(deps.Businesses, logg))
			r.Get("/{businessId}", businesscontrollers.BusinessDetail(deps.Businesses, logg))
			r.Patch("/{businessId}/status", businesscontrollers.BusinessUpdateStatus(deps.Businesses, logg))
		})

		r.Route("/facilities", func(r chi.Router) {
			r.Get("/", businesscontrollers.FacilityList(deps.Facilities, logg))
			r.With(once(middleware.IdempotencyTTL)).Post("/", businesscontrollers.FacilityCreate(deps.Facilities, logg))
			r.Get("/summary", businesscontrollers.FacilitySummary(deps.Facilities, logg))
			r.Patch("/{facilityId}", businesscontrollers.FacilityUpdate(deps.Facilities, logg))
		})

		r.Get("/statistics", controllers.StatisticsOverview(deps.Statistics, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.OperatorRoleAdmin))
			r.With(once(middleware.IdempotencyTTL)).Post("/operators", controllers.OperatorCreate(deps.Register, logg))
			r.Get("/admin/queue", controllers.AdminQueueStats(deps.Queue, logg))
			r.Get("/admin/outbox/dead-letters", controllers.AdminDeadLetters(deps.DeadLetters, logg))
		})
	})

	return r
}
