package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dagym/contract-backend/api/controllers"
	"github.com/dagym/contract-backend/pkg/config"
	"github.com/dagym/contract-backend/pkg/logger"
)

// NewOpsRouter is the probe and metrics surface of the background processes: the worker, the
// outbox publisher and the cron worker.
func NewOpsRouter(cfg *config.Config, checks map[string]controllers.Pinger, gatherer prometheus.Gatherer, logg *logger.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Get("/health/live", controllers.HealthLive(cfg))
	r.Get("/health/ready", controllers.HealthReady(cfg, checks, logg))
	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
	return r
}
