package controllers

import (
	"context"
	"net/http"

	"github.com/dagym/contract-backend/api/responses"
	"github.com/dagym/contract-backend/api/validators"
	"github.com/dagym/contract-backend/internal/dispatch"
	"github.com/dagym/contract-backend/internal/statistics"
	"github.com/dagym/contract-backend/pkg/db/models"
	pkgerrors "github.com/dagym/contract-backend/pkg/errors"
	"github.com/dagym/contract-backend/pkg/logger"
)

const (
	defaultStatsMonths = 6
	maxStatsMonths     = 24
)

// QueueInspector reports the dispatch backlog.
type QueueInspector interface {
	Stats(ctx context.Context) (*dispatch.QueueStats, error)
}

// DeadLetterLister lists outbox rows the relay gave up on.
type DeadLetterLister interface {
	DeadLetters(ctx context.Context, limit int) ([]models.OutboxDLQ, error)
}

// StatisticsOverview returns the monthly series, status breakdown and totals for the last N months.
func StatisticsOverview(svc statistics.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "statistics service unavailable"))
			return
		}
		months, err := validators.ParseQueryInt(r, "months", defaultStatsMonths, 1, maxStatsMonths)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		overview, err := svc.Overview(r.Context(), months)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, overview)
	}
}

func AdminQueueStats(inspector QueueInspector, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if inspector == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeDependency, "queue inspector unavailable"))
			return
		}
		stats, err := inspector.Stats(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "inspect dispatch queue"))
			return
		}
		responses.WriteSuccess(w, stats)
	}
}

// AdminDeadLetters returns the most recently parked outbox events.
func AdminDeadLetters(lister DeadLetterLister, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if lister == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeDependency, "outbox unavailable"))
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", 50, 1, 200)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rows, err := lister.DeadLetters(r.Context(), limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list dead letters"))
			return
		}
		responses.WriteSuccess(w, rows)
	}
}
