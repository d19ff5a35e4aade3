package businesses

import (
	"net/http"
	"strings"

	"github.com/dagym/contract-backend/api/responses"
	"github.com/dagym/contract-backend/api/validators"
	businesssvc "github.com/dagym/contract-backend/internal/businesses"
	pkgerrors "github.com/dagym/contract-backend/pkg/errors"
	"github.com/dagym/contract-backend/pkg/logger"
)

type statusRequest struct {
	Status string `json:"status" validate:"required,oneof=active inactive"`
}

func unavailable(w http.ResponseWriter, r *http.Request, logg *logger.Logger, name string) {
	responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, name+" service unavailable"))
}

// BusinessList serves the management table with optional search and status filters.
func BusinessList(svc businesssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "business")
			return
		}
		page, err := validators.ParsePage(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		query := r.URL.Query()
		result, err := svc.List(r.Context(), businesssvc.ListParams{
			Search: strings.TrimSpace(query.Get("search")),
			Status: strings.TrimSpace(query.Get("status")),
			Limit:  page.Limit,
			Cursor: page.Cursor,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func BusinessDetail(svc businesssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "business")
			return
		}
		id, err := validators.ParsePathUUID(r, "businessId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		business, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, business)
	}
}

// BusinessCreate registers a business by hand, outside the contract flow.
func BusinessCreate(svc businesssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "business")
			return
		}
		var input businesssvc.CreateBusinessInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		business, err := svc.Create(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, business)
	}
}

func BusinessUpdateStatus(svc businesssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "business")
			return
		}
		id, err := validators.ParsePathUUID(r, "businessId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body statusRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		business, err := svc.UpdateStatus(r.Context(), id, body.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if logg != nil {
			logg.Info(logg.WithFields(r.Context(), map[string]any{
				"business_id": id.String(),
				"status":      body.Status,
			}), "business.status_changed")
		}
		responses.WriteSuccess(w, business)
	}
}

func BusinessSummary(svc businesssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "business")
			return
		}
		summary, err := svc.Summary(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}
