package businesses

import (
	"net/http"
	"strings"

	"github.com/dagym/contract-backend/api/responses"
	"github.com/dagym/contract-backend/api/validators"
	facilitysvc "github.com/dagym/contract-backend/internal/facilities"
	"github.com/dagym/contract-backend/pkg/logger"
)

// FacilityList lists facilities, optionally narrowed to one business.
func FacilityList(svc facilitysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "facility")
			return
		}
		page, err := validators.ParsePage(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		businessID, err := validators.ParseQueryUUID(r, "businessId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.List(r.Context(), facilitysvc.ListParams{
			BusinessID: businessID,
			Status:     strings.TrimSpace(r.URL.Query().Get("status")),
			Limit:      page.Limit,
			Cursor:     page.Cursor,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func FacilityCreate(svc facilitysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "facility")
			return
		}
		var input facilitysvc.CreateFacilityInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		facility, err := svc.Create(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, facility)
	}
}

// FacilityUpdate patches the supplied fields of one facility.
func FacilityUpdate(svc facilitysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "facility")
			return
		}
		id, err := validators.ParsePathUUID(r, "facilityId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var input facilitysvc.UpdateFacilityInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		facility, err := svc.Update(r.Context(), id, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, facility)
	}
}

func FacilitySummary(svc facilitysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "facility")
			return
		}
		businessID, err := validators.ParseQueryUUID(r, "businessId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		summary, err := svc.Summary(r.Context(), businessID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}
