package wizard

import (
	"net/http"

	"github.com/dagym/contract-backend/api/middleware"
	"github.com/dagym/contract-backend/api/responses"
	"github.com/dagym/contract-backend/api/validators"
	wizardsvc "github.com/dagym/contract-backend/internal/wizard"
	pkgerrors "github.com/dagym/contract-backend/pkg/errors"
	"github.com/dagym/contract-backend/pkg/logger"
)

type navigateRequest struct {
	Step int `json:"step" validate:"required"`
}

type planRequest struct {
	PlanID string `json:"planId" validate:"required"`
}

type saveDraftRequest struct {
	Name string `json:"name" validate:"omitempty,max=100"`
}

func unavailable(w http.ResponseWriter, r *http.Request, logg *logger.Logger) {
	responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "wizard service unavailable"))
}

// WizardGet returns the operator's in-progress session, creating an empty one on first use.
func WizardGet(svc wizardsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg)
			return
		}
		operatorID, err := middleware.RequireOperatorID(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.Get(r.Context(), operatorID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// WizardDispatch applies one reducer action sent by the console.
func WizardDispatch(svc wizardsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg)
			return
		}
		operatorID, err := middleware.RequireOperatorID(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var envelope wizardsvc.Envelope
		if err := validators.DecodeJSONBody(r, &envelope); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithField(ctx, "wizard_action", string(envelope.Type))
		}
		view, err := svc.Dispatch(ctx, operatorID, envelope)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// WizardNavigate moves the step pointer. A blocked move answers 200 with moved=false.
func WizardNavigate(svc wizardsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg)
			return
		}
		operatorID, err := middleware.RequireOperatorID(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body navigateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Navigate(r.Context(), operatorID, body.Step)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// WizardSelectPlan adds a plan under the selection rules.
func WizardSelectPlan(svc wizardsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return planHandler(svc, logg, true)
}

// WizardDeselectPlan removes a plan and anything that depends on it.
func WizardDeselectPlan(svc wizardsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return planHandler(svc, logg, false)
}

func planHandler(svc wizardsvc.Service, logg *logger.Logger, selecting bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg)
			return
		}
		operatorID, err := middleware.RequireOperatorID(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body planRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var view *wizardsvc.View
		if selecting {
			view, err = svc.SelectPlan(r.Context(), operatorID, body.PlanID)
		} else {
			view, err = svc.DeselectPlan(r.Context(), operatorID, body.PlanID)
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// WizardPricing switches the billing cycle and/or the partner flag.
func WizardPricing(svc wizardsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg)
			return
		}
		operatorID, err := middleware.RequireOperatorID(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body wizardsvc.PricingInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.UpdatePricing(r.Context(), operatorID, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// WizardReset discards the session and starts over at step 1.
func WizardReset(svc wizardsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg)
			return
		}
		operatorID, err := middleware.RequireOperatorID(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.Reset(r.Context(), operatorID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// WizardSubmit turns the session into a contract.
func WizardSubmit(svc wizardsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg)
			return
		}
		operatorID, err := middleware.RequireOperatorID(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body wizardsvc.SubmitInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Submit(r.Context(), operatorID, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if logg != nil {
			ctx := logg.WithContractID(r.Context(), result.ContractID.String())
			logg.Info(ctx, "wizard.submitted")
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}
