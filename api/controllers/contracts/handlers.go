package contracts

import (
	"context"
	"net/http"
	"strings"

	"github.com/dagym/contract-backend/api/middleware"
	"github.com/dagym/contract-backend/api/responses"
	"github.com/dagym/contract-backend/api/validators"
	contractsvc "github.com/dagym/contract-backend/internal/contracts"
	pkgerrors "github.com/dagym/contract-backend/pkg/errors"
	"github.com/dagym/contract-backend/pkg/logger"
)

// ContractList lists contracts newest first, optionally filtered by status.
func ContractList(svc contractsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "contract service unavailable"))
			return
		}

		page, err := validators.ParsePage(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.List(r.Context(), contractsvc.ListParams{
			Status: strings.TrimSpace(r.URL.Query().Get("status")),
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

// ContractDetail returns one contract with its signature when signed.
func ContractDetail(svc contractsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "contract service unavailable"))
			return
		}

		contractID, err := validators.ParsePathUUID(r, "contractId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		detail, err := svc.Get(r.Context(), contractID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, detail)
	}
}

type transitionFunc func(contractsvc.Service, context.Context, contractsvc.TransitionInput) (*contractsvc.Detail, error)

// ContractSend moves a draft to sent and queues the link for delivery.
func ContractSend(svc contractsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return transition(svc, logg, "contract.sent", contractsvc.Service.Send)
}

// ContractResend queues the link again for a contract that is already sent.
func ContractResend(svc contractsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return transition(svc, logg, "contract.resent", contractsvc.Service.Resend)
}

// ContractMarkPaid records that the signed contract has been settled.
func ContractMarkPaid(svc contractsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return transition(svc, logg, "contract.paid", contractsvc.Service.MarkPaid)
}

// ContractComplete closes a paid contract.
func ContractComplete(svc contractsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return transition(svc, logg, "contract.completed", contractsvc.Service.Complete)
}

func transition(svc contractsvc.Service, logg *logger.Logger, event string, apply transitionFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "contract service unavailable"))
			return
		}

		operatorID, err := middleware.RequireOperatorID(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		contractID, err := validators.ParsePathUUID(r, "contractId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithContractID(ctx, contractID.String())
		}

		detail, err := apply(svc, ctx, contractsvc.TransitionInput{
			ContractID: contractID,
			ActorID:    operatorID,
			ActorRole:  string(middleware.RoleFromContext(ctx)),
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if logg != nil {
			logg.Info(ctx, event)
		}
		responses.WriteSuccess(w, detail)
	}
}
