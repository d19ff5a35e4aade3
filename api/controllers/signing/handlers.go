package signing

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/dagym/contract-backend/api/middleware"
	"github.com/dagym/contract-backend/api/responses"
	"github.com/dagym/contract-backend/api/validators"
	signingsvc "github.com/dagym/contract-backend/internal/signing"
	pkgerrors "github.com/dagym/contract-backend/pkg/errors"
	"github.com/dagym/contract-backend/pkg/logger"
)

type signRequest struct {
	ImageData string     `json:"imageData" validate:"required"`
	SignedAt  *time.Time `json:"signedAt"`
}

type sessionAction func(svc signingsvc.Service, r *http.Request, contractID uuid.UUID) (*signingsvc.View, error)

func unavailable(w http.ResponseWriter, r *http.Request, logg *logger.Logger) {
	responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "signing service unavailable"))
}

// ContractView returns the client-facing snapshot of a sent contract.
func ContractView(svc signingsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg)
			return
		}
		contractID, err := validators.ParsePathUUID(r, "contractId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.Contract(r.Context(), contractID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// SigningSession returns the current signing step, opening one on first visit.
func SigningSession(svc signingsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return sessionHandler(svc, logg, func(svc signingsvc.Service, r *http.Request, contractID uuid.UUID) (*signingsvc.View, error) {
		return svc.Session(r.Context(), contractID)
	})
}

// Agreements checks or clears terms on the terms step.
func Agreements(svc signingsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return sessionHandler(svc, logg, func(svc signingsvc.Service, r *http.Request, contractID uuid.UUID) (*signingsvc.View, error) {
		var input signingsvc.AgreementsInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			return nil, err
		}
		return svc.SetAgreements(r.Context(), contractID, input)
	})
}

// Proceed moves from the terms step to the signature pad.
func Proceed(svc signingsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return sessionHandler(svc, logg, func(svc signingsvc.Service, r *http.Request, contractID uuid.UUID) (*signingsvc.View, error) {
		return svc.Proceed(r.Context(), contractID)
	})
}

// Back returns from the signature pad to the terms step.
func Back(svc signingsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return sessionHandler(svc, logg, func(svc signingsvc.Service, r *http.Request, contractID uuid.UUID) (*signingsvc.View, error) {
		return svc.Back(r.Context(), contractID)
	})
}

// Sign stores the drawn signature and marks the contract signed.
func Sign(svc signingsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return sessionHandler(svc, logg, func(svc signingsvc.Service, r *http.Request, contractID uuid.UUID) (*signingsvc.View, error) {
		var body signRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return nil, err
		}
		view, err := svc.Sign(r.Context(), signingsvc.SignInput{
			ContractID: contractID,
			ImageData:  body.ImageData,
			SignedAt:   body.SignedAt,
			ClientIP:   middleware.ClientIP(r),
			UserAgent:  r.UserAgent(),
		})
		if err == nil && logg != nil {
			logg.Info(r.Context(), "contract.signed")
		}
		return view, err
	})
}

func sessionHandler(svc signingsvc.Service, logg *logger.Logger, action sessionAction) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg)
			return
		}
		contractID, err := validators.ParsePathUUID(r, "contractId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if logg != nil {
			r = r.WithContext(logg.WithContractID(r.Context(), contractID.String()))
		}

		view, err := action(svc, r, contractID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}
