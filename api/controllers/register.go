package controllers

import (
	"net/http"

	"github.com/dagym/contract-backend/api/responses"
	"github.com/dagym/contract-backend/api/validators"
	"github.com/dagym/contract-backend/internal/auth"
	pkgerrors "github.com/dagym/contract-backend/pkg/errors"
	"github.com/dagym/contract-backend/pkg/logger"
)

// OperatorCreate lets an admin open a console account for another operator.
func OperatorCreate(reg auth.RegisterService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if reg == nil {
			err := pkgerrors.New(pkgerrors.CodeInternal, "register service unavailable")
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body auth.RegisterRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		user, err := reg.Register(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if logg != nil {
			logg.Info(logg.WithField(r.Context(), "operator_id", user.ID.String()), "operator.created")
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, user)
	}
}
