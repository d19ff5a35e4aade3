package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/httprate"

	"github.com/dagym/contract-backend/api/responses"
	pkgerrors "github.com/dagym/contract-backend/pkg/errors"
	"github.com/dagym/contract-backend/pkg/logger"
)

// PublicRateLimit throttles the unauthenticated signing routes per client IP. A non-positive limit
// disables it.
func PublicRateLimit(perMinute int, logg *logger.Logger) func(http.Handler) http.Handler {
	if perMinute <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return httprate.Limit(perMinute, time.Minute,
		httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
			return "signing:" + ClientIP(r), nil
		}),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if logg != nil {
				logg.Warn(logg.WithField(ctx, "ip", ClientIP(r)), "signing.rate_limit.blocked")
			}
			responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many requests"))
		}),
	)
}
