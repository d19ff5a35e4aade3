package middleware

import (
	"net/http"

	"github.com/dagym/contract-backend/api/responses"
	pkgAuth "github.com/dagym/contract-backend/pkg/auth"
	"github.com/dagym/contract-backend/pkg/auth/session"
	pkgerrors "github.com/dagym/contract-backend/pkg/errors"
	"github.com/dagym/contract-backend/pkg/logger"
)

// TokenVerifier checks a bearer credential and returns its claims.
type TokenVerifier interface {
	Verify(raw string) (*pkgAuth.AccessTokenClaims, error)
}

// Auth admits requests that carry a valid access token whose session is still open, and seeds the
// context with the operator id and role. A nil sessions checker skips the session lookup.
func Auth(tokens TokenVerifier, sessions session.AccessSessionChecker, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			fail := func(err error) { responses.WriteError(ctx, logg, w, err) }

			raw, ok := pkgAuth.BearerToken(r.Header.Get("Authorization"))
			if !ok {
				fail(pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}
			claims, err := tokens.Verify(raw)
			if err != nil {
				fail(pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}
			if !claims.Role.IsValid() {
				fail(pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid role"))
				return
			}

			if sessions != nil {
				open, err := sessions.HasSession(ctx, claims.ID)
				switch {
				case err != nil:
					fail(pkgerrors.Wrap(pkgerrors.CodeDependency, err, "validate session"))
					return
				case !open:
					fail(pkgerrors.New(pkgerrors.CodeUnauthorized, "session unavailable"))
					return
				}
			}

			operator := claims.UserID.String()
			ctx = WithRole(WithUserID(ctx, operator), claims.Role)
			if logg != nil {
				ctx = logg.WithOperatorRole(logg.WithUserID(ctx, operator), string(claims.Role))
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
