package middleware

import (
	"net/http"
	"regexp"

	"github.com/google/uuid"

	"github.com/dagym/contract-backend/pkg/logger"
)

const requestIDHeader = "X-Request-Id"

// Client-supplied ids that do not match are replaced with a fresh uuid.
var requestIDPattern = regexp.MustCompile(`^[A-Za-z0-9._-]{8,64}$`)

// RequestID makes sure every request has an id in the response header, the log context and
// error bodies.
func RequestID(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(requestIDHeader)
			if !requestIDPattern.MatchString(id) {
				id = uuid.NewString()
			}
			w.Header().Set(requestIDHeader, id)
			if logg != nil {
				r = r.WithContext(logg.WithRequestID(r.Context(), id))
			}
			next.ServeHTTP(w, r)
		})
	}
}
