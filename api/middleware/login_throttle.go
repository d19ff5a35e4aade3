package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dagym/contract-backend/api/responses"
	pkgerrors "github.com/dagym/contract-backend/pkg/errors"
	"github.com/dagym/contract-backend/pkg/logger"
)

const loginPeekBytes = 16 << 10

// WindowCounter counts hits against a scope inside a fixed window.
type WindowCounter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// LoginLimits caps sign-in attempts per client address and per account inside one window.
// A zero limit turns that dimension off.
type LoginLimits struct {
	Window   time.Duration
	PerIP    int
	PerEmail int
}

func (l LoginLimits) enabled() bool {
	return l.Window > 0 && (l.PerIP > 0 || l.PerEmail > 0)
}

type throttleScope struct {
	dimension string
	value     string
	max       int
}

// LoginThrottle rejects login attempts over either limit with 429 and a Retry-After of the full
// window. Addresses by email are hashed before they reach redis or the logs.
func LoginThrottle(limits LoginLimits, counter WindowCounter, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !limits.enabled() || counter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			scopes := make([]throttleScope, 0, 2)
			if ip := ClientIP(r); limits.PerIP > 0 && ip != "" {
				scopes = append(scopes, throttleScope{dimension: "ip", value: ip, max: limits.PerIP})
			}
			if limits.PerEmail > 0 {
				email, err := peekLoginEmail(r)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request"))
					return
				}
				if email != "" {
					scopes = append(scopes, throttleScope{dimension: "email", value: emailDigest(email), max: limits.PerEmail})
				}
			}

			for _, s := range scopes {
				allowed, count, err := counter.FixedWindowAllow(ctx, "login:"+s.dimension+":"+s.value, int64(s.max), limits.Window)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
					return
				}
				if !allowed {
					if logg != nil {
						logg.Warn(logg.WithFields(ctx, map[string]any{
							"dimension": s.dimension,
							"key":       s.value,
							"attempts":  count,
							"limit":     s.max,
						}), "login.rate_limit.blocked")
					}
					w.Header().Set("Retry-After", strconv.Itoa(int(limits.Window.Seconds())))
					responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many attempts, try again later"))
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// peekLoginEmail reads the start of the body for the email field and puts the bytes back.
func peekLoginEmail(r *http.Request) (string, error) {
	if r.Body == nil {
		return "", nil
	}
	head, err := io.ReadAll(io.LimitReader(r.Body, loginPeekBytes))
	if err != nil {
		return "", err
	}
	r.Body = struct {
		io.Reader
		io.Closer
	}{io.MultiReader(bytes.NewReader(head), r.Body), r.Body}

	var body struct {
		Email string `json:"email"`
	}
	if json.Unmarshal(head, &body) != nil {
		return "", nil
	}
	return strings.ToLower(strings.TrimSpace(body.Email)), nil
}

func emailDigest(email string) string {
	sum := sha256.Sum256([]byte(email))
	return hex.EncodeToString(sum[:12])
}
