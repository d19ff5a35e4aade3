package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/dagym/contract-backend/pkg/config"
)

var signingMethod = jwt.SigningMethodHS256

// Issued is a freshly signed access token and the instant it stops verifying.
type Issued struct {
	Token     string
	ExpiresAt time.Time
}

// Tokens signs and checks console access tokens with one shared HMAC secret.
type Tokens struct {
	secret  []byte
	issuer  string
	ttl     time.Duration
	strict  *jwt.Parser
	lenient *jwt.Parser
}

// NewTokens validates cfg once so the request path never has to.
func NewTokens(cfg config.JWTConfig) (*Tokens, error) {
	switch {
	case cfg.Secret == "":
		return nil, errors.New("jwt secret is required")
	case cfg.Issuer == "":
		return nil, errors.New("jwt issuer is required")
	case cfg.ExpirationMinutes <= 0:
		return nil, errors.New("jwt expiration minutes must be positive")
	}
	methods := jwt.WithValidMethods([]string{signingMethod.Alg()})
	return &Tokens{
		secret:  []byte(cfg.Secret),
		issuer:  cfg.Issuer,
		ttl:     time.Duration(cfg.ExpirationMinutes) * time.Minute,
		strict:  jwt.NewParser(methods, jwt.WithIssuer(cfg.Issuer), jwt.WithExpirationRequired()),
		lenient: jwt.NewParser(methods, jwt.WithIssuer(cfg.Issuer), jwt.WithoutClaimsValidation()),
	}, nil
}

// TTL is how long an issued token stays valid.
func (t *Tokens) TTL() time.Duration { return t.ttl }

// Issue signs a token for payload. A blank JTI gets a random one.
func (t *Tokens) Issue(now time.Time, payload AccessTokenPayload) (Issued, error) {
	if payload.UserID == uuid.Nil {
		return Issued{}, errors.New("user id is required")
	}
	if !payload.Role.IsValid() {
		return Issued{}, fmt.Errorf("invalid operator role %q", payload.Role)
	}
	jti := strings.TrimSpace(payload.JTI)
	if jti == "" {
		jti = uuid.NewString()
	}

	now = now.UTC().Truncate(jwt.TimePrecision)
	expires := now.Add(t.ttl)
	claims := AccessTokenClaims{
		UserID: payload.UserID,
		Email:  strings.ToLower(strings.TrimSpace(payload.Email)),
		Role:   payload.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.issuer,
			Subject:   payload.UserID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
			ID:        jti,
		},
	}
	signed, err := jwt.NewWithClaims(signingMethod, claims).SignedString(t.secret)
	if err != nil {
		return Issued{}, fmt.Errorf("signing jwt: %w", err)
	}
	return Issued{Token: signed, ExpiresAt: expires}, nil
}

// Verify checks signature, issuer and expiry.
func (t *Tokens) Verify(raw string) (*AccessTokenClaims, error) {
	return t.parse(t.strict, raw)
}

// Inspect checks signature and issuer but accepts an expired token, which is what refresh and
// logout need to find the session id.
func (t *Tokens) Inspect(raw string) (*AccessTokenClaims, error) {
	return t.parse(t.lenient, raw)
}

func (t *Tokens) parse(p *jwt.Parser, raw string) (*AccessTokenClaims, error) {
	claims := &AccessTokenClaims{}
	if _, err := p.ParseWithClaims(raw, claims, t.key); err != nil {
		return nil, err
	}
	if claims.Issuer != t.issuer {
		return nil, fmt.Errorf("unexpected issuer %q", claims.Issuer)
	}
	if claims.ID == "" {
		return nil, errors.New("token has no session id")
	}
	return claims, nil
}

func (t *Tokens) key(token *jwt.Token) (any, error) {
	if token.Method != signingMethod {
		return nil, fmt.Errorf("unexpected signing method %s", token.Header["alg"])
	}
	return t.secret, nil
}

// BearerToken pulls the credential out of an Authorization header value. The scheme prefix is
// optional.
func BearerToken(header string) (string, bool) {
	token := strings.TrimSpace(header)
	if scheme, rest, found := strings.Cut(token, " "); found && strings.EqualFold(scheme, "bearer") {
		token = strings.TrimSpace(rest)
	} else if strings.EqualFold(token, "bearer") {
		token = ""
	}
	return token, token != ""
}
