package session

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/dagym/contract-backend/pkg/config"
	"github.com/dagym/contract-backend/pkg/redis"
)

var (
	// ErrInvalidRefreshToken covers unknown, expired, reused and mismatched refresh tokens alike.
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	errMissingAccessID     = errors.New("access id is required")
)

// Store is the slice of the redis client the manager needs.
type Store interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	GetDel(ctx context.Context, key string) (string, error)
	Exists(ctx context.Context, key string) (bool, error)
	Del(ctx context.Context, keys ...string) error
	AccessSessionKey(accessID string) string
}

// AccessSessionChecker exposes the read-only surface needed by middleware.
type AccessSessionChecker interface {
	HasSession(ctx context.Context, accessID string) (bool, error)
}

// Manager ties each access token id (the jwt jti) to a single-use refresh token. Redis only ever
// holds a digest of the refresh token; the token itself goes to the operator's console once.
type Manager struct {
	store Store
	ttl   time.Duration
}

var _ Store = (*redis.Client)(nil)

// NewManager checks that refresh tokens outlive access tokens before handing back a manager.
func NewManager(store Store, cfg config.JWTConfig) (*Manager, error) {
	if store == nil {
		return nil, errors.New("session store is required")
	}
	refresh := cfg.RefreshTokenTTL()
	access := time.Duration(cfg.ExpirationMinutes) * time.Minute
	switch {
	case refresh <= 0:
		return nil, errors.New("refresh token ttl must be positive")
	case refresh <= access:
		return nil, fmt.Errorf("refresh token ttl %s does not outlive access token ttl %s", refresh, access)
	}
	return &Manager{store: store, ttl: refresh}, nil
}

// NewAccessID mints the jti shared by an access token and its session key.
func NewAccessID() string {
	return uuid.NewString()
}

// Generate opens a session for accessID and returns its refresh token.
func (m *Manager) Generate(ctx context.Context, accessID string) (string, error) {
	if blank(accessID) {
		return "", errMissingAccessID
	}
	return m.open(ctx, accessID)
}

// Rotate consumes the session behind oldAccessID and opens a fresh one. The old entry is removed
// before the token is compared, so a refresh token can be presented at most once even when two
// requests race.
func (m *Manager) Rotate(ctx context.Context, oldAccessID, provided string) (string, string, error) {
	if blank(oldAccessID) || blank(provided) {
		return "", "", ErrInvalidRefreshToken
	}
	stored, err := m.store.GetDel(ctx, m.store.AccessSessionKey(oldAccessID))
	if errors.Is(err, goredis.Nil) {
		return "", "", ErrInvalidRefreshToken
	}
	if err != nil {
		return "", "", err
	}
	if subtle.ConstantTimeCompare([]byte(stored), []byte(digest(provided))) != 1 {
		return "", "", ErrInvalidRefreshToken
	}

	accessID := NewAccessID()
	token, err := m.open(ctx, accessID)
	if err != nil {
		return "", "", err
	}
	return accessID, token, nil
}

// Revoke ends the session behind accessID. Unknown ids are not an error.
func (m *Manager) Revoke(ctx context.Context, accessID string) error {
	if blank(accessID) {
		return errMissingAccessID
	}
	return m.store.Del(ctx, m.store.AccessSessionKey(accessID))
}

// HasSession reports whether accessID still has a live session.
func (m *Manager) HasSession(ctx context.Context, accessID string) (bool, error) {
	if blank(accessID) {
		return false, errMissingAccessID
	}
	return m.store.Exists(ctx, m.store.AccessSessionKey(accessID))
}

func (m *Manager) open(ctx context.Context, accessID string) (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generating refresh token: %w", err)
	}
	token := base64.RawURLEncoding.EncodeToString(raw)
	if err := m.store.Set(ctx, m.store.AccessSessionKey(accessID), digest(token), m.ttl); err != nil {
		return "", err
	}
	return token, nil
}

func digest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
