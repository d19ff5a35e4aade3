package auth

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	pkgAuth "github.com/dagym/contract-backend/pkg/auth"
	"github.com/dagym/contract-backend/pkg/auth/session"
	"github.com/dagym/contract-backend/pkg/config"
	"github.com/dagym/contract-backend/pkg/db/models"
	"github.com/dagym/contract-backend/pkg/enums"
	pkgerrors "github.com/dagym/contract-backend/pkg/errors"
	"github.com/dagym/contract-backend/pkg/redis"
	"github.com/dagym/contract-backend/pkg/security"
)

type stubUserRepo struct {
	user      *models.User
	lastLogin time.Time
}

func (s *stubUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if s.user == nil || s.user.Email != email {
		return nil, gorm.ErrRecordNotFound
	}
	return s.user, nil
}

func (s *stubUserRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if s.user == nil || s.user.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	return s.user, nil
}

func (s *stubUserRepo) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	s.lastLogin = at
	return nil
}

type authFixture struct {
	svc      Service
	repo     *stubUserRepo
	tokens   *pkgAuth.Tokens
	sessions *session.Manager
	user     *models.User
	password string
}

func newAuthFixture(t *testing.T, role enums.OperatorRole) *authFixture {
	t.Helper()
	jwtCfg := config.JWTConfig{Secret: "secret", Issuer: "dagym-contract", ExpirationMinutes: 30, RefreshTokenTTLMinutes: 60 * 24}

	mr := miniredis.RunT(t)
	sessions, err := session.NewManager(redis.Wrap(goredis.NewClient(&goredis.Options{Addr: mr.Addr()})), jwtCfg)
	require.NoError(t, err)
	tokens, err := pkgAuth.NewTokens(jwtCfg)
	require.NoError(t, err)

	password := "correct horse"
	hash, err := security.NewHasher(config.PasswordConfig{}).Hash(password)
	require.NoError(t, err)
	user := &models.User{
		ID:           uuid.New(),
		Email:        "admin@dagym.kr",
		PasswordHash: hash,
		Name:         "관리자",
		Role:         role,
		IsActive:     true,
	}
	repo := &stubUserRepo{user: user}

	svc, err := NewService(ServiceParams{UserRepo: repo, SessionManager: sessions, Tokens: tokens})
	require.NoError(t, err)
	return &authFixture{svc: svc, repo: repo, tokens: tokens, sessions: sessions, user: user, password: password}
}

func (f *authFixture) login(t *testing.T) *LoginResponse {
	t.Helper()
	resp, err := f.svc.Login(context.Background(), LoginRequest{Email: "  ADMIN@dagym.kr ", Password: f.password})
	require.NoError(t, err)
	return resp
}

func requireCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	typed := pkgerrors.As(err)
	require.NotNil(t, typed, "expected typed error, got %v", err)
	assert.Equal(t, code, typed.Code())
}

func TestLoginOpensSession(t *testing.T) {
	f := newAuthFixture(t, enums.OperatorRoleAdmin)
	resp := f.login(t)

	claims, err := f.tokens.Verify(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, f.user.ID, claims.UserID)
	assert.Equal(t, enums.OperatorRoleAdmin, claims.Role)
	assert.True(t, claims.ExpiresAt.Time.Equal(resp.ExpiresAt))

	open, err := f.sessions.HasSession(context.Background(), claims.ID)
	require.NoError(t, err)
	assert.True(t, open)

	assert.NotEmpty(t, resp.RefreshToken)
	require.NotNil(t, resp.User)
	assert.Equal(t, "관리자", resp.User.Name)
	assert.False(t, f.repo.lastLogin.IsZero())
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	f := newAuthFixture(t, enums.OperatorRoleUser)

	for _, req := range []LoginRequest{
		{Email: f.user.Email, Password: "wrong"},
		{Email: "missing@dagym.kr", Password: f.password},
		{Email: "", Password: f.password},
	} {
		_, err := f.svc.Login(context.Background(), req)
		requireCode(t, err, pkgerrors.CodeUnauthorized)
	}
	assert.True(t, f.repo.lastLogin.IsZero())
}

func TestLoginRejectsInactiveOperator(t *testing.T) {
	f := newAuthFixture(t, enums.OperatorRoleUser)
	f.user.IsActive = false

	_, err := f.svc.Login(context.Background(), LoginRequest{Email: f.user.Email, Password: f.password})
	requireCode(t, err, pkgerrors.CodeUnauthorized)
}

func TestRefreshRotatesSession(t *testing.T) {
	f := newAuthFixture(t, enums.OperatorRoleUser)
	first := f.login(t)
	old, err := f.tokens.Verify(first.AccessToken)
	require.NoError(t, err)

	pair, err := f.svc.Refresh(context.Background(), first.AccessToken, RefreshRequest{RefreshToken: first.RefreshToken})
	require.NoError(t, err)
	assert.NotEqual(t, first.RefreshToken, pair.RefreshToken)

	claims, err := f.tokens.Verify(pair.AccessToken)
	require.NoError(t, err)
	assert.NotEqual(t, old.ID, claims.ID)
	assert.Equal(t, "admin@dagym.kr", claims.Email)

	open, err := f.sessions.HasSession(context.Background(), old.ID)
	require.NoError(t, err)
	assert.False(t, open)

	_, err = f.svc.Refresh(context.Background(), first.AccessToken, RefreshRequest{RefreshToken: first.RefreshToken})
	requireCode(t, err, pkgerrors.CodeUnauthorized)
}

func TestRefreshAcceptsExpiredAccessToken(t *testing.T) {
	f := newAuthFixture(t, enums.OperatorRoleUser)
	accessID := session.NewAccessID()
	refresh, err := f.sessions.Generate(context.Background(), accessID)
	require.NoError(t, err)
	stale, err := f.tokens.Issue(time.Now().Add(-time.Hour), pkgAuth.AccessTokenPayload{
		UserID: f.user.ID, Email: f.user.Email, Role: f.user.Role, JTI: accessID,
	})
	require.NoError(t, err)

	pair, err := f.svc.Refresh(context.Background(), stale.Token, RefreshRequest{RefreshToken: refresh})
	require.NoError(t, err)
	assert.True(t, pair.ExpiresAt.After(time.Now()))
}

func TestRefreshPicksUpRoleChangeAndDisable(t *testing.T) {
	f := newAuthFixture(t, enums.OperatorRoleUser)
	first := f.login(t)

	f.user.Role = enums.OperatorRoleAdmin
	pair, err := f.svc.Refresh(context.Background(), first.AccessToken, RefreshRequest{RefreshToken: first.RefreshToken})
	require.NoError(t, err)
	claims, err := f.tokens.Verify(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, enums.OperatorRoleAdmin, claims.Role)

	f.user.IsActive = false
	_, err = f.svc.Refresh(context.Background(), pair.AccessToken, RefreshRequest{RefreshToken: pair.RefreshToken})
	requireCode(t, err, pkgerrors.CodeUnauthorized)
}

func TestLogoutRevokesSession(t *testing.T) {
	f := newAuthFixture(t, enums.OperatorRoleUser)
	resp := f.login(t)
	claims, err := f.tokens.Verify(resp.AccessToken)
	require.NoError(t, err)

	require.NoError(t, f.svc.Logout(context.Background(), resp.AccessToken))

	open, err := f.sessions.HasSession(context.Background(), claims.ID)
	require.NoError(t, err)
	assert.False(t, open)

	requireCode(t, f.svc.Logout(context.Background(), "not-a-token"), pkgerrors.CodeUnauthorized)
}

func TestMe(t *testing.T) {
	f := newAuthFixture(t, enums.OperatorRoleUser)

	profile, err := f.svc.Me(context.Background(), f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, f.user.Email, profile.Email)
	assert.Equal(t, enums.OperatorRoleUser, profile.Role)

	_, err = f.svc.Me(context.Background(), uuid.New())
	requireCode(t, err, pkgerrors.CodeUnauthorized)
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(ServiceParams{})
	assert.Error(t, err)
	_, err = NewService(ServiceParams{UserRepo: &stubUserRepo{}})
	assert.Error(t, err)
	_, err = NewService(ServiceParams{UserRepo: &stubUserRepo{}, SessionManager: &session.Manager{}})
	assert.Error(t, err)
}
