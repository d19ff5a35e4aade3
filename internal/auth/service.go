package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dagym/contract-backend/internal/users"
	pkgAuth "github.com/dagym/contract-backend/pkg/auth"
	"github.com/dagym/contract-backend/pkg/auth/session"
	"github.com/dagym/contract-backend/pkg/db/models"
	pkgerrors "github.com/dagym/contract-backend/pkg/errors"
	"github.com/dagym/contract-backend/pkg/security"
)

const invalidCredentialsMessage = "invalid credentials"

// Service is the console sign-in surface.
type Service interface {
	Login(ctx context.Context, req LoginRequest) (*LoginResponse, error)
	Refresh(ctx context.Context, accessToken string, req RefreshRequest) (*TokenPair, error)
	Logout(ctx context.Context, accessToken string) error
	Me(ctx context.Context, userID uuid.UUID) (*users.UserDTO, error)
}

type userRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
}

type sessionManager interface {
	Generate(ctx context.Context, accessID string) (string, error)
	Rotate(ctx context.Context, oldAccessID, provided string) (string, string, error)
	Revoke(ctx context.Context, accessID string) error
}

type tokenAuthority interface {
	Issue(now time.Time, payload pkgAuth.AccessTokenPayload) (pkgAuth.Issued, error)
	Inspect(raw string) (*pkgAuth.AccessTokenClaims, error)
}

// ServiceParams bundles the dependencies required to build an auth service.
type ServiceParams struct {
	UserRepo       userRepository
	SessionManager sessionManager
	Tokens         tokenAuthority
}

type service struct {
	users    userRepository
	sessions sessionManager
	tokens   tokenAuthority
	now      func() time.Time
}

// NewService constructs the sign-in service.
func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.UserRepo == nil:
		return nil, fmt.Errorf("user repository is required")
	case params.SessionManager == nil:
		return nil, fmt.Errorf("session manager is required")
	case params.Tokens == nil:
		return nil, fmt.Errorf("token authority is required")
	}
	return &service{
		users:    params.UserRepo,
		sessions: params.SessionManager,
		tokens:   params.Tokens,
		now:      time.Now,
	}, nil
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	user, err := s.authenticate(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update last login")
	}
	user.LastLoginAt = &now

	accessID := session.NewAccessID()
	refreshToken, err := s.sessions.Generate(ctx, accessID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "open session")
	}
	pair, err := s.pair(now, user, accessID, refreshToken)
	if err != nil {
		return nil, err
	}
	return &LoginResponse{TokenPair: *pair, User: users.FromModel(user)}, nil
}

// Refresh trades a refresh token for a new pair. The access token may be expired but must carry
// our signature; the operator is re-read so a disabled account or changed role takes effect here.
func (s *service) Refresh(ctx context.Context, accessToken string, req RefreshRequest) (*TokenPair, error) {
	claims, err := s.inspect(accessToken)
	if err != nil {
		return nil, err
	}
	user, err := s.activeUser(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}

	accessID, refreshToken, err := s.sessions.Rotate(ctx, claims.ID, req.RefreshToken)
	if err != nil {
		if errors.Is(err, session.ErrInvalidRefreshToken) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid refresh token")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rotate session")
	}
	return s.pair(s.now().UTC(), user, accessID, refreshToken)
}

// Logout closes the session behind the presented access token.
func (s *service) Logout(ctx context.Context, accessToken string) error {
	claims, err := s.inspect(accessToken)
	if err != nil {
		return err
	}
	if err := s.sessions.Revoke(ctx, claims.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke session")
	}
	return nil
}

// Me returns the signed-in operator's profile.
func (s *service) Me(ctx context.Context, userID uuid.UUID) (*users.UserDTO, error) {
	user, err := s.activeUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return users.FromModel(user), nil
}

func (s *service) pair(now time.Time, user *models.User, accessID, refreshToken string) (*TokenPair, error) {
	issued, err := s.tokens.Issue(now, pkgAuth.AccessTokenPayload{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
		JTI:    accessID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}
	return &TokenPair{AccessToken: issued.Token, RefreshToken: refreshToken, ExpiresAt: issued.ExpiresAt}, nil
}

func (s *service) inspect(raw string) (*pkgAuth.AccessTokenClaims, error) {
	claims, err := s.tokens.Inspect(raw)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token")
	}
	return claims, nil
}

func (s *service) activeUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "operator not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}
	if !user.IsActive || !user.Role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "operator disabled")
	}
	return user, nil
}

func (s *service) authenticate(ctx context.Context, email, password string) (*models.User, error) {
	input := strings.ToLower(strings.TrimSpace(email))
	if input == "" || password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	user, err := s.users.FindByEmail(ctx, input)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}

	valid, err := security.Verify(password, user.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !valid || !user.IsActive || !user.Role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	return user, nil
}
