package auth

import (
	"time"

	"github.com/dagym/contract-backend/internal/users"
)

// LoginRequest captures the operator credentials sent to the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest carries the single-use refresh token. The expired access token rides in the
// Authorization header.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

// TokenPair is what every login and refresh hands back.
type TokenPair struct {
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

// LoginResponse adds the operator profile to the token pair.
type LoginResponse struct {
	TokenPair
	User *users.UserDTO `json:"user"`
}
