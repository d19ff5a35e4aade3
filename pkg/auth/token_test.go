package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dagym/contract-backend/pkg/config"
	"github.com/dagym/contract-backend/pkg/enums"
)

func newTestTokens(t *testing.T, minutes int) *Tokens {
	t.Helper()
	tokens, err := NewTokens(config.JWTConfig{Secret: "secret", Issuer: "dagym", ExpirationMinutes: minutes})
	require.NoError(t, err)
	return tokens
}

func TestIssueAndVerify(t *testing.T) {
	tokens := newTestTokens(t, 30)
	now := time.Now().UTC().Truncate(time.Second)
	userID := uuid.New()

	issued, err := tokens.Issue(now, AccessTokenPayload{
		UserID: userID,
		Email:  " Admin@DaGym.com ",
		Role:   enums.OperatorRoleAdmin,
		JTI:    "access-1",
	})
	require.NoError(t, err)
	assert.True(t, issued.ExpiresAt.Equal(now.Add(30*time.Minute)))

	claims, err := tokens.Verify(issued.Token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, userID.String(), claims.Subject)
	assert.Equal(t, enums.OperatorRoleAdmin, claims.Role)
	assert.Equal(t, "admin@dagym.com", claims.Email)
	assert.Equal(t, "access-1", claims.ID)
	assert.Equal(t, "dagym", claims.Issuer)
	assert.True(t, claims.ExpiresAt.Time.Equal(issued.ExpiresAt))
}

func TestIssueReportsSignedExpiry(t *testing.T) {
	tokens := newTestTokens(t, 15)
	now := time.Date(2026, 5, 4, 10, 20, 30, 987654321, time.UTC)

	issued, err := tokens.Issue(now, AccessTokenPayload{UserID: uuid.New(), Role: enums.OperatorRoleUser})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 5, 4, 10, 35, 30, 0, time.UTC), issued.ExpiresAt)

	claims, err := tokens.Inspect(issued.Token)
	require.NoError(t, err)
	assert.True(t, claims.ExpiresAt.Time.Equal(issued.ExpiresAt))
}

func TestIssueGeneratesSessionID(t *testing.T) {
	tokens := newTestTokens(t, 5)
	issued, err := tokens.Issue(time.Now(), AccessTokenPayload{UserID: uuid.New(), Role: enums.OperatorRoleUser})
	require.NoError(t, err)

	claims, err := tokens.Verify(issued.Token)
	require.NoError(t, err)
	_, err = uuid.Parse(claims.ID)
	assert.NoError(t, err)
}

func TestIssueRejectsIncompletePayload(t *testing.T) {
	tokens := newTestTokens(t, 5)

	_, err := tokens.Issue(time.Now(), AccessTokenPayload{Role: enums.OperatorRoleUser})
	assert.Error(t, err)

	_, err = tokens.Issue(time.Now(), AccessTokenPayload{UserID: uuid.New()})
	assert.Error(t, err)
}

func TestVerifyRejectsTamperedToken(t *testing.T) {
	tokens := newTestTokens(t, 10)
	issued, err := tokens.Issue(time.Now(), AccessTokenPayload{UserID: uuid.New(), Role: enums.OperatorRoleUser})
	require.NoError(t, err)

	_, err = tokens.Verify(issued.Token + "x")
	assert.Error(t, err)
	_, err = tokens.Inspect(issued.Token + "x")
	assert.Error(t, err)
}

func TestVerifyRejectsForeignIssuer(t *testing.T) {
	tokens := newTestTokens(t, 10)
	other, err := NewTokens(config.JWTConfig{Secret: "secret", Issuer: "someone-else", ExpirationMinutes: 10})
	require.NoError(t, err)

	issued, err := other.Issue(time.Now(), AccessTokenPayload{UserID: uuid.New(), Role: enums.OperatorRoleUser})
	require.NoError(t, err)

	_, err = tokens.Verify(issued.Token)
	assert.Error(t, err)
	_, err = tokens.Inspect(issued.Token)
	assert.Error(t, err)
}

func TestInspectAcceptsExpiredToken(t *testing.T) {
	tokens := newTestTokens(t, 15)
	userID := uuid.New()
	issued, err := tokens.Issue(time.Now().Add(-time.Hour), AccessTokenPayload{UserID: userID, Role: enums.OperatorRoleUser})
	require.NoError(t, err)

	_, err = tokens.Verify(issued.Token)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)

	claims, err := tokens.Inspect(issued.Token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
}

func TestNewTokensValidatesConfig(t *testing.T) {
	cases := map[string]config.JWTConfig{
		"secret": {Issuer: "dagym", ExpirationMinutes: 5},
		"issuer": {Secret: "secret", ExpirationMinutes: 5},
		"ttl":    {Secret: "secret", Issuer: "dagym"},
	}
	for name, cfg := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewTokens(cfg)
			assert.Error(t, err)
		})
	}
}

func TestBearerToken(t *testing.T) {
	cases := []struct {
		header string
		token  string
		ok     bool
	}{
		{header: "Bearer abc", token: "abc", ok: true},
		{header: "bearer   abc ", token: "abc", ok: true},
		{header: "abc", token: "abc", ok: true},
		{header: "Bearer ", ok: false},
		{header: "", ok: false},
	}
	for _, tc := range cases {
		token, ok := BearerToken(tc.header)
		assert.Equal(t, tc.ok, ok, tc.header)
		assert.Equal(t, tc.token, token, tc.header)
	}
}
