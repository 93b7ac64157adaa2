package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAuthenticator() *JWTAuthenticator {
	return NewJWTAuthenticator("access-secret", "refresh-secret", "bazaar", "bazaar", 15*time.Minute, 7*24*time.Hour)
}

func TestGenerateAndValidateTokens(t *testing.T) {
	a := newTestAuthenticator()

	access, refresh, err := a.GenerateTokens(42, 7, "editor")
	require.NoError(t, err)
	require.NotEmpty(t, access)
	require.NotEmpty(t, refresh)

	token, err := a.ValidateAccessToken(access)
	require.NoError(t, err)
	require.True(t, token.Valid)

	claims, ok := token.Claims.(jwt.MapClaims)
	require.True(t, ok)
	assert.Equal(t, float64(42), claims["sub"])
	assert.Equal(t, float64(7), claims["business_id"])
	assert.Equal(t, "editor", claims["role"])

	rt, err := a.ValidateRefreshToken(refresh)
	require.NoError(t, err)
	require.True(t, rt.Valid)
}

func TestAccessAndRefreshSecretsAreNotInterchangeable(t *testing.T) {
	a := newTestAuthenticator()

	access, refresh, err := a.GenerateTokens(1, 1, "viewer")
	require.NoError(t, err)

	_, err = a.ValidateAccessToken(refresh)
	assert.Error(t, err)

	_, err = a.ValidateRefreshToken(access)
	assert.Error(t, err)
}

func TestExpiredAccessTokenRejected(t *testing.T) {
	a := NewJWTAuthenticator("s", "rs", "bazaar", "bazaar", -time.Minute, time.Hour)

	access, err := a.GenerateAccessToken(1, 1, "viewer")
	require.NoError(t, err)

	_, err = a.ValidateAccessToken(access)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestGarbageTokenRejected(t *testing.T) {
	a := newTestAuthenticator()
	_, err := a.ValidateAccessToken("not-a-jwt")
	assert.Error(t, err)
}
