package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func testClaims(expiresIn time.Duration) jwt.RegisteredClaims {
	now := time.Now()
	return jwt.RegisteredClaims{
		ID:        "claim-id",
		Issuer:    "authkeeper",
		Audience:  jwt.ClaimStrings{"authkeeper"},
		Subject:   "user-1",
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
		NotBefore: jwt.NewNumericDate(now),
	}
}

func TestGenerateAndValidateToken(t *testing.T) {
	a := NewJWTAuthenticator("authkeeper", "authkeeper")

	tokenStr, err := a.GenerateToken(testClaims(time.Hour), testSecret)
	require.NoError(t, err)
	require.NotEmpty(t, tokenStr)

	parsed := jwt.RegisteredClaims{}
	token, err := a.ValidateTokenWithClaims(tokenStr, testSecret, &parsed)
	require.NoError(t, err)

	assert.True(t, token.Valid)
	assert.Equal(t, "claim-id", parsed.ID)
	assert.Equal(t, "user-1", parsed.Subject)
}

func TestValidateTokenFailures(t *testing.T) {
	a := NewJWTAuthenticator("authkeeper", "authkeeper")

	valid, err := a.GenerateToken(testClaims(time.Hour), testSecret)
	require.NoError(t, err)

	t.Run("wrong secret", func(t *testing.T) {
		_, err := a.ValidateTokenWithClaims(valid, "other-secret", &jwt.RegisteredClaims{})
		assert.Error(t, err)
	})

	t.Run("tampered token", func(t *testing.T) {
		_, err := a.ValidateTokenWithClaims(valid+"x", testSecret, &jwt.RegisteredClaims{})
		assert.Error(t, err)
	})

	t.Run("malformed token", func(t *testing.T) {
		_, err := a.ValidateTokenWithClaims("not.a.jwt", testSecret, &jwt.RegisteredClaims{})
		assert.Error(t, err)
	})

	t.Run("expired token", func(t *testing.T) {
		expired, err := a.GenerateToken(testClaims(-time.Minute), testSecret)
		require.NoError(t, err)

		_, err = a.ValidateTokenWithClaims(expired, testSecret, &jwt.RegisteredClaims{})
		assert.Error(t, err)
	})

	t.Run("missing expiration", func(t *testing.T) {
		noExp, err := a.GenerateToken(jwt.RegisteredClaims{
			Issuer:   "authkeeper",
			Audience: jwt.ClaimStrings{"authkeeper"},
		}, testSecret)
		require.NoError(t, err)

		_, err = a.ValidateTokenWithClaims(noExp, testSecret, &jwt.RegisteredClaims{})
		assert.Error(t, err)
	})

	t.Run("wrong audience", func(t *testing.T) {
		other := NewJWTAuthenticator("someone-else", "authkeeper")
		_, err := other.ValidateTokenWithClaims(valid, testSecret, &jwt.RegisteredClaims{})
		assert.Error(t, err)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		other := NewJWTAuthenticator("authkeeper", "someone-else")
		_, err := other.ValidateTokenWithClaims(valid, testSecret, &jwt.RegisteredClaims{})
		assert.Error(t, err)
	})
}
