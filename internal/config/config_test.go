package config

import (
	"testing"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()

	t.Setenv("SESSION_TOKEN_SECRET", "session-secret")
	t.Setenv("VERIFICATION_TOKEN_SECRET", "verification-secret")
	t.Setenv("PASSWORD_RESET_TOKEN_SECRET", "reset-secret")
}

func TestNewDefaults(t *testing.T) {
	setRequiredEnv(t)

	logger := zerolog.Nop()
	cfg := New(&logger)

	assert.Equal(t, ":8080", cfg.ServerAddress)
	assert.Equal(t, AuthModeAPI, cfg.AuthMode)
	assert.Equal(t, VerificationModeLink, cfg.VerificationMode)
	assert.Equal(t, 30*time.Minute, cfg.SudoWindow)
	assert.Equal(t, 8760*time.Hour, cfg.Token.SessionTokenExpiresIn)
	assert.Equal(t, 24*time.Hour, cfg.Token.VerificationTokenExpiresIn)
	assert.Equal(t, 20*time.Minute, cfg.Token.PasswordResetTokenExpiresIn)
	assert.False(t, cfg.RateLimit.Enabled)
	assert.Equal(t, 1000, cfg.RateLimit.Requests)
	assert.Equal(t, time.Hour, cfg.RateLimit.Window)
}

func TestNewOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("AUTH_MODE", "html")
	t.Setenv("VERIFICATION_MODE", "code")
	t.Setenv("SUDO_WINDOW", "10m")
	t.Setenv("RATE_LIMIT_ENABLED", "true")
	t.Setenv("RATE_LIMIT_REQUESTS", "50")
	t.Setenv("RATE_LIMIT_WINDOW", "5m")

	logger := zerolog.Nop()
	cfg := New(&logger)

	assert.Equal(t, AuthModeHTML, cfg.AuthMode)
	assert.Equal(t, VerificationModeCode, cfg.VerificationMode)
	assert.Equal(t, 10*time.Minute, cfg.SudoWindow)
	assert.True(t, cfg.RateLimit.Enabled)
	assert.Equal(t, 50, cfg.RateLimit.Requests)
	assert.Equal(t, 5*time.Minute, cfg.RateLimit.Window)
}

func TestValidate(t *testing.T) {
	parse := func(t *testing.T) Config {
		t.Helper()
		cfg, err := env.ParseAs[Config]()
		require.NoError(t, err)
		return cfg
	}

	t.Run("valid", func(t *testing.T) {
		setRequiredEnv(t)
		cfg := parse(t)
		assert.NoError(t, cfg.validate())
	})

	t.Run("invalid auth mode", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("AUTH_MODE", "soap")
		cfg := parse(t)
		assert.Error(t, cfg.validate())
	})

	t.Run("invalid verification mode", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("VERIFICATION_MODE", "carrier-pigeon")
		cfg := parse(t)
		assert.Error(t, cfg.validate())
	})

	t.Run("missing session token secret", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("SESSION_TOKEN_SECRET", "")
		cfg := parse(t)
		assert.Error(t, cfg.validate())
	})

	t.Run("verification secret optional in code mode", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("VERIFICATION_TOKEN_SECRET", "")
		t.Setenv("VERIFICATION_MODE", "code")
		cfg := parse(t)
		assert.NoError(t, cfg.validate())
	})

	t.Run("verification secret required in link mode", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("VERIFICATION_TOKEN_SECRET", "")
		cfg := parse(t)
		assert.Error(t, cfg.validate())
	})

	t.Run("non-positive sudo window", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("SUDO_WINDOW", "0s")
		cfg := parse(t)
		assert.Error(t, cfg.validate())
	})

	t.Run("rate limit requests must be positive when enabled", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("RATE_LIMIT_ENABLED", "true")
		t.Setenv("RATE_LIMIT_REQUESTS", "0")
		cfg := parse(t)
		assert.Error(t, cfg.validate())
	})
}
