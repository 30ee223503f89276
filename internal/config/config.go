package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog"
)

// AuthMode selects how tokens are carried and how errors are rendered.
// HTML deployments use a signed cookie and redirects; API deployments use a
// bearer token and structured JSON errors.
type AuthMode string

const (
	AuthModeAPI  AuthMode = "api"
	AuthModeHTML AuthMode = "html"
)

// VerificationMode selects the email verification strategy. The two modes are
// mutually exclusive and fixed per deployment.
type VerificationMode string

const (
	VerificationModeLink VerificationMode = "link"
	VerificationModeCode VerificationMode = "code"
)

// Config holds the service configuration, parsed from environment variables.
type Config struct {
	ServerAddress    string           `env:"SERVER_ADDRESS"    envDefault:":8080"`
	Environment      string           `env:"ENVIRONMENT"       envDefault:"development"`
	AuthMode         AuthMode         `env:"AUTH_MODE"         envDefault:"api"`
	VerificationMode VerificationMode `env:"VERIFICATION_MODE" envDefault:"link"`

	MongoURI      string `env:"MONGO_URI"      envDefault:"mongodb://localhost:27017"`
	MongoDatabase string `env:"MONGO_DATABASE" envDefault:"authkeeper"`

	AppBaseURL     string `env:"APP_BASE_URL" envDefault:"http://localhost:8080"`
	GoogleClientID string `env:"GOOGLE_CLIENT_ID"`

	SudoWindow   time.Duration `env:"SUDO_WINDOW"   envDefault:"30m"`
	CookieSecure bool          `env:"COOKIE_SECURE" envDefault:"true"`

	Token     TokenConfig
	RateLimit RateLimitConfig
}

// TokenConfig holds the signing secrets and lifetimes for every token kind.
// Session tokens stay valid until the session row is deleted, so their expiry
// only bounds how long a revoked-but-leaked token stays parseable.
type TokenConfig struct {
	Issuer                      string        `env:"TOKEN_ISSUER"                    envDefault:"authkeeper"`
	SessionTokenSecret          string        `env:"SESSION_TOKEN_SECRET"`
	SessionTokenExpiresIn       time.Duration `env:"SESSION_TOKEN_EXPIRES_IN"        envDefault:"8760h"`
	VerificationTokenSecret     string        `env:"VERIFICATION_TOKEN_SECRET"`
	VerificationTokenExpiresIn  time.Duration `env:"VERIFICATION_TOKEN_EXPIRES_IN"   envDefault:"24h"`
	PasswordResetTokenSecret    string        `env:"PASSWORD_RESET_TOKEN_SECRET"`
	PasswordResetTokenExpiresIn time.Duration `env:"PASSWORD_RESET_TOKEN_EXPIRES_IN" envDefault:"20m"`
}

// RateLimitConfig holds the per-IP request cap. Enabled only in the production
// deployment profile.
type RateLimitConfig struct {
	Enabled   bool          `env:"RATE_LIMIT_ENABLED"  envDefault:"false"`
	Requests  int           `env:"RATE_LIMIT_REQUESTS" envDefault:"1000"`
	Window    time.Duration `env:"RATE_LIMIT_WINDOW"   envDefault:"1h"`
	RedisAddr string        `env:"REDIS_ADDR"          envDefault:"localhost:6379"`
}

// New creates a Config instance from environment variables.
func New(logger *zerolog.Logger) *Config {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to parse environment variables")
	}

	if err := cfg.validate(); err != nil {
		logger.Fatal().Err(err).Msg("failed to validate service configuration")
	}

	return &cfg
}

// validate checks if the service configuration is valid.
func (c *Config) validate() error {
	switch c.AuthMode {
	case AuthModeAPI, AuthModeHTML:
	default:
		return fmt.Errorf("invalid AUTH_MODE %q", c.AuthMode)
	}

	switch c.VerificationMode {
	case VerificationModeLink, VerificationModeCode:
	default:
		return fmt.Errorf("invalid VERIFICATION_MODE %q", c.VerificationMode)
	}

	if c.Token.SessionTokenSecret == "" {
		return fmt.Errorf("missing SESSION_TOKEN_SECRET environment variable")
	}
	if c.VerificationMode == VerificationModeLink && c.Token.VerificationTokenSecret == "" {
		return fmt.Errorf("missing VERIFICATION_TOKEN_SECRET environment variable")
	}
	if c.Token.PasswordResetTokenSecret == "" {
		return fmt.Errorf("missing PASSWORD_RESET_TOKEN_SECRET environment variable")
	}

	if c.SudoWindow <= 0 {
		return fmt.Errorf("SUDO_WINDOW must be positive")
	}
	if c.RateLimit.Enabled && c.RateLimit.Requests <= 0 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be positive")
	}

	return nil
}
