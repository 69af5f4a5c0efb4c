// Package config provides application configuration management.
// Configuration is loaded from environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds all application configuration.
type Config struct {
	AppEnv string `env:"APP_ENV" envDefault:"development"`

	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`
	GRPCAddr string `env:"GRPC_ADDR" envDefault:":9090"`

	DatabaseURL    string `env:"DATABASE_URL,required,notEmpty"`
	MigrateOnStart bool   `env:"MIGRATE_ON_START" envDefault:"true"`

	// Empty disables the app lookup cache.
	RedisURL    string        `env:"REDIS_URL"`
	AppCacheTTL time.Duration `env:"APP_CACHE_TTL" envDefault:"5m"`

	JWTSigningKey string `env:"JWT_SIGNING_KEY,required,notEmpty"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"10s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	RefreshLimitWindow   time.Duration `env:"REFRESH_LIMIT_WINDOW" envDefault:"15m"`
	RefreshLimitMaxFails int           `env:"REFRESH_LIMIT_MAX_FAILS" envDefault:"10"`
	RefreshLimitBlockFor time.Duration `env:"REFRESH_LIMIT_BLOCK_FOR" envDefault:"15m"`

	// Token settings stay raw so a malformed value falls back instead of failing Load.
	Token TokenEnv
}

// TokenEnv carries unparsed token lifetime overrides.
type TokenEnv struct {
	AccessExpirySeconds  string `env:"OAUTH_ACCESS_TOKEN_EXPIRY_SECONDS"`
	RefreshExpirySeconds string `env:"OAUTH_REFRESH_TOKEN_EXPIRY_SECONDS"`
	RefreshExpiryDays    string `env:"OAUTH_REFRESH_TOKEN_EXPIRY_DAYS"`
	ArchiveGraceMillis   string `env:"OAUTH_REFRESH_TOKEN_ARCHIVE_GRACE_MS"`
	ArchiveGraceSeconds  string `env:"OAUTH_REFRESH_TOKEN_ARCHIVE_GRACE_SECONDS"`
	IntegrationTestMode  string `env:"INTEGRATION_TEST_MODE"`
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool { return c.AppEnv == "development" }

// IsTest reports whether the process runs under a test or integration harness.
func (c *Config) IsTest() bool {
	return c.AppEnv == "test" || c.Token.IntegrationTestMode == "true"
}

// Load parses environment variables and returns a Config.
// Returns an error if required variables are missing.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}
