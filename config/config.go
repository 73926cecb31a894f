// Package config reads service configuration from the environment.
package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port     string `env:"PORT, default=8080"`
	Env      string `env:"ENV, default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`

	// JWTSecret signs session tokens. Required unless InsecureDevSecret
	// is set outside production.
	JWTSecret         string        `env:"JWT_SECRET"`
	JWTTTL            time.Duration `env:"JWT_TTL, default=168h"`
	ChallengeTTL      time.Duration `env:"CHALLENGE_TTL, default=3m"`
	InsecureDevSecret bool          `env:"AUTH_INSECURE_DEV_SECRET, default=false"`

	// DatabaseURL selects the Postgres user directory; empty keeps the
	// in-memory directory (dev only).
	DatabaseURL string `env:"DATABASE_URL"`

	// RedisURL selects the shared challenge store and event broker; empty
	// keeps the process-local memory store, which is single-instance only.
	RedisURL string `env:"REDIS_URL"`
}

// Load reads configuration from the environment.
func Load(ctx context.Context) (Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// Production reports whether the service runs in a production environment.
func (c Config) Production() bool {
	return c.Env == "production"
}

// ValidateSecret enforces the signing-secret policy: production always
// requires an explicit secret, and other environments require either a
// secret or the explicit insecure-dev opt-in.
func (c Config) ValidateSecret() error {
	if c.JWTSecret != "" {
		return nil
	}
	if c.Production() {
		return fmt.Errorf("JWT_SECRET is required in production")
	}
	if !c.InsecureDevSecret {
		return fmt.Errorf("JWT_SECRET is unset; set it, or set AUTH_INSECURE_DEV_SECRET=true for development")
	}
	return nil
}
