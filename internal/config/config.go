package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config captures application runtime configuration loaded from
// environment variables.
type Config struct {
	AppName  string `env:"APP_NAME" envDefault:"Trailhead"`
	AppEnv   string `env:"APP_ENV" envDefault:"development"`
	Port     string `env:"PORT" envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	DatabaseURL string `env:"DATABASE_URL"`
	RedisURL    string `env:"REDIS_URL"`

	JWT   JWT   `envPrefix:"JWT_"`
	Reset Reset `envPrefix:"RESET_"`
	SMTP  SMTP  `envPrefix:"SMTP_"`

	BcryptCost      int           `env:"BCRYPT_COST" envDefault:"12"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// JWT contains bearer token parameters.
type JWT struct {
	Secret string        `env:"SECRET"`
	TTL    time.Duration `env:"TTL" envDefault:"2160h"`
}

// Reset contains password reset token parameters.
type Reset struct {
	TokenTTL time.Duration `env:"TOKEN_TTL" envDefault:"10m"`
	// Base URL the emailed reset link points at.
	URL string `env:"URL" envDefault:"http://localhost:8080/api/v1/users/resetPassword"`
}

// SMTP contains outbound mail parameters. When Host is empty the mailer
// is replaced with a logging stub.
type SMTP struct {
	Host     string `env:"HOST"`
	Port     int    `env:"PORT" envDefault:"587"`
	Username string `env:"USERNAME"`
	Password string `env:"PASSWORD"`
	From     string `env:"FROM" envDefault:"Trailhead <noreply@trailhead.app>"`
}

// Load reads configuration from the environment and validates it.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	cfg.AppEnv = strings.ToLower(cfg.AppEnv)
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)

	if !cfg.IsDev() {
		if cfg.JWT.Secret == "" {
			return Config{}, fmt.Errorf("JWT_SECRET must be set when APP_ENV=%s", cfg.AppEnv)
		}
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("DATABASE_URL must be set when APP_ENV=%s", cfg.AppEnv)
		}
	}
	if cfg.JWT.Secret == "" {
		cfg.JWT.Secret = "dev-only-secret"
	}

	return cfg, nil
}

// Address returns the listen address in the format fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return ":" + c.Port
}

// IsDev reports whether the app runs in a development posture.
func (c Config) IsDev() bool {
	switch c.AppEnv {
	case "dev", "development", "local":
		return true
	default:
		return false
	}
}
