package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

// Config holds the daemon configuration, loaded from the environment.
//
// DATABASE_URL and REDIS_URL are both optional: with neither set the daemon
// runs fully in-memory (single-instance mode), which is how the launcher UI
// runs it on-device.
type Config struct {
	AppEnv    string `env:"APP_ENV" default:"development"`
	Port      string `env:"PORT" default:"8823"`
	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"text"`

	DatabaseURL string `env:"DATABASE_URL"`
	RedisURL    string `env:"REDIS_URL"`

	// SweepInterval is how often the reconciliation sweep force-expires
	// sessions whose timers were lost.
	SweepInterval time.Duration `env:"SWEEP_INTERVAL" default:"1m"`
	// CleanupInterval is how often the retention sweep purges old sessions.
	CleanupInterval time.Duration `env:"CLEANUP_INTERVAL" default:"1h"`
	// SessionRetention is how long ended sessions are kept before purging.
	SessionRetention time.Duration `env:"SESSION_RETENTION" default:"168h"`

	MaxClientsPerStream int `env:"MAX_CLIENTS_PER_STREAM" default:"16"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func validate(cfg *Config) error {
	if cfg.SweepInterval <= 0 {
		return fmt.Errorf("SWEEP_INTERVAL must be positive, got %v", cfg.SweepInterval)
	}
	if cfg.CleanupInterval <= 0 {
		return fmt.Errorf("CLEANUP_INTERVAL must be positive, got %v", cfg.CleanupInterval)
	}
	if cfg.SessionRetention <= 0 {
		return fmt.Errorf("SESSION_RETENTION must be positive, got %v", cfg.SessionRetention)
	}
	if cfg.MaxClientsPerStream <= 0 {
		return fmt.Errorf("MAX_CLIENTS_PER_STREAM must be positive, got %d", cfg.MaxClientsPerStream)
	}
	if cfg.RedisURL != "" && cfg.DatabaseURL == "" {
		return fmt.Errorf("REDIS_URL requires DATABASE_URL (the cache fronts the database)")
	}
	return nil
}
