package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/aiotter/discord-amazon-url-shortener/internal/validator"
)

const (
	BackendHTTP    = "http"
	BackendBrowser = "browser"
)

type Config struct {
	DiscordToken  string        `env:"TOKEN" validate:"required"`
	Port          string        `env:"PORT" envDefault:"8080" validate:"required,numeric"`
	LogLevel      string        `env:"LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warn error"`
	RelayName     string        `env:"RELAY_NAME" envDefault:"Amazon-URL-Shortener" validate:"required,max=80"`
	FetchBackend  string        `env:"FETCH_BACKEND" envDefault:"http" validate:"oneof=http browser"`
	FetchTimeout  time.Duration `env:"FETCH_TIMEOUT" envDefault:"0s" validate:"gte=0"`
	FetchRate     float64       `env:"FETCH_RATE_PER_SEC" envDefault:"2" validate:"gt=0"`
	FetchBurst    int           `env:"FETCH_BURST" envDefault:"4" validate:"gte=1"`
	ShutdownGrace time.Duration `env:"SHUTDOWN_GRACE" envDefault:"3s" validate:"gte=0"`
	SelectorsPath string        `env:"SELECTORS_CONFIG_PATH" envDefault:"config/selectors.json"`
	AllowedHosts  []string      `env:"ALLOWED_FETCH_HOSTS" envDefault:"amazon.co.jp" envSeparator:"," validate:"min=1,dive,required"`
}

// Load reads the configuration from the environment. A .env file in the
// working directory is honoured but never overrides variables already set.
func Load() (*Config, error) {
	if err := godotenv.Load(); err == nil {
		slog.Info("Loaded environment from .env file")
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	if cfg.DiscordToken == "" {
		return nil, fmt.Errorf("TOKEN environment variable is required but not set")
	}
	if err := validator.New().ValidateStruct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// SlogLevel maps LogLevel onto slog.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
