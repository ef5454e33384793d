package config

import (
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds every tunable of the meeting tracker process, loaded from
// environment variables (with optional .env file and CLI override layers).
type Config struct {
	DatabaseURL string `env:"DATABASE_URL,required"`

	// DBMaxConns and DBMinConns size the pgx pool. Sized for a small
	// process fanning out a handful of WebSocket connections per meeting
	// plus the periodic broadcaster's ticks — not for a heavily-loaded
	// CRUD API, hence the modest defaults.
	DBMaxConns int32 `env:"DB_MAX_CONNS" envDefault:"20"`
	DBMinConns int32 `env:"DB_MIN_CONNS" envDefault:"4"`

	HTTPAddr     string        `env:"HTTP_ADDR" envDefault:":8080"`
	ReadTimeout  time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"30s"`
	IdleTimeout  time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`

	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS" envDefault:"20"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" envDefault:"40"`
	CORSOrigins    string  `env:"CORS_ORIGINS"` // comma-separated allowed origins; empty = allow all (*)
	LogLevel       string  `env:"LOG_LEVEL" envDefault:"info"`
	MetricsEnabled bool    `env:"METRICS_ENABLED" envDefault:"true"`

	// BroadcastInterval is the cadence of the periodic rollup broadcaster.
	BroadcastInterval time.Duration `env:"BROADCAST_INTERVAL" envDefault:"10s"`

	// SmoothingAlgorithm selects the engagement engine's smoothing
	// strategy: "kalman" (default) or "none".
	SmoothingAlgorithm string `env:"SMOOTHING_ALGORITHM" envDefault:"kalman"`

	// SubscriberQueueSize bounds the per-subscriber buffered channel the
	// pub/sub layer hands out; a slow subscriber drops its oldest queued
	// event rather than blocking the publisher.
	SubscriberQueueSize int `env:"SUBSCRIBER_QUEUE_SIZE" envDefault:"64"`

	// KalmanProcessVariance and KalmanMeasurementVariance tune the
	// engagement smoothing filter.
	KalmanProcessVariance     float64 `env:"KALMAN_PROCESS_VARIANCE" envDefault:"0.00001"`
	KalmanMeasurementVariance float64 `env:"KALMAN_MEASUREMENT_VARIANCE" envDefault:"0.01"`
}

// Overrides holds CLI flag values that take priority over env vars.
type Overrides struct {
	EnvFile     string
	HTTPAddr    string
	LogLevel    string
	DatabaseURL string
}

// Load reads configuration from a .env file, environment variables, and CLI
// overrides. Priority: CLI flags > environment variables > .env file >
// struct defaults.
func Load(overrides Overrides) (*Config, error) {
	envFile := overrides.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if _, err := os.Stat(envFile); err == nil {
		_ = godotenv.Load(envFile)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	if overrides.HTTPAddr != "" {
		cfg.HTTPAddr = overrides.HTTPAddr
	}
	if overrides.LogLevel != "" {
		cfg.LogLevel = overrides.LogLevel
	}
	if overrides.DatabaseURL != "" {
		cfg.DatabaseURL = overrides.DatabaseURL
	}

	return cfg, nil
}
