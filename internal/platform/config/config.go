package config

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

// Sensor platform modes.
const (
	SensorModeSimulator = "simulator"
	SensorModeBridge    = "bridge"
)

type Config struct {
	AppEnv    string `env:"APP_ENV" default:"development"`
	Port      string `env:"PORT" default:"8080"`
	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"text"`

	SensorMode           string        `env:"SENSOR_MODE" default:"simulator"`
	SensorBridgeURL      string        `env:"SENSOR_BRIDGE_URL"`
	SensorBridgeTimeout  time.Duration `env:"SENSOR_BRIDGE_TIMEOUT" default:"10s"`
	RecordingsDir        string        `env:"RECORDINGS_DIR" default:"recordings"`
	SimulationSeedOffset time.Duration `env:"SIMULATION_SEED_OFFSET" default:"240h"` // 10 days

	HistoryLookback   time.Duration `env:"HISTORY_LOOKBACK" default:"240h"`
	MaxRecordsPerList int           `env:"MAX_RECORDS_PER_LIST" default:"50"`
	MaxNotices        int           `env:"MAX_NOTICES" default:"32"`
	AutoRefresh       time.Duration `env:"AUTO_REFRESH_INTERVAL" default:"0s"`

	RefreshRateLimit float64 `env:"REFRESH_RATE_LIMIT" default:"1"`
	RefreshBurst     int     `env:"REFRESH_BURST" default:"3"`

	RedisURL    string `env:"REDIS_URL"`
	DatabaseURL string `env:"DATABASE_URL"`

	MaxWebSocketConnections int `env:"MAX_WEBSOCKET_CONNECTIONS" default:"100"`
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
	switch cfg.SensorMode {
	case SensorModeSimulator:
	case SensorModeBridge:
		if cfg.SensorBridgeURL == "" {
			return errors.New("SENSOR_BRIDGE_URL is required when SENSOR_MODE is bridge")
		}
	default:
		return fmt.Errorf("SENSOR_MODE must be %q or %q, got %q", SensorModeSimulator, SensorModeBridge, cfg.SensorMode)
	}

	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of debug, info, warn, error, got %q", cfg.LogLevel)
	}
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return fmt.Errorf("LOG_FORMAT must be text or json, got %q", cfg.LogFormat)
	}

	if cfg.HistoryLookback <= 0 {
		return errors.New("HISTORY_LOOKBACK must be positive")
	}
	if cfg.SimulationSeedOffset < 0 {
		return errors.New("SIMULATION_SEED_OFFSET must not be negative")
	}
	if cfg.MaxRecordsPerList <= 0 {
		return errors.New("MAX_RECORDS_PER_LIST must be positive")
	}
	if cfg.MaxNotices <= 0 {
		return errors.New("MAX_NOTICES must be positive")
	}
	if cfg.AutoRefresh < 0 {
		return errors.New("AUTO_REFRESH_INTERVAL must not be negative")
	}
	if cfg.RefreshRateLimit <= 0 || cfg.RefreshBurst <= 0 {
		return errors.New("REFRESH_RATE_LIMIT and REFRESH_BURST must be positive")
	}

	return nil
}
