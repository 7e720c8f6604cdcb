package commands

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"filmpalette-backend/internal/components/telemetry"
	"filmpalette-backend/internal/palette"
	"filmpalette-backend/internal/scrapers/letterboxd"
	"filmpalette-backend/pkg/configutil"
)

type Config struct {
	ListenPort        int              `json:"listen_port"`
	BaseUrl           string           `json:"base_url"`
	UserAgent         string           `json:"user_agent"`
	RequestTimeoutSec int              `json:"request_timeout_sec"`
	SettleAttempts    int              `json:"settle_attempts"`
	SettleIntervalMs  int              `json:"settle_interval_ms"`
	ResolveConcurrent int              `json:"resolve_concurrency"`
	RequestsPerSecond float64          `json:"requests_per_second"`
	MaxPages          int              `json:"max_pages"`
	AllowedOrigins    []string         `json:"allowed_origins"`
	Telemetry         telemetry.Config `json:"telemetry"`
}

var defaultConfig = Config{
	ListenPort:        8000,
	BaseUrl:           letterboxd.DefaultBaseUrl,
	UserAgent:         letterboxd.DefaultUserAgent,
	RequestTimeoutSec: 120,
	SettleAttempts:    letterboxd.DefaultSettleAttempts,
	SettleIntervalMs:  int(letterboxd.DefaultSettleInterval / time.Millisecond),
	ResolveConcurrent: palette.DefaultConcurrency,
	RequestsPerSecond: 2,
}

func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSec) * time.Second
}

func (c Config) SettleInterval() time.Duration {
	return time.Duration(c.SettleIntervalMs) * time.Millisecond
}

// loadConfig reads the config at path (or looks for it in the parent
// directories if path is relative), a missing file leaves every default.
func loadConfig(path string) (Config, error) {
	var cfg Config
	var err error
	if filepath.IsAbs(path) {
		cfg, err = configutil.ReadConfig[Config](path)
	} else {
		cfg, err = configutil.ReadRecursively[Config](path)
	}
	if errors.Is(err, os.ErrNotExist) {
		slog.Debug("no config file found, using defaults", "path", path)
		err = nil
	}
	if err != nil {
		return Config{}, err
	}
	return configutil.WithDefaults(cfg, defaultConfig)
}
