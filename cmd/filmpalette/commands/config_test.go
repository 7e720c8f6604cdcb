package commands

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "filmpalette.json5")
	require.NoError(t, os.WriteFile(path, []byte(`{
		// only what differs from the defaults
		listen_port: 9090,
		settle_attempts: 4,
		allowed_origins: ["https://palette.example"],
		telemetry: { otlp: { traces: { http_endpoint: "http://localhost:4318/v1/traces" } } },
	}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "filmpalette.local.json5"), []byte(`{
		listen_port: 9191,
	}`), 0o644))

	cfg, err := loadConfig(path)
	require.NoError(t, err)
	require.Equal(t, 9191, cfg.ListenPort)
	require.Equal(t, 4, cfg.SettleAttempts)
	require.Equal(t, []string{"https://palette.example"}, cfg.AllowedOrigins)
	require.Equal(t, "http://localhost:4318/v1/traces", cfg.Telemetry.Otlp.Traces.HttpEndpoint)

	require.Equal(t, defaultConfig.BaseUrl, cfg.BaseUrl)
	require.Equal(t, time.Second, cfg.SettleInterval())
	require.Equal(t, 120*time.Second, cfg.RequestTimeout())
}

func TestLoadConfigMissing(t *testing.T) {
	cfg, err := loadConfig(filepath.Join(t.TempDir(), "filmpalette.json5"))
	require.NoError(t, err)
	require.Equal(t, defaultConfig, cfg)
}

func TestParseArgs(t *testing.T) {
	req, err := parseArgs("someone", "2024", "film")
	require.NoError(t, err)
	require.Equal(t, "someone", req.Username)
	require.Equal(t, 2024, req.Year)

	_, err = parseArgs("someone", "last year", "day")
	require.Error(t, err)
}
