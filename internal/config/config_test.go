package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/breatheroute/skyreport/internal/config"
	"github.com/breatheroute/skyreport/internal/report"
)

// chdir moves into an empty directory so a developer's .env does not leak into the test.
func chdir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	chdir(t)

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, ".", cfg.OutputDir)
	assert.Equal(t, report.DefaultThresholds(), cfg.Thresholds)
	assert.Equal(t, config.CredentialsEnv, cfg.CredentialBackend)
	assert.Equal(t, 10*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, 1.0, cfg.UVRequestsPerSec)
	assert.False(t, cfg.Notify)
	assert.False(t, cfg.DotEnvLoaded)
}

func TestLoad_Environment(t *testing.T) {
	chdir(t)
	t.Setenv("SKYREPORT_OUT_DIR", "/tmp/reports")
	t.Setenv("UV_ALTITUDE", "270")
	t.Setenv("CREDENTIAL_STORE", "postgres")
	t.Setenv("HTTP_TIMEOUT", "3s")
	t.Setenv("NOTIFY_ENABLED", "true")
	t.Setenv("PUBSUB_PROJECT_ID", "sky-project")
	t.Setenv("NOTIFY_TOPIC", "report-delivery")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "/tmp/reports", cfg.OutputDir)
	assert.Equal(t, 270.0, cfg.Altitude)
	assert.Equal(t, config.CredentialsPostgres, cfg.CredentialBackend)
	assert.Equal(t, 3*time.Second, cfg.HTTPTimeout)
	assert.True(t, cfg.Notify)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := chdir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("UV_ALTITUDE=42\n"), 0o600))
	t.Setenv("UV_ALTITUDE", "")
	require.NoError(t, os.Unsetenv("UV_ALTITUDE"))

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.True(t, cfg.DotEnvLoaded)
	assert.Equal(t, 42.0, cfg.Altitude)
}

func TestLoad_ThresholdsFile(t *testing.T) {
	dir := chdir(t)
	path := filepath.Join(dir, "thresholds.yaml")
	require.NoError(t, os.WriteFile(path, []byte("uv:\n  safe_max: 2.5\n  strict: 7\n"), 0o600))
	t.Setenv("THRESHOLDS_FILE", path)

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, report.Thresholds{SafeMax: 2.5, Extended: 3, Strict: 7}, cfg.Thresholds)
}

func TestLoad_InvalidThresholdsFile(t *testing.T) {
	dir := chdir(t)
	path := filepath.Join(dir, "thresholds.yaml")
	require.NoError(t, os.WriteFile(path, []byte("uv:\n  extended: 9\n"), 0o600))
	t.Setenv("THRESHOLDS_FILE", path)

	_, err := config.Load()
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
	assert.ErrorIs(t, err, report.ErrInvalidThresholds)
}

func TestLoad_Invalid(t *testing.T) {
	tests := map[string]map[string]string{
		"bad altitude":      {"UV_ALTITUDE": "high"},
		"negative altitude": {"UV_ALTITUDE": "-5"},
		"bad timeout":       {"HTTP_TIMEOUT": "soon"},
		"unknown store":     {"CREDENTIAL_STORE": "keyring"},
		"notify no topic":   {"NOTIFY_ENABLED": "1"},
		"zero rps":          {"OPENUV_RPS": "0"},
	}

	for name, env := range tests {
		t.Run(name, func(t *testing.T) {
			chdir(t)
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := config.Load()
			assert.ErrorIs(t, err, config.ErrInvalidConfig)
		})
	}
}

func TestLoadThresholds_MissingFile(t *testing.T) {
	base := report.DefaultThresholds()
	got, err := config.LoadThresholds(filepath.Join(t.TempDir(), "missing.yaml"), base)
	assert.Error(t, err)
	assert.Equal(t, base, got)
}
