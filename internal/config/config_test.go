package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdir is a stand-in for testing.T.Chdir, which requires Go 1.24.
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(old) })
}

func TestLoad_Defaults(t *testing.T) {
	// Run from an empty directory so no config.yaml is picked up.
	chdir(t, t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 0.02, cfg.Thresholds.ProjectionRate)
	assert.Equal(t, "https://api.census.gov/data", cfg.ACS.BaseURL)
	assert.Equal(t, "acs/acs5", cfg.ACS.Dataset)
	assert.Equal(t, 5.0, cfg.ACS.RateLimit)
	assert.Equal(t, 60, cfg.ACS.TimeoutSecs)
	assert.Equal(t, 16, cfg.Cache.MaxTables)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "spm-cache.db", cfg.Store.Path)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_EnvOverrides(t *testing.T) {
	chdir(t, t.TempDir())

	t.Setenv("SPM_LOG_LEVEL", "debug")
	t.Setenv("SPM_SERVER_PORT", "9090")
	t.Setenv("SPM_STORE_DRIVER", "none")
	t.Setenv("SPM_THRESHOLDS_PROJECTION_RATE", "0.03")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "none", cfg.Store.Driver)
	assert.Equal(t, 0.03, cfg.Thresholds.ProjectionRate)
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	body := `
log:
  level: warn
  format: console
acs:
  key: test-key
store:
  driver: postgres
  database_url: postgres://localhost/spm
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(body), 0o644))
	chdir(t, dir)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, "test-key", cfg.ACS.Key)
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/spm", cfg.Store.DatabaseURL)
	// Unset keys keep their defaults.
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestInitLogger(t *testing.T) {
	assert.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	assert.NoError(t, InitLogger(LogConfig{Level: "info", Format: "json"}))
	assert.Error(t, InitLogger(LogConfig{Level: "shouty", Format: "json"}))
}
