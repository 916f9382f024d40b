package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ROSTER_CONFIG_PATH", "")
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "8080", cfg.Server.RESTPort)
	assert.Equal(t, "8081", cfg.Server.WSPort)
	assert.Equal(t, "info", cfg.LogConfig.LogLevel)
	assert.Equal(t, 5*time.Minute, cfg.Scheduler.ReloadInterval)
	assert.Equal(t, 10*time.Minute, cfg.Idempotency.TTL)
	assert.Equal(t, uint32(5), cfg.Breaker.ConsecutiveFailures)
	assert.Equal(t, 3, cfg.Breaker.RetryAttempts)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("ROSTER_CONFIG_PATH", "")
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("REST_PORT", "9090")
	t.Setenv("RELOAD_INTERVAL", "30s")
	t.Setenv("OPENING_BALANCE_TEAM_A", "2500000")
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.Database.Driver)
	assert.Equal(t, "9090", cfg.Server.RESTPort)
	assert.Equal(t, 30*time.Second, cfg.Scheduler.ReloadInterval)
	assert.Equal(t, 2_500_000.0, cfg.Finance.OpeningBalanceTeamA)
}

func TestLoad_YAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "roster.yaml")
	content := `
database:
  driver: memory
server:
  rest_port: "7000"
log_config:
  log_level: debug
  log_format: console
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("ROSTER_CONFIG_PATH", path)
	t.Chdir(dir)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.Database.Driver)
	assert.Equal(t, "7000", cfg.Server.RESTPort)
	assert.Equal(t, "debug", cfg.LogConfig.LogLevel)
	assert.Equal(t, "console", cfg.LogConfig.LogFormat)
	// untouched keys keep their defaults
	assert.Equal(t, "8081", cfg.Server.WSPort)
}

func TestLoad_MissingFile(t *testing.T) {
	t.Setenv("ROSTER_CONFIG_PATH", filepath.Join(t.TempDir(), "nope.yaml"))

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_InvalidDriver(t *testing.T) {
	t.Setenv("ROSTER_CONFIG_PATH", "")
	t.Setenv("STORE_DRIVER", "sqlite")
	t.Chdir(t.TempDir())

	_, err := Load()
	assert.ErrorContains(t, err, "STORE_DRIVER")
}
