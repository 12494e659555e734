package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
jwt:
  secret: "test-secret"
database:
  dsn: "host=localhost"
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "https://prepaid.desco.org.bd", cfg.Provider.BaseURL)
	assert.Equal(t, "Asia/Dhaka", cfg.Provider.Timezone)
	assert.Equal(t, 30*time.Second, cfg.Provider.Timeout)
	assert.Equal(t, time.Hour, cfg.JWT.TTL)
	assert.Equal(t, 30, cfg.Sync.DailyDays)
	assert.Equal(t, 12, cfg.Sync.MonthlyMonths)
	assert.Equal(t, 6, cfg.Sync.RechargeMonths)
	assert.Equal(t, 30, cfg.DependencyCheck.MaxRetries)
	assert.Equal(t, 2000, cfg.DependencyCheck.RetryDelayMS)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadRequiresJWTSecret(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9000
`)
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadOverrides(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9000
  rate_limit_per_sec: 50
jwt:
  secret: "test-secret"
  ttl_minutes: 15
sync:
  daily_days: 7
provider:
  timezone: "UTC"
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, float64(50), cfg.Server.RateLimitPerSec)
	assert.Equal(t, 15*time.Minute, cfg.JWT.TTL)
	assert.Equal(t, 7, cfg.Sync.DailyDays)
	assert.Equal(t, "UTC", cfg.Provider.Timezone)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/does/not/exist.yaml")
	assert.Error(t, err)
}
