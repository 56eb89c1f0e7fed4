package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bofinance.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"BOFINANCE_CONFIG",
		"BOFINANCE_TELEGRAM_TOKEN",
		"BOFINANCE_DATABASE_PATH",
		"BOFINANCE_LOG_LEVEL",
		"BOFINANCE_AGENDA_TIME",
		"BOFINANCE_EXPORT_DIR",
		"BOFINANCE_POLL_INTERVAL_MINUTES",
		"BOFINANCE_CACHE_TTL_SECONDS",
		"BOFINANCE_RATES_URL",
		"BOFINANCE_RATES_BASE",
		"BOFINANCE_RATES_TTL_MINUTES",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("BOFINANCE_TELEGRAM_TOKEN", "123:abc")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "123:abc", cfg.TelegramToken)
	assert.Equal(t, "bofinance.db", cfg.DatabasePath)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "07:00", cfg.AgendaTime)
	assert.Equal(t, "exports", cfg.ExportDir)
	assert.Equal(t, time.Minute, cfg.PollInterval())
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL())
	assert.Equal(t, "https://open.er-api.com/v6/latest", cfg.Rates.URL)
	assert.Equal(t, "USD", cfg.Rates.Base)
	assert.Equal(t, time.Hour, cfg.Rates.TTL())
}

func TestLoadFromFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
telegram_token: "tok"
database_path: data/bofinance.db
log_level: debug
agenda_time: "06:30"
export_dir: /tmp/exports
poll_interval_minutes: 5
cache_ttl_seconds: 60
rates:
  url: https://rates.example/v6/latest
  base: EUR
  ttl_minutes: 15
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "tok", cfg.TelegramToken)
	assert.Equal(t, "data/bofinance.db", cfg.DatabasePath)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "06:30", cfg.AgendaTime)
	assert.Equal(t, "/tmp/exports", cfg.ExportDir)
	assert.Equal(t, 5*time.Minute, cfg.PollInterval())
	assert.Equal(t, time.Minute, cfg.CacheTTL())
	assert.Equal(t, "https://rates.example/v6/latest", cfg.Rates.URL)
	assert.Equal(t, "EUR", cfg.Rates.Base)
	assert.Equal(t, 15*time.Minute, cfg.Rates.TTL())
}

func TestEnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "telegram_token: from-file\ndatabase_path: file.db\n")

	t.Setenv("BOFINANCE_TELEGRAM_TOKEN", "from-env")
	t.Setenv("BOFINANCE_DATABASE_PATH", "env.db")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.TelegramToken)
	assert.Equal(t, "env.db", cfg.DatabasePath)
}

func TestRequireToken(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)

	err = cfg.RequireToken()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "telegram token")

	cfg.TelegramToken = "tok"
	assert.NoError(t, cfg.RequireToken())
}

func TestLoadRejectsBadAgendaTime(t *testing.T) {
	clearEnv(t)
	t.Setenv("BOFINANCE_TELEGRAM_TOKEN", "tok")
	t.Setenv("BOFINANCE_AGENDA_TIME", "quarter past nine")

	_, err := Load("")
	require.Error(t, err)
}
