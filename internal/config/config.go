package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config keeps runtime settings for the service. Values come from an
// optional YAML file, overridden by BOFINANCE_* environment variables.
type Config struct {
	TelegramToken string `yaml:"telegram_token"`
	DatabasePath  string `yaml:"database_path"`
	LogLevel      string `yaml:"log_level"`
	AgendaTime    string `yaml:"agenda_time"`
	ExportDir     string `yaml:"export_dir"`

	PollIntervalMinutes int `yaml:"poll_interval_minutes"`
	CacheTTLSeconds     int `yaml:"cache_ttl_seconds"`

	Rates RatesConfig `yaml:"rates"`
}

// RatesConfig points the exchange rate client at its upstream.
type RatesConfig struct {
	URL        string `yaml:"url"`
	Base       string `yaml:"base"`
	TTLMinutes int    `yaml:"ttl_minutes"`
}

// PollInterval is how often pending reminders are scanned.
func (c Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMinutes) * time.Minute
}

// CacheTTL is the default freshness window for cached reads.
func (c Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// TTL is the freshness window for a fetched rate table.
func (r RatesConfig) TTL() time.Duration {
	return time.Duration(r.TTLMinutes) * time.Minute
}

// Load reads the YAML file at path (or the first of bofinance.yaml,
// bofinance.yml, .bofinance.yaml when path is empty), applies environment
// overrides and defaults, and validates the result. A missing file is not
// an error; the environment alone can configure the service.
func Load(path string) (Config, error) {
	var cfg Config

	if path == "" {
		path = os.Getenv("BOFINANCE_CONFIG")
	}
	if path == "" {
		for _, loc := range []string{"bofinance.yaml", "bofinance.yml", ".bofinance.yaml"} {
			if _, err := os.Stat(loc); err == nil {
				path = loc
				break
			}
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)

	if _, err := time.Parse("15:04", cfg.AgendaTime); err != nil {
		return cfg, fmt.Errorf("agenda time %q is not HH:MM", cfg.AgendaTime)
	}

	return cfg, nil
}

// RequireToken guards the commands that talk to Telegram. Offline
// commands such as export run without one.
func (c Config) RequireToken() error {
	if c.TelegramToken == "" {
		return fmt.Errorf("telegram token is required")
	}
	return nil
}

func applyEnv(cfg *Config) {
	setString(&cfg.TelegramToken, "BOFINANCE_TELEGRAM_TOKEN")
	setString(&cfg.DatabasePath, "BOFINANCE_DATABASE_PATH")
	setString(&cfg.LogLevel, "BOFINANCE_LOG_LEVEL")
	setString(&cfg.AgendaTime, "BOFINANCE_AGENDA_TIME")
	setString(&cfg.ExportDir, "BOFINANCE_EXPORT_DIR")
	setInt(&cfg.PollIntervalMinutes, "BOFINANCE_POLL_INTERVAL_MINUTES")
	setInt(&cfg.CacheTTLSeconds, "BOFINANCE_CACHE_TTL_SECONDS")
	setString(&cfg.Rates.URL, "BOFINANCE_RATES_URL")
	setString(&cfg.Rates.Base, "BOFINANCE_RATES_BASE")
	setInt(&cfg.Rates.TTLMinutes, "BOFINANCE_RATES_TTL_MINUTES")
}

func applyDefaults(cfg *Config) {
	if cfg.DatabasePath == "" {
		cfg.DatabasePath = "bofinance.db"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.AgendaTime == "" {
		cfg.AgendaTime = "07:00"
	}
	if cfg.ExportDir == "" {
		cfg.ExportDir = "exports"
	}
	if cfg.PollIntervalMinutes <= 0 {
		cfg.PollIntervalMinutes = 1
	}
	if cfg.CacheTTLSeconds <= 0 {
		cfg.CacheTTLSeconds = 300
	}
	if cfg.Rates.URL == "" {
		cfg.Rates.URL = "https://open.er-api.com/v6/latest"
	}
	if cfg.Rates.Base == "" {
		cfg.Rates.Base = "USD"
	}
	if cfg.Rates.TTLMinutes <= 0 {
		cfg.Rates.TTLMinutes = 60
	}
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return
	}
	if v, err := strconv.Atoi(raw); err == nil && v > 0 {
		*dst = v
	}
}
