package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	for _, key := range []string{
		"DATABASE_DRIVER", "DATABASE_URL", "TELEGRAM_BOT_TOKEN", "BASE_ADMIN_CHAT_ID",
		"RECONCILE_LOOKBACK_DAYS", "RECONCILE_TOLERANCE_MINUTES", "RECONCILE_INTERVAL",
		"RECONCILE_WORKERS", "DEFAULT_SHIFT_MINUTES", "TIMEZONE", "METRICS_ADDR", "LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}
	// пустые значения заменяются на значения по умолчанию только для чисел
	t.Setenv("DATABASE_DRIVER", "sqlite")
	t.Setenv("DATABASE_URL", ":memory:")
	t.Setenv("TIMEZONE", "UTC")
	t.Setenv("LOG_LEVEL", "info")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 30, cfg.LookbackDays)
	assert.Equal(t, 30*time.Minute, cfg.Tolerance())
	assert.Equal(t, time.Hour, cfg.Interval)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, 480, cfg.DefaultShiftMinutes)
	assert.Equal(t, time.UTC, cfg.Location())
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DATABASE_DRIVER", "POSTGRES")
	t.Setenv("DATABASE_URL", "postgres://localhost/crews")
	t.Setenv("TELEGRAM_BOT_TOKEN", "token")
	t.Setenv("BASE_ADMIN_CHAT_ID", "123456")
	t.Setenv("RECONCILE_LOOKBACK_DAYS", "7")
	t.Setenv("RECONCILE_TOLERANCE_MINUTES", "15")
	t.Setenv("RECONCILE_INTERVAL", "10m")
	t.Setenv("RECONCILE_WORKERS", "2")
	t.Setenv("TIMEZONE", "America/Sao_Paulo")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.DatabaseDriver)
	assert.Equal(t, int64(123456), cfg.BaseAdminChatID)
	assert.Equal(t, 7, cfg.LookbackDays)
	assert.Equal(t, 15*time.Minute, cfg.Tolerance())
	assert.Equal(t, 10*time.Minute, cfg.Interval)
	assert.Equal(t, "America/Sao_Paulo", cfg.Location().String())
}

func TestValidate_Rejects(t *testing.T) {
	valid := func() *Config {
		return &Config{
			DatabaseDriver:      "sqlite",
			DatabaseURL:         ":memory:",
			LookbackDays:        30,
			ToleranceMinutes:    30,
			Interval:            time.Hour,
			Workers:             4,
			DefaultShiftMinutes: 480,
			Timezone:            "UTC",
			LogLevel:            "info",
		}
	}
	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown driver", func(c *Config) { c.DatabaseDriver = "mysql" }},
		{"zero lookback", func(c *Config) { c.LookbackDays = 0 }},
		{"negative tolerance", func(c *Config) { c.ToleranceMinutes = -5 }},
		{"no workers", func(c *Config) { c.Workers = 0 }},
		{"sub-second interval", func(c *Config) { c.Interval = time.Millisecond }},
		{"bad timezone", func(c *Config) { c.Timezone = "Mars/Olympus" }},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }},
		{"bot without admin", func(c *Config) { c.TelegramToken = "token" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoad_RejectsUnparsable(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DATABASE_DRIVER", "sqlite")
	t.Setenv("DATABASE_URL", ":memory:")
	t.Setenv("TIMEZONE", "UTC")
	t.Setenv("LOG_LEVEL", "info")
	t.Setenv("RECONCILE_LOOKBACK_DAYS", "3O")
	t.Setenv("RECONCILE_TOLERANCE_MINUTES", "thirty")
	t.Setenv("RECONCILE_INTERVAL", "1 hour")

	cfg, err := Load()

	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "RECONCILE_LOOKBACK_DAYS")
	assert.Contains(t, err.Error(), "RECONCILE_TOLERANCE_MINUTES")
	assert.Contains(t, err.Error(), "RECONCILE_INTERVAL")
}
