package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config - параметры сервиса сверки, читаются из окружения и .env
type Config struct {
	DatabaseDriver string `validate:"required,oneof=sqlite postgres"`
	DatabaseURL    string `validate:"required"`

	TelegramToken   string
	BaseAdminChatID int64

	LookbackDays        int           `validate:"gte=1,lte=366"`
	ToleranceMinutes    int           `validate:"gte=0,lte=720"`
	Interval            time.Duration `validate:"gte=1s"`
	Workers             int           `validate:"gte=1,lte=64"`
	DefaultShiftMinutes int           `validate:"gte=1,lte=1440"`
	Timezone            string        `validate:"required"`

	MetricsAddr string
	LogLevel    string `validate:"oneof=panic fatal error warn warning info debug trace"`
}

// Load читает конфигурацию. Отсутствие .env не ошибка: значения могут прийти
// из окружения.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("error loading env variables: %w", err)
	} else if err != nil {
		logrus.Debug(".env file not found, using process environment")
	}

	env := &envReader{}
	cfg := &Config{
		DatabaseDriver:      strings.ToLower(getEnv("DATABASE_DRIVER", "sqlite")),
		DatabaseURL:         getEnv("DATABASE_URL", "reconciler.db"),
		TelegramToken:       getEnv("TELEGRAM_BOT_TOKEN", ""),
		BaseAdminChatID:     env.asInt64("BASE_ADMIN_CHAT_ID", 0),
		LookbackDays:        env.asInt("RECONCILE_LOOKBACK_DAYS", 30),
		ToleranceMinutes:    env.asInt("RECONCILE_TOLERANCE_MINUTES", 30),
		Interval:            env.asDuration("RECONCILE_INTERVAL", time.Hour),
		Workers:             env.asInt("RECONCILE_WORKERS", 4),
		DefaultShiftMinutes: env.asInt("DEFAULT_SHIFT_MINUTES", 480),
		Timezone:            getEnv("TIMEZONE", "UTC"),
		MetricsAddr:         getEnv("METRICS_ADDR", ":9090"),
		LogLevel:            strings.ToLower(getEnv("LOG_LEVEL", "info")),
	}
	if err := env.err(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate проверяет значения по тегам и часовой пояс
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid configuration: timezone %q: %w", c.Timezone, err)
	}
	if c.TelegramToken != "" && c.BaseAdminChatID == 0 {
		return fmt.Errorf("invalid configuration: BASE_ADMIN_CHAT_ID is required with TELEGRAM_BOT_TOKEN")
	}
	return nil
}

// Location - часовой пояс, в котором заданы плановые времена
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c *Config) Tolerance() time.Duration {
	return time.Duration(c.ToleranceMinutes) * time.Minute
}

func getEnv(key string, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}

	return defaultVal
}

// envReader разбирает числовые переменные и копит ошибки разбора.
// Пустое или отсутствующее значение дает значение по умолчанию.
type envReader struct {
	errs []error
}

func (r *envReader) asInt(name string, defaultVal int) int {
	valStr := getEnv(name, "")
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(valStr)
	if err != nil {
		r.fail(name, valStr, err)
		return defaultVal
	}
	return val
}

func (r *envReader) asInt64(name string, defaultVal int64) int64 {
	valStr := getEnv(name, "")
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.ParseInt(valStr, 10, 64)
	if err != nil {
		r.fail(name, valStr, err)
		return defaultVal
	}
	return val
}

func (r *envReader) asDuration(name string, defaultVal time.Duration) time.Duration {
	valStr := getEnv(name, "")
	if valStr == "" {
		return defaultVal
	}
	val, err := time.ParseDuration(valStr)
	if err != nil {
		r.fail(name, valStr, err)
		return defaultVal
	}
	return val
}

func (r *envReader) fail(name, value string, err error) {
	r.errs = append(r.errs, fmt.Errorf("%s=%q: %w", name, value, err))
}

func (r *envReader) err() error {
	if len(r.errs) == 0 {
		return nil
	}
	return fmt.Errorf("invalid configuration: %w", errors.Join(r.errs...))
}
