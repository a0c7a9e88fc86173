package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config keeps runtime settings for the generation service.
type Config struct {
	DatabaseDriver string `yaml:"database_driver" validate:"oneof=sqlite postgres"`
	DatabaseURL    string `yaml:"database_url" validate:"required"`

	// GenerationSchedule is a daily "HH:MM", a duration or a cron spec with seconds.
	GenerationSchedule    string        `yaml:"generation_schedule" validate:"required"`
	MaxCatchUpPerTemplate int           `yaml:"max_catch_up_per_template" validate:"gte=1"`
	PassBudget            time.Duration `yaml:"pass_budget" validate:"gte=0"`
	PassTimeout           time.Duration `yaml:"pass_timeout" validate:"gte=0"`
	RunOnStart            bool          `yaml:"run_on_start"`

	Lock     LockConfig     `yaml:"lock"`
	Telegram TelegramConfig `yaml:"telegram"`

	HTTPAddr string `yaml:"http_addr" validate:"required"`
	LogLevel string `yaml:"log_level" validate:"oneof=debug info warn error"`
}

// LockConfig selects how overlapping generation passes are prevented.
type LockConfig struct {
	Backend       string        `yaml:"backend" validate:"oneof=memory redis"`
	Key           string        `yaml:"key" validate:"required"`
	TTL           time.Duration `yaml:"ttl" validate:"gt=0"`
	RedisAddr     string        `yaml:"redis_addr" validate:"required_if=Backend redis"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db" validate:"gte=0"`
}

// TelegramConfig enables pass failure alerts when Token is set.
type TelegramConfig struct {
	Token       string `yaml:"token"`
	AlertChatID int64  `yaml:"alert_chat_id" validate:"required_with=Token"`
}

func defaults() Config {
	return Config{
		DatabaseDriver:        "sqlite",
		DatabaseURL:           "recurring_planner.db",
		GenerationSchedule:    "0 */5 * * * *",
		MaxCatchUpPerTemplate: 31,
		PassTimeout:           5 * time.Minute,
		RunOnStart:            true,
		Lock: LockConfig{
			Backend: "memory",
			Key:     "recurring-planner:generation-lock",
			TTL:     10 * time.Minute,
		},
		HTTPAddr: ":8080",
		LogLevel: "info",
	}
}

// Load reads configuration from an optional .env file, an optional YAML file
// named by CONFIG_FILE, and environment variables, in increasing priority.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := defaults()
	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return cfg, err
		}
	}

	if err := overrideFromEnv(&cfg); err != nil {
		return cfg, err
	}

	if err := validator.New().Struct(cfg); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func overrideFromEnv(cfg *Config) error {
	setString(&cfg.DatabaseDriver, "DATABASE_DRIVER")
	setString(&cfg.DatabaseURL, "DATABASE_URL")
	setString(&cfg.GenerationSchedule, "GENERATION_SCHEDULE")
	setString(&cfg.Lock.Backend, "LOCK_BACKEND")
	setString(&cfg.Lock.Key, "LOCK_KEY")
	setString(&cfg.Lock.RedisAddr, "REDIS_ADDR")
	setString(&cfg.Lock.RedisPassword, "REDIS_PASSWORD")
	setString(&cfg.Telegram.Token, "TELEGRAM_TOKEN")
	setString(&cfg.HTTPAddr, "HTTP_ADDR")
	setString(&cfg.LogLevel, "LOG_LEVEL")

	return errors.Join(
		setInt(&cfg.MaxCatchUpPerTemplate, "MAX_CATCH_UP_PER_TEMPLATE"),
		setInt(&cfg.Lock.RedisDB, "REDIS_DB"),
		setInt64(&cfg.Telegram.AlertChatID, "ALERT_CHAT_ID"),
		setDuration(&cfg.PassBudget, "PASS_BUDGET"),
		setDuration(&cfg.PassTimeout, "PASS_TIMEOUT"),
		setDuration(&cfg.Lock.TTL, "LOCK_TTL"),
		setBool(&cfg.RunOnStart, "RUN_ON_START"),
	)
}

func lookup(key string) (string, bool) {
	raw := strings.TrimSpace(os.Getenv(key))
	return raw, raw != ""
}

func setString(dst *string, key string) {
	if raw, ok := lookup(key); ok {
		*dst = raw
	}
}

func setInt(dst *int, key string) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = v
	return nil
}

func setInt64(dst *int64, key string) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = v
	return nil
}

func setDuration(dst *time.Duration, key string) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = v
	return nil
}

func setBool(dst *bool, key string) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = v
	return nil
}
