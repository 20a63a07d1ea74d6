package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config contains all runtime settings for the birthday bot service.
// Values come from an optional YAML file overridden by environment
// variables, with safe defaults underneath both.
type Config struct {
	BindAddr         string        `yaml:"bind_addr"`
	MetricsNamespace string        `yaml:"metrics_namespace"`
	DatabaseURL      string        `yaml:"database_url"`
	AdminUserID      string        `yaml:"admin_user_id"`
	Timezone         string        `yaml:"timezone"`
	ReminderHour     int           `yaml:"reminder_hour"`
	ReminderMinute   int           `yaml:"reminder_minute"`
	SessionTimeout   time.Duration `yaml:"session_timeout"`
	ShutdownTimeout  time.Duration `yaml:"shutdown_timeout"`
	AllowAnyOrigin   bool          `yaml:"allow_any_origin"`
}

// Load builds the configuration. When path is empty only defaults and
// environment variables apply; otherwise the YAML file at path is layered
// in between.
func Load(path string) (Config, error) {
	cfg := Config{
		BindAddr:         ":8080",
		MetricsNamespace: "birthdaybot",
		Timezone:         "Europe/Kyiv",
		ReminderHour:     10,
		ReminderMinute:   0,
		SessionTimeout:   10 * time.Minute,
		ShutdownTimeout:  15 * time.Second,
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.BindAddr = envOrDefault("BOT_BIND_ADDR", cfg.BindAddr)
	cfg.MetricsNamespace = envOrDefault("BOT_METRICS_NAMESPACE", cfg.MetricsNamespace)
	cfg.DatabaseURL = envOrDefault("DATABASE_URL", cfg.DatabaseURL)
	cfg.AdminUserID = envOrDefault("BOT_ADMIN_USER_ID", cfg.AdminUserID)
	cfg.Timezone = envOrDefault("BOT_TIMEZONE", cfg.Timezone)

	var err error
	cfg.ReminderHour, err = intFromEnv("BOT_REMINDER_HOUR", cfg.ReminderHour)
	if err != nil {
		return Config{}, err
	}
	cfg.ReminderMinute, err = intFromEnv("BOT_REMINDER_MINUTE", cfg.ReminderMinute)
	if err != nil {
		return Config{}, err
	}
	cfg.SessionTimeout, err = durationFromEnv("BOT_SESSION_TIMEOUT", cfg.SessionTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.ShutdownTimeout, err = durationFromEnv("BOT_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("BOT_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}

	if cfg.ReminderHour < 0 || cfg.ReminderHour > 23 {
		return Config{}, fmt.Errorf("BOT_REMINDER_HOUR must be in [0,23]")
	}
	if cfg.ReminderMinute < 0 || cfg.ReminderMinute > 59 {
		return Config{}, fmt.Errorf("BOT_REMINDER_MINUTE must be in [0,59]")
	}
	if cfg.SessionTimeout < 5*time.Second {
		return Config{}, fmt.Errorf("BOT_SESSION_TIMEOUT must be at least 5s")
	}
	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return Config{}, fmt.Errorf("BOT_TIMEZONE %q: %w", cfg.Timezone, err)
	}

	return cfg, nil
}

// Location resolves the configured display timezone.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func envOrDefault(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
