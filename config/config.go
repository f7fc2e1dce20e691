// Package config loads server settings from the environment and an
// optional .env file.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port     string `mapstructure:"PORT"`
	DBPath   string `mapstructure:"DB_PATH"`
	RedisURL string `mapstructure:"REDIS_URL"`

	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT"`

	// PolicyFile is a JSON policy; empty means the built-in defaults.
	PolicyFile              string `mapstructure:"POLICY_FILE"`
	ReplaceStaleSuggestions bool   `mapstructure:"REPLACE_STALE_SUGGESTIONS"`

	RegenerateEnabled  bool          `mapstructure:"REGENERATE_ENABLED"`
	RegenerateInterval time.Duration `mapstructure:"REGENERATE_INTERVAL"`
	WeeksAhead         int           `mapstructure:"WEEKS_AHEAD"`
	LockTTL            time.Duration `mapstructure:"LOCK_TTL"`

	// Timezone decides which calendar day "today" is.
	Timezone       string   `mapstructure:"TIMEZONE"`
	SimulatedClock bool     `mapstructure:"SIMULATED_CLOCK"`
	CORSOrigins    []string `mapstructure:"CORS_ORIGINS"`
}

var keys = []string{
	"PORT", "DB_PATH", "REDIS_URL", "LOG_LEVEL", "LOG_FORMAT",
	"POLICY_FILE", "REPLACE_STALE_SUGGESTIONS",
	"REGENERATE_ENABLED", "REGENERATE_INTERVAL", "WEEKS_AHEAD", "LOCK_TTL",
	"TIMEZONE", "SIMULATED_CLOCK", "CORS_ORIGINS",
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8080")
	v.SetDefault("DB_PATH", "./data/visits.db")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("REPLACE_STALE_SUGGESTIONS", false)
	v.SetDefault("REGENERATE_ENABLED", true)
	v.SetDefault("REGENERATE_INTERVAL", "1h")
	v.SetDefault("WEEKS_AHEAD", 1)
	v.SetDefault("LOCK_TTL", "30s")
	v.SetDefault("TIMEZONE", "UTC")
	v.SetDefault("SIMULATED_CLOCK", false)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")

	for _, k := range keys {
		v.BindEnv(k)
	}

	// .env is optional
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if len(cfg.CORSOrigins) == 0 {
		if origins := v.GetString("CORS_ORIGINS"); origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH is required")
	}
	if c.RegenerateEnabled && c.RegenerateInterval <= 0 {
		return fmt.Errorf("REGENERATE_INTERVAL must be positive, got %s", c.RegenerateInterval)
	}
	if c.WeeksAhead < 0 {
		return fmt.Errorf("WEEKS_AHEAD must not be negative, got %d", c.WeeksAhead)
	}
	if c.LockTTL <= 0 {
		return fmt.Errorf("LOCK_TTL must be positive, got %s", c.LockTTL)
	}
	if c.LogFormat != "json" && c.LogFormat != "console" {
		return fmt.Errorf("LOG_FORMAT must be \"json\" or \"console\", got %q", c.LogFormat)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves Timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("TIMEZONE %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// UsesRedis reports whether week locks go through Redis.
func (c *Config) UsesRedis() bool { return c.RedisURL != "" }
