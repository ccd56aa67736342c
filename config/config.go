/*
Package config loads server configuration from a YAML file.

All fields have working defaults, so the server runs with no config file at
all. Horizon overrides fall back per-field to the built-in policy, which
keeps a partial override from silently zeroing the other horizons.
*/
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/warp/schedule-engine/schedule"
)

// Config is the top-level server configuration.
type Config struct {
	Port            int           `yaml:"port"`
	DBPath          string        `yaml:"db_path"`
	LogLevel        string        `yaml:"log_level"`
	MaterializeCron string        `yaml:"materialize_cron"`
	Horizon         HorizonConfig `yaml:"horizon"`
}

// HorizonConfig overrides how far ahead each frequency materializes.
// Zero fields keep the defaults.
type HorizonConfig struct {
	DailyMonths   int `yaml:"daily_months"`
	WeeklyMonths  int `yaml:"weekly_months"`
	MonthlyMonths int `yaml:"monthly_months"`
	FallbackDays  int `yaml:"fallback_days"`
	MaxSteps      int `yaml:"max_steps"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Port:     8080,
		DBPath:   "schedule.db",
		LogLevel: "info",
	}
}

// Load reads a YAML config file, applying defaults for unset fields.
func Load(path string) (Config, error) {
	cfg := Default()

	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config: %w", err)
	}

	if cfg.Port <= 0 {
		cfg.Port = 8080
	}
	if cfg.DBPath == "" {
		cfg.DBPath = "schedule.db"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	return cfg, nil
}

// Policy converts the overrides into a horizon policy for the expander.
func (h HorizonConfig) Policy() schedule.HorizonPolicy {
	return schedule.HorizonPolicy{
		DailyHorizonMonths:   h.DailyMonths,
		WeeklyHorizonMonths:  h.WeeklyMonths,
		MonthlyHorizonMonths: h.MonthlyMonths,
		DefaultHorizonDays:   h.FallbackDays,
		MaxSteps:             h.MaxSteps,
	}
}
