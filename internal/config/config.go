// Package config provides configuration management for claude-vigil.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Default configuration values.
const (
	DefaultCollectionIntervalSeconds = 10
	DefaultTimeRemainingAlertMinutes = 30
	DefaultInactivityAlertMinutes    = 10
	DefaultBillingStartDay           = 1
	DefaultTotalMonthlySessions      = 50
	DefaultHistoryRetentionDays      = 90
	DefaultServerAddr                = "127.0.0.1:9877"
	DefaultTimezone                  = "Europe/Warsaw"
)

// EnvActivityLog overrides the activity log path when set. The hook binaries
// honour the same variable so daemon and hooks always agree on the path.
const EnvActivityLog = "CLAUDE_VIGIL_ACTIVITY_LOG"

// Config holds all daemon settings.
type Config struct {
	CollectionIntervalSeconds int    `yaml:"collection_interval_seconds"`
	TimeRemainingAlertMinutes int    `yaml:"time_remaining_alert_minutes"`
	InactivityAlertMinutes    int    `yaml:"inactivity_alert_minutes"`
	BillingStartDay           int    `yaml:"billing_start_day"`
	TotalMonthlySessions      int    `yaml:"total_monthly_sessions"`
	HistoryRetentionDays      int    `yaml:"history_retention_days"`
	ServerAddr                string `yaml:"server_addr"`
	Timezone                  string `yaml:"timezone"`
}

// Default returns a configuration with all default values.
func Default() *Config {
	return &Config{
		CollectionIntervalSeconds: DefaultCollectionIntervalSeconds,
		TimeRemainingAlertMinutes: DefaultTimeRemainingAlertMinutes,
		InactivityAlertMinutes:    DefaultInactivityAlertMinutes,
		BillingStartDay:           DefaultBillingStartDay,
		TotalMonthlySessions:      DefaultTotalMonthlySessions,
		HistoryRetentionDays:      DefaultHistoryRetentionDays,
		ServerAddr:                DefaultServerAddr,
		Timezone:                  DefaultTimezone,
	}
}

// CollectionInterval returns the collection interval as a duration.
func (c *Config) CollectionInterval() time.Duration {
	return time.Duration(c.CollectionIntervalSeconds) * time.Second
}

// Validate checks configuration consistency.
func (c *Config) Validate() error {
	if c.CollectionIntervalSeconds <= 0 {
		return fmt.Errorf("collection_interval_seconds must be positive, got %d", c.CollectionIntervalSeconds)
	}
	if c.TimeRemainingAlertMinutes <= 0 {
		return fmt.Errorf("time_remaining_alert_minutes must be positive, got %d", c.TimeRemainingAlertMinutes)
	}
	if c.InactivityAlertMinutes <= 0 {
		return fmt.Errorf("inactivity_alert_minutes must be positive, got %d", c.InactivityAlertMinutes)
	}
	if c.BillingStartDay < 1 || c.BillingStartDay > 31 {
		return fmt.Errorf("billing_start_day must be between 1 and 31, got %d", c.BillingStartDay)
	}
	if c.Timezone == "" {
		return fmt.Errorf("timezone cannot be empty")
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return nil
}

// DataDir returns the claude-vigil data directory (~/.claude-vigil).
func DataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".claude-vigil")
}

// ConfigPath returns the path to the YAML configuration file.
func ConfigPath() string {
	return filepath.Join(DataDir(), "config.yaml")
}

// SnapshotPath returns the path to the persisted monitoring snapshot.
func SnapshotPath() string {
	return filepath.Join(DataDir(), "monitor_data.json")
}

// DBPath returns the path to the snapshot history database.
func DBPath() string {
	return filepath.Join(DataDir(), "claude-vigil.db")
}

// ActivityLogPath returns the path to the hook activity log. The
// CLAUDE_VIGIL_ACTIVITY_LOG environment variable takes precedence.
func ActivityLogPath() string {
	if p := os.Getenv(EnvActivityLog); p != "" {
		return p
	}
	return filepath.Join(DataDir(), "hooks", "activity.log")
}

// EnsureDataDir creates the data directory if it does not exist.
func EnsureDataDir() error {
	return os.MkdirAll(DataDir(), 0o755)
}

// Load reads the configuration file, falling back to defaults for missing
// fields. A missing file is not an error; a malformed file is.
func Load() (*Config, error) {
	return LoadFrom(ConfigPath())
}

// LoadFrom reads configuration from an explicit path.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
