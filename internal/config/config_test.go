// Package config provides configuration management for claude-vigil.
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

// ConfigSuite is a test suite for config operations.
type ConfigSuite struct {
	suite.Suite
	tempDir     string
	origHomeDir string
}

func (s *ConfigSuite) SetupTest() {
	var err error
	s.tempDir, err = os.MkdirTemp("", "config-test-*")
	s.Require().NoError(err)

	// Save and override HOME
	s.origHomeDir = os.Getenv("HOME")
	os.Setenv("HOME", s.tempDir)
	os.Unsetenv(EnvActivityLog)
}

func (s *ConfigSuite) TearDownTest() {
	os.Setenv("HOME", s.origHomeDir)
	os.RemoveAll(s.tempDir)
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigSuite))
}

// TestDefault tests default configuration values.
func (s *ConfigSuite) TestDefault() {
	cfg := Default()

	s.Equal(DefaultCollectionIntervalSeconds, cfg.CollectionIntervalSeconds)
	s.Equal(DefaultTimeRemainingAlertMinutes, cfg.TimeRemainingAlertMinutes)
	s.Equal(DefaultInactivityAlertMinutes, cfg.InactivityAlertMinutes)
	s.Equal(DefaultBillingStartDay, cfg.BillingStartDay)
	s.Equal(DefaultTotalMonthlySessions, cfg.TotalMonthlySessions)
	s.Equal(DefaultHistoryRetentionDays, cfg.HistoryRetentionDays)
	s.Equal(DefaultServerAddr, cfg.ServerAddr)
	s.Equal(DefaultTimezone, cfg.Timezone)
	s.NoError(cfg.Validate())
}

// TestCollectionInterval tests seconds-to-duration conversion.
func (s *ConfigSuite) TestCollectionInterval() {
	cfg := Default()
	cfg.CollectionIntervalSeconds = 7
	s.Equal(7*time.Second, cfg.CollectionInterval())
}

// TestDataDir tests data directory path.
func (s *ConfigSuite) TestDataDir() {
	dir := DataDir()
	s.Contains(dir, ".claude-vigil")
}

// TestPaths tests derived file paths.
func (s *ConfigSuite) TestPaths() {
	s.Contains(ConfigPath(), "config.yaml")
	s.Contains(SnapshotPath(), "monitor_data.json")
	s.Contains(DBPath(), "claude-vigil.db")
	s.Contains(ActivityLogPath(), filepath.Join("hooks", "activity.log"))
}

// TestActivityLogPathEnvOverride tests the environment override.
func (s *ConfigSuite) TestActivityLogPathEnvOverride() {
	custom := filepath.Join(s.tempDir, "custom.log")
	os.Setenv(EnvActivityLog, custom)
	defer os.Unsetenv(EnvActivityLog)

	s.Equal(custom, ActivityLogPath())
}

// TestEnsureDataDir tests data directory creation.
func (s *ConfigSuite) TestEnsureDataDir() {
	s.NoError(EnsureDataDir())

	info, err := os.Stat(DataDir())
	s.Require().NoError(err)
	s.True(info.IsDir())
}

// TestLoadMissingFileReturnsDefaults tests that a missing config is not an
// error.
func (s *ConfigSuite) TestLoadMissingFileReturnsDefaults() {
	cfg, err := Load()
	s.Require().NoError(err)
	s.Equal(Default(), cfg)
}

// TestLoadFromOverridesDefaults tests partial YAML overriding.
func (s *ConfigSuite) TestLoadFromOverridesDefaults() {
	path := filepath.Join(s.tempDir, "config.yaml")
	content := "collection_interval_seconds: 30\nbilling_start_day: 15\n"
	s.Require().NoError(os.WriteFile(path, []byte(content), 0o600))

	cfg, err := LoadFrom(path)
	s.Require().NoError(err)
	s.Equal(30, cfg.CollectionIntervalSeconds)
	s.Equal(15, cfg.BillingStartDay)
	s.Equal(DefaultServerAddr, cfg.ServerAddr)
}

// TestLoadFromMalformedFile tests that broken YAML is an error.
func (s *ConfigSuite) TestLoadFromMalformedFile() {
	path := filepath.Join(s.tempDir, "config.yaml")
	s.Require().NoError(os.WriteFile(path, []byte("{not yaml"), 0o600))

	_, err := LoadFrom(path)
	s.Error(err)
}

// TestLoadFromInvalidValues tests that loaded configs are validated.
func (s *ConfigSuite) TestLoadFromInvalidValues() {
	path := filepath.Join(s.tempDir, "config.yaml")
	s.Require().NoError(os.WriteFile(path, []byte("billing_start_day: 42\n"), 0o600))

	_, err := LoadFrom(path)
	s.Error(err)
}

// TestValidate tests individual validation rules.
func (s *ConfigSuite) TestValidate() {
	cfg := Default()
	cfg.CollectionIntervalSeconds = 0
	s.Error(cfg.Validate())

	cfg = Default()
	cfg.InactivityAlertMinutes = -1
	s.Error(cfg.Validate())

	cfg = Default()
	cfg.Timezone = "Mars/Olympus_Mons"
	s.Error(cfg.Validate())

	cfg = Default()
	cfg.Timezone = ""
	s.Error(cfg.Validate())
}
