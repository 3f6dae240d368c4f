// Package config loads droidmon settings from a YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/eliteGoblin/focusd/droid_mon/internal/variant"
)

// Environment variables that override the file.
const (
	EnvSerial   = "DROIDMON_SERIAL"
	EnvAdb      = "DROIDMON_ADB"
	EnvLogLevel = "DROIDMON_LOG_LEVEL"
)

// Config holds all runtime settings.
type Config struct {
	Adb               AdbConfig     `yaml:"adb"`
	Kill              KillConfig    `yaml:"kill"`
	OwnerPackage      string        `yaml:"owner_package,omitempty"`
	ProtectedPackages []string      `yaml:"protected_packages,omitempty"`
	BlockedPackages   []string      `yaml:"blocked_packages,omitempty"`
	WatchInterval     time.Duration `yaml:"watch_interval"`
	DataDir           string        `yaml:"data_dir"`
	LogLevel          string        `yaml:"log_level"`
	Variant           VariantConfig `yaml:"variant,omitempty"`
}

// AdbConfig controls how the device is reached.
type AdbConfig struct {
	Path             string        `yaml:"path"`
	Serial           string        `yaml:"serial,omitempty"`
	CommandTimeout   time.Duration `yaml:"command_timeout"`
	SnapshotInterval time.Duration `yaml:"snapshot_interval"`
	CommandsPerSec   float64       `yaml:"commands_per_sec"`
}

// KillConfig tunes the force stop wait loop.
type KillConfig struct {
	PollInterval time.Duration `yaml:"poll_interval"`
	Timeout      time.Duration `yaml:"timeout"`
}

// VariantConfig adds OEM screens and controls to the built-in tables.
type VariantConfig struct {
	AppInfoClasses []string `yaml:"app_info_classes,omitempty"`
	DialogClasses  []string `yaml:"dialog_classes,omitempty"`
	ForceStopIDs   []string `yaml:"force_stop_ids,omitempty"`
	ConfirmIDs     []string `yaml:"confirm_ids,omitempty"`
}

// Extension converts the section to a profile extension.
func (v VariantConfig) Extension() variant.Extension {
	return variant.Extension{
		AppInfoClasses: v.AppInfoClasses,
		DialogClasses:  v.DialogClasses,
		ForceStopIDs:   v.ForceStopIDs,
		ConfirmIDs:     v.ConfirmIDs,
	}
}

// Default returns the built-in settings.
func Default() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		Adb: AdbConfig{
			Path:             "adb",
			CommandTimeout:   10 * time.Second,
			SnapshotInterval: 400 * time.Millisecond,
			CommandsPerSec:   8,
		},
		Kill: KillConfig{
			PollInterval: 500 * time.Millisecond,
			Timeout:      6000 * time.Millisecond,
		},
		WatchInterval: time.Minute,
		DataDir:       filepath.Join(home, ".droidmon"),
		LogLevel:      "info",
	}
}

// DefaultPath returns the config file looked up when none is given.
func DefaultPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".droidmon", "config.yaml")
}

// Load reads path over the defaults and applies environment overrides.
// A missing file is not an error when path is the default location.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = DefaultPath()
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			cfg.applyEnv()
			return cfg, cfg.Validate()
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %q: %w", path, err)
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %q: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvSerial); v != "" {
		c.Adb.Serial = v
	}
	if v := os.Getenv(EnvAdb); v != "" {
		c.Adb.Path = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
}

// Validate rejects settings the tool cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.Adb.Path == "":
		return errors.New("adb.path is empty")
	case c.Kill.PollInterval <= 0:
		return errors.New("kill.poll_interval must be positive")
	case c.Kill.Timeout < c.Kill.PollInterval:
		return errors.New("kill.timeout must not be shorter than kill.poll_interval")
	case c.Adb.SnapshotInterval <= 0:
		return errors.New("adb.snapshot_interval must be positive")
	case c.WatchInterval <= 0:
		return errors.New("watch_interval must be positive")
	case c.DataDir == "":
		return errors.New("data_dir is empty")
	}
	return nil
}

// HistoryPath is the encrypted kill history database.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.DataDir, "history.db")
}

// KeyPath is the history database key file.
func (c *Config) KeyPath() string {
	return filepath.Join(c.DataDir, ".history.key")
}

// LogPath is the log file used by the watch command.
func (c *Config) LogPath() string {
	return filepath.Join(c.DataDir, "watch.log")
}
