// Package config loads perfio settings from file, environment and flags
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EventsEnv is the environment variable listing the hardware events to count
const EventsEnv = "GEOPM_PAPI_EVENTS"

// EnvPrefix prefixes every other environment override (PERFIO_INTERVAL, ...)
const EnvPrefix = "PERFIO"

// Config holds the settings shared by every perfio command
type Config struct {
	// Events are the hardware event names in signal-index order
	Events []string `mapstructure:"events" yaml:"events"`

	// Interval between batch reads in serve mode (default: 1s)
	Interval time.Duration `mapstructure:"interval" yaml:"interval"`

	// ListenAddress for the Prometheus endpoint (default: ":9464")
	ListenAddress string `mapstructure:"listen_address" yaml:"listen_address"`

	// MetricsPath for the Prometheus endpoint (default: "/metrics")
	MetricsPath string `mapstructure:"metrics_path" yaml:"metrics_path"`

	// LogLevel is one of debug, info, warn, error (default: info)
	LogLevel string `mapstructure:"log_level" yaml:"log_level"`

	// SysfsRoot is where sysfs is mounted (default: /sys)
	SysfsRoot string `mapstructure:"sysfs_root" yaml:"sysfs_root"`

	// Plugin is the registered IOGroup to load (default: PAPI)
	Plugin string `mapstructure:"plugin" yaml:"plugin"`
}

// DefaultConfig returns production defaults
func DefaultConfig() *Config {
	return &Config{
		Interval:      time.Second,
		ListenAddress: ":9464",
		MetricsPath:   "/metrics",
		LogLevel:      "info",
		SysfsRoot:     "/sys",
		Plugin:        "PAPI",
	}
}

// SetDefaults applies default values to unset fields
func (c *Config) SetDefaults() {
	d := DefaultConfig()
	if c.Interval == 0 {
		c.Interval = d.Interval
	}
	if c.ListenAddress == "" {
		c.ListenAddress = d.ListenAddress
	}
	if c.MetricsPath == "" {
		c.MetricsPath = d.MetricsPath
	}
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
	if c.SysfsRoot == "" {
		c.SysfsRoot = d.SysfsRoot
	}
	if c.Plugin == "" {
		c.Plugin = d.Plugin
	}
}

var validLogLevels = []string{"debug", "info", "warn", "error"}

// Validate checks every field and reports all problems at once
func (c *Config) Validate() error {
	var errs []ValidationError

	if c.Interval < 10*time.Millisecond {
		errs = append(errs, NewValidationError("interval",
			fmt.Sprintf("must be at least 10ms, got %v", c.Interval),
			"Use an interval such as 1s; counters accumulate between reads"))
	}

	if !strings.HasPrefix(c.MetricsPath, "/") {
		errs = append(errs, NewValidationError("metrics_path",
			fmt.Sprintf("must start with '/', got %q", c.MetricsPath),
			"Use /metrics"))
	}

	level := strings.ToLower(c.LogLevel)
	found := false
	for _, l := range validLogLevels {
		if l == level {
			found = true
			break
		}
	}
	if !found {
		e := NewValidationError("log_level", fmt.Sprintf("unknown level %q", c.LogLevel), "Pick a supported level")
		e.ValidValues = validLogLevels
		errs = append(errs, e)
	}

	seen := make(map[string]bool, len(c.Events))
	for _, ev := range c.Events {
		if seen[ev] {
			errs = append(errs, NewValidationError("events",
				fmt.Sprintf("event %q listed more than once", ev),
				"Each event may appear once; duplicates would shadow each other's signal index"))
		}
		seen[ev] = true
	}

	if len(errs) > 0 {
		return NewValidationErrors(errs)
	}
	return nil
}

// New returns a viper instance wired for perfio: PERFIO_ env overrides,
// GEOPM_PAPI_EVENTS for the event list, and defaults for everything else
func New() *viper.Viper {
	v := viper.New()
	d := DefaultConfig()
	v.SetDefault("interval", d.Interval)
	v.SetDefault("listen_address", d.ListenAddress)
	v.SetDefault("metrics_path", d.MetricsPath)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("sysfs_root", d.SysfsRoot)
	v.SetDefault("plugin", d.Plugin)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.BindEnv("events", EventsEnv)
	return v
}

// Load reads path (if non-empty) into v and decodes the result
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	// A YAML list reads back as "" here; a string from the env var or a
	// scalar in the file is whitespace separated
	if raw := v.GetString("events"); raw != "" {
		cfg.Events = SplitEvents(raw)
	}
	cfg.SetDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// EventsFromEnv returns the ordered event list from GEOPM_PAPI_EVENTS.
// An unset or blank variable yields no events.
func EventsFromEnv() []string {
	v := viper.New()
	v.BindEnv("events", EventsEnv)
	return SplitEvents(v.GetString("events"))
}

// SplitEvents splits on any run of whitespace
func SplitEvents(raw string) []string {
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return nil
	}
	return fields
}
