package counters

import (
	"fmt"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// Config holds observer configuration
type Config struct {
	// Name prefixes the self-metrics (default: counters)
	Name string

	// Interval between batch reads (default: 1s)
	Interval time.Duration

	// HealthCheckTimeout is how long without a read before the observer
	// reports degraded (default: 3 * Interval)
	HealthCheckTimeout time.Duration

	// Domains is the instance count per signal for IOGroups that do not
	// implement iogroup.DomainCounter
	Domains int

	// MeterProvider defaults to the global provider
	MeterProvider metric.MeterProvider
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		Name:     "counters",
		Interval: time.Second,
	}
}

// SetDefaults fills unset fields
func (c *Config) SetDefaults() {
	d := DefaultConfig()
	if c.Name == "" {
		c.Name = d.Name
	}
	if c.Interval == 0 {
		c.Interval = d.Interval
	}
	if c.HealthCheckTimeout == 0 {
		c.HealthCheckTimeout = 3 * c.Interval
	}
}

// Validate checks the configuration
func (c *Config) Validate() error {
	if c.Interval <= 0 {
		return fmt.Errorf("interval must be positive, got %v", c.Interval)
	}
	if c.Domains < 0 {
		return fmt.Errorf("domains must not be negative, got %d", c.Domains)
	}
	return nil
}
