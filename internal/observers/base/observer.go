// Package base provides common functionality for all perfio observers
// This keeps self-metrics and health reporting consistent
package base

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// BaseObserver provides statistics and health tracking for observers
// Embed this in your observer to get Statistics() and Health() methods automatically
type BaseObserver struct {
	name      string
	startTime time.Time

	// Statistics tracking (atomic for thread safety)
	readsTotal atomic.Int64
	errorCount atomic.Int64

	lastReadTime atomic.Value // stores time.Time
	lastError    atomic.Value // stores errorHolder

	// Health tracking
	isHealthy          atomic.Bool
	healthCheckTimeout time.Duration
	errorRateThreshold float64

	meter metric.Meter

	readsCounter metric.Int64Counter
	errorCounter metric.Int64Counter
	readDuration metric.Float64Histogram
	healthStatus metric.Int64Gauge

	logger *zap.Logger
}

// BaseObserverConfig holds configuration for BaseObserver
type BaseObserverConfig struct {
	Name string
	// HealthCheckTimeout is how long without a read before reporting degraded
	HealthCheckTimeout time.Duration
	ErrorRateThreshold float64 // Default 0.1 (10%)

	// MeterProvider defaults to the global provider
	MeterProvider metric.MeterProvider

	Logger *zap.Logger
}

// NewBaseObserver creates a new base observer with the given name
func NewBaseObserver(name string, healthCheckTimeout time.Duration) *BaseObserver {
	return NewBaseObserverWithConfig(BaseObserverConfig{
		Name:               name,
		HealthCheckTimeout: healthCheckTimeout,
	})
}

// NewBaseObserverWithConfig creates a new base observer with full configuration
func NewBaseObserverWithConfig(config BaseObserverConfig) *BaseObserver {
	if config.ErrorRateThreshold == 0 {
		config.ErrorRateThreshold = 0.1
	}
	if config.MeterProvider == nil {
		config.MeterProvider = otel.GetMeterProvider()
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}

	bc := &BaseObserver{
		name:               config.Name,
		startTime:          time.Now(),
		healthCheckTimeout: config.HealthCheckTimeout,
		errorRateThreshold: config.ErrorRateThreshold,
		meter:              config.MeterProvider.Meter(config.Name),
		logger:             config.Logger,
	}
	bc.isHealthy.Store(true)
	bc.lastReadTime.Store(time.Time{})

	bc.initializeMetrics()
	return bc
}

// initializeMetrics registers the standard self-metrics. A metric that
// cannot be created is left nil and skipped when recording.
func (bc *BaseObserver) initializeMetrics() {
	var err error

	bc.readsCounter, err = bc.meter.Int64Counter(
		fmt.Sprintf("%s_reads_total", bc.name),
		metric.WithDescription("Total batch reads completed"),
		metric.WithUnit("1"),
	)
	if err != nil {
		bc.logger.Debug("Failed to create reads counter",
			zap.String("observer", bc.name),
			zap.Error(err))
		bc.readsCounter = nil
	}

	bc.errorCounter, err = bc.meter.Int64Counter(
		fmt.Sprintf("%s_errors_total", bc.name),
		metric.WithDescription("Total errors encountered"),
		metric.WithUnit("1"),
	)
	if err != nil {
		bc.logger.Debug("Failed to create error counter",
			zap.String("observer", bc.name),
			zap.Error(err))
		bc.errorCounter = nil
	}

	bc.readDuration, err = bc.meter.Float64Histogram(
		fmt.Sprintf("%s_read_duration_seconds", bc.name),
		metric.WithDescription("Batch read duration"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1),
	)
	if err != nil {
		bc.logger.Debug("Failed to create read duration histogram",
			zap.String("observer", bc.name),
			zap.Error(err))
		bc.readDuration = nil
	}

	// 0=unhealthy, 1=degraded, 2=healthy
	bc.healthStatus, err = bc.meter.Int64Gauge(
		fmt.Sprintf("%s_health_status", bc.name),
		metric.WithDescription("Health status (0=unhealthy, 1=degraded, 2=healthy)"),
		metric.WithUnit("1"),
	)
	if err != nil {
		bc.logger.Debug("Failed to create health status gauge",
			zap.String("observer", bc.name),
			zap.Error(err))
		bc.healthStatus = nil
	}
}

// RecordRead should be called after every successful batch read
func (bc *BaseObserver) RecordRead(ctx context.Context, duration time.Duration) {
	bc.readsTotal.Add(1)
	bc.lastReadTime.Store(time.Now())

	if bc.readsCounter != nil {
		bc.readsCounter.Add(ctx, 1)
	}
	if bc.readDuration != nil {
		bc.readDuration.Record(ctx, duration.Seconds())
	}
}

// RecordError should be called when a read fails
func (bc *BaseObserver) RecordError(ctx context.Context, err error) {
	bc.errorCount.Add(1)
	if err != nil {
		bc.lastError.Store(errorHolder{err})
	}

	if bc.errorCounter != nil {
		attrs := []attribute.KeyValue{}
		if err != nil {
			attrs = append(attrs, attribute.String("error_type", fmt.Sprintf("%T", err)))
		}
		bc.errorCounter.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

// Meter returns the meter for observer-specific metrics
func (bc *BaseObserver) Meter() metric.Meter {
	return bc.meter
}

// LastError returns the most recent error recorded, if any
func (bc *BaseObserver) LastError() error {
	h, _ := bc.lastError.Load().(errorHolder)
	return h.err
}

// atomic.Value requires one concrete type across stores
type errorHolder struct {
	err error
}

// LastReadTime is the zero time until the first successful read
func (bc *BaseObserver) LastReadTime() time.Time {
	t, _ := bc.lastReadTime.Load().(time.Time)
	return t
}
