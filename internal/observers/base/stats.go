package base

import (
	"context"
	"fmt"
	"time"

	"github.com/yairfalse/perfio/pkg/domain"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Stats is a point-in-time copy of an observer's counters
type Stats struct {
	Name         string        `json:"name"`
	ReadsTotal   int64         `json:"reads_total"`
	ErrorCount   int64         `json:"error_count"`
	LastReadTime time.Time     `json:"last_read_time"`
	Uptime       time.Duration `json:"uptime"`
}

// SetHealthy sets the observer health status
func (bc *BaseObserver) SetHealthy(healthy bool) {
	bc.isHealthy.Store(healthy)
}

// IsHealthy returns true if the observer is healthy
func (bc *BaseObserver) IsHealthy() bool {
	return bc.isHealthy.Load()
}

// Statistics returns observer statistics
func (bc *BaseObserver) Statistics() *Stats {
	return &Stats{
		Name:         bc.name,
		ReadsTotal:   bc.readsTotal.Load(),
		ErrorCount:   bc.errorCount.Load(),
		LastReadTime: bc.LastReadTime(),
		Uptime:       time.Since(bc.startTime),
	}
}

// Health returns health status
func (bc *BaseObserver) Health() *domain.HealthStatus {
	hs := bc.health()
	hs.Component = bc.name
	hs.ReadCount = bc.readsTotal.Load()
	hs.ErrorCount = bc.errorCount.Load()
	if err := bc.LastError(); err != nil {
		hs.LastError = err
		hs.LastErrorText = err.Error()
	}
	return hs
}

func (bc *BaseObserver) health() *domain.HealthStatus {
	ctx := context.Background()

	if !bc.isHealthy.Load() {
		bc.recordHealth(ctx, 0, "marked_unhealthy")
		return domain.NewUnhealthyStatus(
			fmt.Sprintf("%s observer is unhealthy", bc.name),
			bc.LastError(),
		)
	}

	// Only once at least one read has completed
	if reads := bc.readsTotal.Load(); reads > 0 && bc.healthCheckTimeout > 0 {
		sinceLastRead := time.Since(bc.LastReadTime())
		if sinceLastRead > bc.healthCheckTimeout {
			bc.recordHealth(ctx, 1, "stale")
			return domain.NewHealthStatus(
				domain.HealthDegraded,
				fmt.Sprintf("No reads completed for %v", sinceLastRead.Round(time.Millisecond)),
			)
		}
	}

	attempts := bc.readsTotal.Load() + bc.errorCount.Load()
	errorRate := float64(0)
	if attempts > 0 {
		errorRate = float64(bc.errorCount.Load()) / float64(attempts)
	}
	if errorRate > bc.errorRateThreshold {
		bc.recordHealth(ctx, 1, "high_error_rate")
		return domain.NewHealthStatus(
			domain.HealthDegraded,
			fmt.Sprintf("High error rate: %.1f%% (threshold: %.1f%%)",
				errorRate*100, bc.errorRateThreshold*100),
		)
	}

	bc.recordHealth(ctx, 2, "")
	return domain.NewHealthyStatus(fmt.Sprintf("%s observer operating normally", bc.name))
}

func (bc *BaseObserver) recordHealth(ctx context.Context, value int64, reason string) {
	if bc.healthStatus == nil {
		return
	}
	if reason == "" {
		bc.healthStatus.Record(ctx, value)
		return
	}
	bc.healthStatus.Record(ctx, value, metric.WithAttributes(attribute.String("reason", reason)))
}

// GetName returns the observer name
func (bc *BaseObserver) GetName() string {
	return bc.name
}

// GetUptime returns how long the observer has been running
func (bc *BaseObserver) GetUptime() time.Duration {
	return time.Since(bc.startTime)
}

// GetReadCount returns the total number of successful reads
func (bc *BaseObserver) GetReadCount() int64 {
	return bc.readsTotal.Load()
}

// GetErrorCount returns the total number of errors
func (bc *BaseObserver) GetErrorCount() int64 {
	return bc.errorCount.Load()
}
