// Package counters polls an IOGroup on a fixed interval and keeps the most
// recent sample of every signal on every domain instance.
package counters

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/yairfalse/perfio/internal/iogroup"
	"github.com/yairfalse/perfio/internal/observers/base"
	"github.com/yairfalse/perfio/pkg/domain"
	"go.uber.org/zap"
)

var (
	// ErrNotStarted is returned by Stop before Start
	ErrNotStarted = errors.New("observer not started")
	// ErrAlreadyStarted is returned by every Start after the first
	ErrAlreadyStarted = errors.New("observer already started")
)

// handle is one pushed signal and its batch indices, one per domain index
type handle struct {
	name       string
	domainType domain.DomainType
	batchIdx   []int
	agg        iogroup.AggFunc
	format     iogroup.FormatFunc
}

// Observer owns one IOGroup. Every access to the IOGroup goes through mu.
type Observer struct {
	*base.BaseObserver     // Provides Statistics() and Health() methods
	*base.LifecycleManager // Set by Start

	name   string
	logger *zap.Logger
	config *Config

	mu      sync.Mutex
	group   iogroup.IOGroup
	handles []handle
	pushed  bool
	started bool

	snapMu   sync.RWMutex
	snapshot Snapshot
}

// NewObserver creates an observer over group
func NewObserver(group iogroup.IOGroup, logger *zap.Logger, config *Config) (*Observer, error) {
	if group == nil {
		return nil, fmt.Errorf("group is required for counters observer")
	}
	if config == nil {
		config = DefaultConfig()
	}
	config.SetDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid counters observer config: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	o := &Observer{
		BaseObserver: base.NewBaseObserverWithConfig(base.BaseObserverConfig{
			Name:               config.Name,
			HealthCheckTimeout: config.HealthCheckTimeout,
			MeterProvider:      config.MeterProvider,
			Logger:             logger,
		}),
		name:   config.Name,
		logger: logger.With(zap.String("observer", config.Name)),
		config: config,
		group:  group,
	}

	// Start as unhealthy, become healthy only after Start() is called
	o.BaseObserver.SetHealthy(false)
	return o, nil
}

// Start pushes every signal and begins polling. Push failures are returned.
// An observer starts at most once.
func (o *Observer) Start(ctx context.Context) error {
	o.mu.Lock()
	if o.started {
		o.mu.Unlock()
		return ErrAlreadyStarted
	}
	err := o.push()
	signals := len(o.handles)
	if err == nil {
		o.started = true
	}
	o.mu.Unlock()
	if err != nil {
		return err
	}

	o.LifecycleManager = base.NewLifecycleManager(ctx, o.logger)
	o.LifecycleManager.Every("counter-poller", o.config.Interval, func(ctx context.Context) {
		_ = o.Poll(ctx)
	})

	o.BaseObserver.SetHealthy(true)
	o.logger.Info("Counters observer started",
		zap.Int("signals", signals),
		zap.Duration("interval", o.config.Interval))
	return nil
}

// Stop stops polling and waits for the poller to exit
func (o *Observer) Stop() error {
	if o.LifecycleManager == nil {
		return ErrNotStarted
	}
	err := o.LifecycleManager.Stop(5 * time.Second)
	o.BaseObserver.SetHealthy(false)
	o.logger.Info("Counters observer stopped")
	return err
}

// Close stops polling if running and closes the IOGroup when it holds
// OS resources
func (o *Observer) Close() error {
	if o.LifecycleManager != nil {
		_ = o.Stop()
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if c, ok := o.group.(iogroup.Closer); ok {
		return c.Close()
	}
	return nil
}

// Name returns the observer name
func (o *Observer) Name() string {
	return o.name
}

// IsHealthy returns the health status
func (o *Observer) IsHealthy() bool {
	return o.BaseObserver.Health().Status == domain.HealthHealthy
}

// push registers every signal on every instance of its domain. Call with mu held.
func (o *Observer) push() error {
	if o.pushed {
		return nil
	}

	counter, hasCount := o.group.(iogroup.DomainCounter)
	handles := make([]handle, 0)
	for _, name := range o.group.SignalNames() {
		dt := o.group.SignalDomainType(name)
		count := o.config.Domains
		if hasCount {
			count = counter.DomainCount(dt)
		}
		if count == 0 {
			o.logger.Warn("Skipping signal with no domain instances",
				zap.String("signal", name),
				zap.Stringer("domain", dt))
			continue
		}

		h := handle{name: name, domainType: dt, batchIdx: make([]int, count)}
		for idx := 0; idx < count; idx++ {
			batchIdx, err := o.group.PushSignal(name, dt, idx)
			if err != nil {
				return fmt.Errorf("failed to push %s on %s %d: %w", name, dt, idx, err)
			}
			h.batchIdx[idx] = batchIdx
		}

		var err error
		if h.agg, err = o.group.AggFunction(name); err != nil {
			return fmt.Errorf("failed to get aggregation for %s: %w", name, err)
		}
		if h.format, err = o.group.FormatFunction(name); err != nil {
			return fmt.Errorf("failed to get format for %s: %w", name, err)
		}
		handles = append(handles, h)
	}

	o.handles = handles
	o.pushed = true
	o.logger.Debug("Pushed signals", zap.Int("signals", len(handles)))
	return nil
}

// Poll performs one batch read and replaces the snapshot. Signals are pushed
// first if Start has not done so.
func (o *Observer) Poll(ctx context.Context) error {
	start := time.Now()

	snap, err := o.read()
	if err != nil {
		o.BaseObserver.RecordError(ctx, err)
		if domain.IsFatal(err) {
			o.BaseObserver.SetHealthy(false)
		}
		o.logger.Warn("Batch read failed", zap.Error(err))
		return err
	}

	o.snapMu.Lock()
	o.snapshot = snap
	o.snapMu.Unlock()

	o.BaseObserver.RecordRead(ctx, time.Since(start))
	return nil
}

func (o *Observer) read() (Snapshot, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.push(); err != nil {
		return Snapshot{}, err
	}
	if err := o.group.ReadBatch(); err != nil {
		return Snapshot{}, err
	}

	snap := Snapshot{
		Timestamp: time.Now(),
		Signals:   make([]SignalValues, 0, len(o.handles)),
	}
	for _, h := range o.handles {
		values := make([]float64, len(h.batchIdx))
		for i, idx := range h.batchIdx {
			v, err := o.group.Sample(idx)
			if err != nil {
				return Snapshot{}, fmt.Errorf("failed to sample %s[%d]: %w", h.name, i, err)
			}
			values[i] = v
		}
		snap.Signals = append(snap.Signals, SignalValues{
			Name:   h.name,
			Domain: h.domainType,
			Values: values,
			Total:  h.agg(values),
			Format: h.format,
		})
	}
	return snap, nil
}

// Snapshot returns a copy of the most recent sample. It is the zero
// Snapshot until the first successful Poll.
func (o *Observer) Snapshot() Snapshot {
	o.snapMu.RLock()
	defer o.snapMu.RUnlock()
	return o.snapshot.clone()
}

// ReadSignal performs a one-shot read through the IOGroup
func (o *Observer) ReadSignal(name string, domainType domain.DomainType, domainIdx int) (float64, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.group.ReadSignal(name, domainType, domainIdx)
}
