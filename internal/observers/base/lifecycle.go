package base

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

var (
	// ErrShutdownTimeout is returned when graceful shutdown times out
	ErrShutdownTimeout = errors.New("shutdown timeout exceeded")
)

// LifecycleManager handles goroutine lifecycle and graceful shutdown
type LifecycleManager struct {
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	stopCh   chan struct{}
	doneCh   chan struct{}
	stopOnce sync.Once
	logger   *zap.Logger

	runningGoroutines atomic.Int32
}

// NewLifecycleManager creates a new lifecycle manager
func NewLifecycleManager(ctx context.Context, logger *zap.Logger) *LifecycleManager {
	if ctx == nil {
		ctx = context.Background()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(ctx)

	return &LifecycleManager{
		ctx:    ctx,
		cancel: cancel,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
		logger: logger,
	}
}

// Start launches a goroutine with proper lifecycle management
func (lm *LifecycleManager) Start(name string, fn func()) {
	lm.wg.Add(1)
	lm.runningGoroutines.Add(1)

	go func() {
		defer lm.wg.Done()
		defer lm.runningGoroutines.Add(-1)

		lm.logger.Debug("Starting goroutine", zap.String("name", name))
		defer lm.logger.Debug("Goroutine stopped", zap.String("name", name))

		fn()
	}()
}

// Every runs fn immediately and then on each tick of interval until the
// lifecycle context is cancelled
func (lm *LifecycleManager) Every(name string, interval time.Duration, fn func(ctx context.Context)) {
	lm.Start(name, func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		fn(lm.ctx)
		for {
			select {
			case <-lm.ctx.Done():
				return
			case <-ticker.C:
				fn(lm.ctx)
			}
		}
	})
}

// Stop initiates graceful shutdown. Calls after the first return nil.
func (lm *LifecycleManager) Stop(timeout time.Duration) error {
	var err error
	lm.stopOnce.Do(func() {
		err = lm.stop(timeout)
	})
	return err
}

func (lm *LifecycleManager) stop(timeout time.Duration) error {
	lm.logger.Info("Initiating graceful shutdown",
		zap.Int32("running_goroutines", lm.runningGoroutines.Load()),
		zap.Duration("timeout", timeout))

	close(lm.stopCh)
	lm.cancel()

	done := make(chan struct{})
	go func() {
		lm.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		lm.logger.Info("Graceful shutdown completed")
		close(lm.doneCh)
		return nil
	case <-time.After(timeout):
		lm.logger.Warn("Shutdown timeout exceeded",
			zap.Int32("still_running", lm.runningGoroutines.Load()))
		return ErrShutdownTimeout
	}
}

// Context returns the lifecycle context
func (lm *LifecycleManager) Context() context.Context {
	return lm.ctx
}

// StopChannel returns the stop signal channel
func (lm *LifecycleManager) StopChannel() <-chan struct{} {
	return lm.stopCh
}

// DoneChannel is closed once every goroutine has returned after Stop
func (lm *LifecycleManager) DoneChannel() <-chan struct{} {
	return lm.doneCh
}

// IsShuttingDown checks if shutdown has been initiated
func (lm *LifecycleManager) IsShuttingDown() bool {
	select {
	case <-lm.stopCh:
		return true
	default:
		return false
	}
}

// GetRunningGoroutines returns the number of running goroutines
func (lm *LifecycleManager) GetRunningGoroutines() int32 {
	return lm.runningGoroutines.Load()
}
