package papi

import (
	"github.com/yairfalse/perfio/internal/counter"
	"github.com/yairfalse/perfio/internal/counter/perf"
	"github.com/yairfalse/perfio/internal/iogroup"
	"go.uber.org/zap"
)

// PluginName is the registry key for this IOGroup
const PluginName = "PAPI"

// MakePlugin builds the adapter over the process-wide perf library with
// events from GEOPM_PAPI_EVENTS
func MakePlugin() (iogroup.IOGroup, error) {
	return Factory(perf.Default())()
}

// Factory returns an iogroup.Factory that builds the adapter over lib
func Factory(lib counter.Library, opts ...Option) iogroup.Factory {
	return func() (iogroup.IOGroup, error) {
		g, err := New(lib, opts...)
		if err != nil {
			return nil, err
		}
		return g, nil
	}
}

// Register adds the PAPI plugin to reg. Failures are logged, not returned.
func Register(reg *iogroup.Registry, logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := reg.Register(PluginName, MakePlugin); err != nil {
		logger.Error("Failed to register IOGroup plugin",
			zap.String("plugin", PluginName),
			zap.Error(err))
		return
	}
	logger.Debug("Registered IOGroup plugin", zap.String("plugin", PluginName))
}

// RegisterWith returns a registrar that registers the plugin over lib
// with the given options instead of the process defaults
func RegisterWith(lib counter.Library, opts ...Option) iogroup.Registrar {
	return func(reg *iogroup.Registry, logger *zap.Logger) {
		if logger == nil {
			logger = zap.NewNop()
		}
		if err := reg.Register(PluginName, Factory(lib, append([]Option{WithLogger(logger)}, opts...)...)); err != nil {
			logger.Error("Failed to register IOGroup plugin",
				zap.String("plugin", PluginName),
				zap.Error(err))
		}
	}
}
