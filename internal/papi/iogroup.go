// Package papi exposes per-core hardware performance counters as an IOGroup.
//
// One multiplexed event set is created per core and started at construction.
// Every configured event becomes a core-domain signal; batch index
// core*len(events)+signal addresses a flat sample buffer that ReadBatch
// refreshes in one pass over the cores.
package papi

import (
	"fmt"
	"sync"

	"github.com/yairfalse/perfio/internal/config"
	"github.com/yairfalse/perfio/internal/counter"
	"github.com/yairfalse/perfio/internal/iogroup"
	"github.com/yairfalse/perfio/pkg/domain"
	"go.uber.org/zap"
)

const component = "PapiIOGroup"

// signalMark records whether a consumer pushed one event on one core
type signalMark struct {
	description string
	doRead      bool
}

// coreContext is the event set bound to one core and its read buffer
type coreContext struct {
	eventSet counter.EventSet
	values   []int64
}

// IOGroup is the per-core counter adapter. It is not safe for concurrent use.
type IOGroup struct {
	lib    counter.Library
	logger *zap.Logger

	events  []string
	offsets map[string]int
	// marks[core][signal]
	marks [][]signalMark
	cores []coreContext
	batch []float64

	closed bool
}

// Option configures New
type Option func(*options)

type options struct {
	events    []string
	eventsSet bool
	logger    *zap.Logger
}

// WithEvents overrides the event list normally read from GEOPM_PAPI_EVENTS
func WithEvents(events []string) Option {
	return func(o *options) {
		o.events = append([]string(nil), events...)
		o.eventsSet = true
	}
}

// WithLogger sets the logger, zap.NewNop() by default
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// Only one adapter may own a library's counters at a time
var bindings = struct {
	sync.Mutex
	libs map[counter.Library]struct{}
}{libs: make(map[counter.Library]struct{})}

func bind(lib counter.Library) bool {
	bindings.Lock()
	defer bindings.Unlock()
	if _, taken := bindings.libs[lib]; taken {
		return false
	}
	bindings.libs[lib] = struct{}{}
	return true
}

func unbind(lib counter.Library) {
	bindings.Lock()
	defer bindings.Unlock()
	delete(bindings.libs, lib)
}

// New initializes lib, then creates, binds and starts one event set per core.
// Construction is all or nothing: on error every event set created so far is
// closed and the returned error is a *domain.FatalError.
func New(lib counter.Library, opts ...Option) (*IOGroup, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if !o.eventsSet {
		o.events = config.EventsFromEnv()
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}

	g := &IOGroup{
		lib:     lib,
		logger:  o.logger,
		events:  o.events,
		offsets: make(map[string]int, len(o.events)),
	}

	if err := g.init(); err != nil {
		g.logger.Error("Failed to construct counter IOGroup", zap.Error(err))
		return nil, err
	}

	g.logger.Info("Counter IOGroup started",
		zap.Int("cores", len(g.cores)),
		zap.Strings("events", g.events))
	return g, nil
}

func (g *IOGroup) init() error {
	version, err := g.lib.Init(counter.Version)
	if err != nil {
		return g.die("PAPI_library_init", err)
	}
	if version != counter.Version {
		return g.dieStatus("PAPI_library_init", version)
	}
	if err := g.lib.MultiplexInit(); err != nil {
		return g.die("PAPI_multiplex_init", err)
	}
	if err := g.lib.SetGranularity(counter.GranularitySystem); err != nil {
		return g.die("PAPI_set_granularity(PAPI_GRN_SYS)", err)
	}

	hw, err := g.lib.HardwareInfo()
	if err != nil {
		return g.die("PAPI_get_hardware_info", err)
	}
	numCores := hw.Cores()

	if !bind(g.lib) {
		return g.die("PAPI_set_opt(PAPI_CPU_ATTACH)", counter.Errorf(counter.StatusConflict))
	}

	g.cores = make([]coreContext, 0, numCores)
	g.marks = make([][]signalMark, 0, numCores)
	for core := 0; core < numCores; core++ {
		if err := g.startCore(core); err != nil {
			g.release()
			return err
		}
	}

	g.batch = make([]float64, numCores*len(g.events))
	for i, name := range g.events {
		g.offsets[name] = i
	}
	return nil
}

// startCore creates the event set for core and appends it once it is running
func (g *IOGroup) startCore(core int) error {
	es, err := g.lib.CreateEventSet()
	if err != nil {
		return g.die("PAPI_create_eventset", err)
	}
	ctx := coreContext{eventSet: es, values: make([]int64, len(g.events))}
	// Tracked before setup so a failure below still closes it
	g.cores = append(g.cores, ctx)

	if err := g.lib.AssignComponent(es, 0); err != nil {
		return g.die("PAPI_assign_eventset_component", err)
	}
	if err := g.lib.AttachCPU(es, core); err != nil {
		return g.die("PAPI_set_opt(PAPI_CPU_ATTACH)", err)
	}
	if err := g.lib.SetMultiplex(es); err != nil {
		return g.die("PAPI_set_multiplex", err)
	}

	marks := make([]signalMark, 0, len(g.events))
	seen := make(map[string]struct{}, len(g.events))
	for _, name := range g.events {
		if _, dup := seen[name]; dup {
			return g.die(fmt.Sprintf("PAPI_add_event(%q)", name), counter.Errorf(counter.StatusConflict))
		}
		seen[name] = struct{}{}

		code, err := g.lib.EventNameToCode(name)
		if err != nil {
			return g.die(fmt.Sprintf("PAPI_event_name_to_code(%q)", name), err)
		}
		if err := g.lib.AddEvent(es, code); err != nil {
			return g.die(fmt.Sprintf("PAPI_add_event(%q)", name), err)
		}
		marks = append(marks, signalMark{description: "PAPI Counter: " + name})
	}
	g.marks = append(g.marks, marks)

	if err := g.lib.Start(es); err != nil {
		return g.die(fmt.Sprintf("PAPI_start CPU %d", core), err)
	}

	g.logger.Debug("Core counters started",
		zap.Int("core", core),
		zap.Int("event_set", int(es)),
		zap.Int("events", len(g.events)))
	return nil
}

// die converts a library failure into the fatal error channel
func (g *IOGroup) die(call string, err error) error {
	status, errno := counter.StatusOf(err)
	return domain.NewFatalError(component, call, status, errno, g.lib.StrError(status))
}

// dieStatus reports a raw, non-error return value from call
func (g *IOGroup) dieStatus(call string, status int) error {
	return domain.NewFatalError(component, call, status, 0, g.lib.StrError(status))
}

// release closes every event set and gives the library back
func (g *IOGroup) release() {
	for _, ctx := range g.cores {
		if err := g.lib.Close(ctx.eventSet); err != nil {
			g.logger.Warn("Failed to close event set",
				zap.Int("event_set", int(ctx.eventSet)),
				zap.Error(err))
		}
	}
	g.cores = nil
	unbind(g.lib)
}

// Close stops counting on every core. The IOGroup is unusable afterwards.
func (g *IOGroup) Close() error {
	if g.closed {
		return nil
	}
	g.closed = true
	g.release()
	g.logger.Debug("Counter IOGroup closed")
	return nil
}

// NumCores is the number of per-core contexts
func (g *IOGroup) NumCores() int {
	return len(g.cores)
}

// DomainCount is the number of cores for DomainCore and 0 for every other domain
func (g *IOGroup) DomainCount(domainType domain.DomainType) int {
	if domainType != domain.DomainCore {
		return 0
	}
	return len(g.cores)
}

// Events returns the configured events in signal-index order
func (g *IOGroup) Events() []string {
	return append([]string(nil), g.events...)
}

var (
	_ iogroup.IOGroup = (*IOGroup)(nil)
	_ iogroup.Closer  = (*IOGroup)(nil)

	_ iogroup.DomainCounter = (*IOGroup)(nil)
)
