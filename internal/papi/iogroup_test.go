package papi

import (
	"errors"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/yairfalse/perfio/internal/config"
	"github.com/yairfalse/perfio/internal/counter"
	"github.com/yairfalse/perfio/internal/counter/countertest"
	"github.com/yairfalse/perfio/pkg/domain"
)

var knownEvents = []string{"cycles", "instructions", "cache-misses", "branches"}

func newFake(sockets, coresPerSocket int) *countertest.Library {
	return countertest.NewLibrary(countertest.Machine(sockets, coresPerSocket), knownEvents...)
}

// newGroup builds an adapter over a fresh fake and closes it with the test
func newGroup(t *testing.T, lib *countertest.Library, events ...string) *IOGroup {
	t.Helper()
	g, err := New(lib, WithEvents(events), WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)
	require.NotNil(t, g)
	t.Cleanup(func() { _ = g.Close() })
	return g
}

func requireFatal(t *testing.T, err error) *domain.FatalError {
	t.Helper()
	require.Error(t, err)
	var fe *domain.FatalError
	require.True(t, errors.As(err, &fe), "expected FatalError, got %T: %v", err, err)
	return fe
}

func TestNewStartsOneEventSetPerCore(t *testing.T) {
	lib := newFake(2, 2)
	g := newGroup(t, lib, "cycles", "instructions")

	assert.Equal(t, 4, g.NumCores())
	assert.Equal(t, 1, lib.InitCalls)
	assert.True(t, lib.Multiplex)
	assert.Equal(t, counter.GranularitySystem, lib.Granularity)
	require.Equal(t, 4, lib.EventSets())

	for core := 0; core < 4; core++ {
		state, ok := lib.EventSet(counter.EventSet(core))
		require.True(t, ok)
		assert.Equal(t, core, state.CPU, "core %d binds logical CPU %d", core, core)
		assert.Equal(t, 0, state.Component)
		assert.True(t, state.Multiplexed)
		assert.True(t, state.Started)
		assert.Equal(t, []counter.Code{1, 2}, state.Codes)
	}
}

func TestNewWithoutEvents(t *testing.T) {
	lib := newFake(1, 4)
	g := newGroup(t, lib)

	assert.Empty(t, g.SignalNames())
	assert.Equal(t, 4, g.NumCores())
	assert.NoError(t, g.ReadBatch())

	_, err := g.Sample(0)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestNewReadsEventsFromEnv(t *testing.T) {
	t.Setenv(config.EventsEnv, "  instructions\tcycles ")
	lib := newFake(1, 2)

	g, err := New(lib, WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)
	defer g.Close()

	assert.Equal(t, []string{"instructions", "cycles"}, g.Events())
	idx, err := g.PushSignal("cycles", domain.DomainCore, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, idx, "signal index follows the env order")
}

func TestNewFailures(t *testing.T) {
	boom := counter.Errorf(counter.StatusNoSupport)

	tests := []struct {
		name       string
		failCall   string
		failAfter  int
		events     []string
		wantCall   string
		wantStatus int
		wantClosed int
	}{
		{name: "library init", failCall: "Init", wantCall: "PAPI_library_init", wantStatus: counter.StatusNoSupport},
		{name: "multiplex init", failCall: "MultiplexInit", wantCall: "PAPI_multiplex_init", wantStatus: counter.StatusNoSupport},
		{name: "granularity", failCall: "SetGranularity", wantCall: "PAPI_set_granularity(PAPI_GRN_SYS)", wantStatus: counter.StatusNoSupport},
		{name: "hardware info", failCall: "HardwareInfo", wantCall: "PAPI_get_hardware_info", wantStatus: counter.StatusNoSupport},
		{name: "create second event set", failCall: "CreateEventSet", failAfter: 1, wantCall: "PAPI_create_eventset", wantStatus: counter.StatusNoSupport, wantClosed: 1},
		{name: "assign component", failCall: "AssignComponent", wantCall: "PAPI_assign_eventset_component", wantStatus: counter.StatusNoSupport, wantClosed: 1},
		{name: "attach cpu", failCall: "AttachCPU", failAfter: 1, wantCall: "PAPI_set_opt(PAPI_CPU_ATTACH)", wantStatus: counter.StatusNoSupport, wantClosed: 2},
		{name: "set multiplex", failCall: "SetMultiplex", wantCall: "PAPI_set_multiplex", wantStatus: counter.StatusNoSupport, wantClosed: 1},
		{name: "add event", failCall: "AddEvent", failAfter: 1, events: []string{"cycles", "instructions"}, wantCall: `PAPI_add_event("instructions")`, wantStatus: counter.StatusNoSupport, wantClosed: 1},
		{name: "start last core", failCall: "Start", failAfter: 1, wantCall: "PAPI_start CPU 1", wantStatus: counter.StatusNoSupport, wantClosed: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lib := newFake(1, 2)
			lib.FailOn(tt.failCall, tt.failAfter, boom)
			events := tt.events
			if events == nil {
				events = []string{"cycles"}
			}

			g, err := New(lib, WithEvents(events), WithLogger(zaptest.NewLogger(t)))
			assert.Nil(t, g)
			fe := requireFatal(t, err)
			assert.Equal(t, tt.wantCall, fe.Call)
			assert.Equal(t, tt.wantStatus, fe.Status)
			assert.Equal(t, "iogroup.go", fe.File)
			assert.Positive(t, fe.Line)
			assert.Contains(t, err.Error(), tt.wantCall)

			assert.Equal(t, tt.wantClosed, lib.Calls("Close"), "every created event set is closed")
			for es := 0; es < lib.EventSets(); es++ {
				state, _ := lib.EventSet(counter.EventSet(es))
				assert.True(t, state.Closed, "event set %d", es)
			}

			// The library is free again
			require.True(t, bind(lib))
			unbind(lib)
		})
	}
}

func TestNewUnknownEvent(t *testing.T) {
	lib := newFake(1, 2)
	_, err := New(lib, WithEvents([]string{"cycles", "bogus"}))

	fe := requireFatal(t, err)
	assert.Equal(t, `PAPI_event_name_to_code("bogus")`, fe.Call)
	assert.Equal(t, counter.StatusNoEvent, fe.Status)
	assert.Contains(t, err.Error(), "Event does not exist")
}

func TestNewDuplicateEvent(t *testing.T) {
	lib := newFake(1, 1)
	_, err := New(lib, WithEvents([]string{"cycles", "instructions", "cycles"}))

	fe := requireFatal(t, err)
	assert.Equal(t, `PAPI_add_event("cycles")`, fe.Call)
	assert.Equal(t, counter.StatusConflict, fe.Status)
}

func TestNewSystemError(t *testing.T) {
	lib := newFake(1, 2)
	lib.FailOn("Start", 0, counter.SystemError(syscall.EACCES))

	_, err := New(lib, WithEvents([]string{"cycles"}))
	fe := requireFatal(t, err)
	assert.Equal(t, counter.StatusSystem, fe.Status)
	assert.Equal(t, syscall.EACCES, fe.Errno)
	assert.ErrorIs(t, err, syscall.EACCES)
	assert.Contains(t, err.Error(), "System error in PAPI_start CPU 0")
	assert.True(t, domain.IsFatal(err))
}

// staleLibrary reports an older library version from Init
type staleLibrary struct {
	*countertest.Library
}

func (l staleLibrary) Init(version int) (int, error) {
	return 0x06000000, nil
}

func TestNewVersionMismatch(t *testing.T) {
	lib := staleLibrary{newFake(1, 1)}
	_, err := New(lib, WithEvents([]string{"cycles"}))

	fe := requireFatal(t, err)
	assert.Equal(t, "PAPI_library_init", fe.Call)
	assert.Equal(t, 0x06000000, fe.Status)
	assert.Contains(t, err.Error(), "Error calculating: PAPI_library_init")
}

func TestNewAlreadyBound(t *testing.T) {
	lib := newFake(1, 2)
	first, err := New(lib, WithEvents([]string{"cycles"}))
	require.NoError(t, err)

	_, err = New(lib, WithEvents([]string{"cycles"}))
	fe := requireFatal(t, err)
	assert.Equal(t, counter.StatusConflict, fe.Status)
	assert.Equal(t, 2, lib.EventSets(), "second adapter created no event sets")

	require.NoError(t, first.Close())
	second, err := New(lib, WithEvents([]string{"cycles"}))
	require.NoError(t, err, "closing the first adapter releases the library")
	require.NoError(t, second.Close())
}

func TestClose(t *testing.T) {
	lib := newFake(1, 3)
	g, err := New(lib, WithEvents([]string{"cycles"}))
	require.NoError(t, err)

	require.NoError(t, g.Close())
	require.NoError(t, g.Close())
	assert.Equal(t, 3, lib.Calls("Close"), "second Close is a no-op")
	for es := 0; es < 3; es++ {
		state, _ := lib.EventSet(counter.EventSet(es))
		assert.True(t, state.Closed)
	}
}
