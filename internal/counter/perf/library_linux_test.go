//go:build linux

package perf

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yairfalse/perfio/internal/counter"
	"golang.org/x/sys/unix"
)

func TestLookupEvent(t *testing.T) {
	tests := []struct {
		name   string
		want   eventDef
		wantOK bool
	}{
		{"cycles", eventDef{unix.PERF_TYPE_HARDWARE, unix.PERF_COUNT_HW_CPU_CYCLES}, true},
		{"instructions", eventDef{unix.PERF_TYPE_HARDWARE, unix.PERF_COUNT_HW_INSTRUCTIONS}, true},
		{"PAPI_TOT_CYC", eventDef{unix.PERF_TYPE_HARDWARE, unix.PERF_COUNT_HW_CPU_CYCLES}, true},
		{"PAPI_L3_TCM", eventDef{unix.PERF_TYPE_HARDWARE, unix.PERF_COUNT_HW_CACHE_MISSES}, true},
		{"context-switches", eventDef{unix.PERF_TYPE_SOFTWARE, unix.PERF_COUNT_SW_CONTEXT_SWITCHES}, true},
		{"L1-dcache-load-misses", eventDef{unix.PERF_TYPE_HW_CACHE, 0 | 0<<8 | 1<<16}, true},
		{"r01c2", eventDef{unix.PERF_TYPE_RAW, 0x01c2}, true},
		{"r0x3c", eventDef{unix.PERF_TYPE_RAW, 0x3c}, true},
		{"rzz", eventDef{}, false},
		{"r", eventDef{}, false},
		{"not-an-event", eventDef{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := lookupEvent(tt.name)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestEncodeDecode(t *testing.T) {
	for _, name := range EventNames() {
		def, ok := lookupEvent(name)
		require.True(t, ok, name)
		assert.Equal(t, def, decode(encode(def)), name)
	}
}

func TestEventNameToCodeUnknown(t *testing.T) {
	_, err := New("").EventNameToCode("bogus-event")
	status, _ := counter.StatusOf(err)
	assert.Equal(t, counter.StatusNoEvent, status)
}

func TestScale(t *testing.T) {
	assert.Equal(t, int64(0), scale(100, 100, 0))
	assert.Equal(t, int64(100), scale(100, 50, 50))
	assert.Equal(t, int64(100), scale(100, 40, 50))
	assert.Equal(t, int64(400), scale(100, 100, 25))
	assert.Equal(t, int64(math.MaxInt64), scale(math.MaxUint64, 10, 1))
}

func TestStatusFromErrno(t *testing.T) {
	tests := []struct {
		errno unix.Errno
		want  int
	}{
		{unix.EACCES, counter.StatusPermission},
		{unix.EPERM, counter.StatusPermission},
		{unix.ENOENT, counter.StatusNoSupport},
		{unix.EOPNOTSUPP, counter.StatusNoSupport},
		{unix.EBUSY, counter.StatusConflict},
		{unix.EINVAL, counter.StatusInvalid},
		{unix.ENOMEM, counter.StatusNoMemory},
		{unix.EMFILE, counter.StatusSystem},
	}

	for _, tt := range tests {
		t.Run(tt.errno.Error(), func(t *testing.T) {
			status, errno := counter.StatusOf(statusFromErrno(tt.errno))
			assert.Equal(t, tt.want, status)
			if tt.want == counter.StatusSystem {
				assert.Equal(t, tt.errno, errno)
			}
		})
	}
}

func TestEventSetStateMachine(t *testing.T) {
	l := New("")

	_, err := l.CreateEventSet()
	status, _ := counter.StatusOf(err)
	assert.Equal(t, counter.StatusNoInit, status, "event sets need Init first")

	_, err = l.Init(counter.Version + 1)
	status, _ = counter.StatusOf(err)
	assert.Equal(t, counter.StatusInvalid, status)

	// Skip the /proc probe so the test does not depend on the host kernel
	l.inited = true
	l.version = counter.Version

	v, err := l.Init(counter.Version)
	require.NoError(t, err)
	assert.Equal(t, counter.Version, v)

	es, err := l.CreateEventSet()
	require.NoError(t, err)

	assert.Error(t, l.SetMultiplex(es), "multiplex needs MultiplexInit")
	require.NoError(t, l.MultiplexInit())
	require.NoError(t, l.SetMultiplex(es))

	require.NoError(t, l.AssignComponent(es, 0))
	assert.Error(t, l.AssignComponent(es, 1))
	assert.Error(t, l.AttachCPU(es, -1))
	require.NoError(t, l.AttachCPU(es, 0))

	code, err := l.EventNameToCode("cycles")
	require.NoError(t, err)
	require.NoError(t, l.AddEvent(es, code))
	err = l.AddEvent(es, code)
	status, _ = counter.StatusOf(err)
	assert.Equal(t, counter.StatusConflict, status)

	err = l.Read(es, make([]int64, 1))
	status, _ = counter.StatusOf(err)
	assert.Equal(t, counter.StatusNotRunning, status)

	assert.Error(t, l.SetGranularity(counter.Granularity(3)))
	require.NoError(t, l.SetGranularity(counter.GranularitySystem))

	require.NoError(t, l.Close(es))
	err = l.Close(es)
	status, _ = counter.StatusOf(err)
	assert.Equal(t, counter.StatusNoEventSet, status)
}
