// Package perf implements counter.Library over the Linux perf_event_open(2)
// interface.
//
// Every event added to an event set becomes one perf file descriptor opened
// when the set is started. Events are opened individually rather than as a
// perf group so the kernel can multiplex them independently; reads scale each
// value by time_enabled/time_running.
//
// Event names follow `perf list` (cycles, instructions, L1-dcache-load-misses,
// ...), accept the common PAPI presets (PAPI_TOT_CYC, PAPI_L3_TCM, ...) and
// raw codes written as rNNNN.
package perf

import (
	"sync"

	"github.com/yairfalse/perfio/internal/counter"
)

var (
	defaultOnce sync.Once
	defaultLib  *Library
)

// Default returns the process-wide library bound to the host sysfs
func Default() counter.Library {
	defaultOnce.Do(func() {
		defaultLib = New("")
	})
	return defaultLib
}
