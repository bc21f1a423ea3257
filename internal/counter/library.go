// Package counter defines the hardware counter subsystem an IOGroup drives.
//
// The primitives mirror the PAPI low-level API: one process-wide library
// initialization, event sets created and configured one at a time, then
// started and read. Implementations live in sub-packages; perf provides the
// Linux backend and countertest a deterministic fake.
package counter

// Version is the library interface version Init expects back
const Version = 0x07000000

// EventSet is an opaque handle to a group of counters sampled together
type EventSet int

// Null is the handle value of an event set that was never created
const Null EventSet = -1

// Code identifies a native event after name resolution
type Code uint64

// Granularity selects the scope events are counted in
type Granularity int

const (
	// GranularityThread counts only the calling thread
	GranularityThread Granularity = 1
	// GranularityProcess counts the calling process
	GranularityProcess Granularity = 2
	// GranularitySystem counts everything that runs on the attached CPU
	GranularitySystem Granularity = 8
)

// HardwareInfo describes the machine the library counts on
type HardwareInfo struct {
	Sockets        int
	CoresPerSocket int
	CPUs           int
	Vendor         string
	Model          string
}

// Cores returns the total number of physical cores
func (h HardwareInfo) Cores() int {
	return h.Sockets * h.CoresPerSocket
}

// Library is the set of subsystem primitives an IOGroup needs.
// Every method returns nil or a *StatusError.
type Library interface {
	// Init initializes the library once per process. Later calls are no-ops
	// and return the same version.
	Init(version int) (int, error)
	MultiplexInit() error
	SetGranularity(g Granularity) error
	HardwareInfo() (HardwareInfo, error)

	CreateEventSet() (EventSet, error)
	AssignComponent(es EventSet, component int) error
	AttachCPU(es EventSet, cpu int) error
	SetMultiplex(es EventSet) error
	EventNameToCode(name string) (Code, error)
	AddEvent(es EventSet, code Code) error
	Start(es EventSet) error
	// Read fills values with one entry per added event, in add order
	Read(es EventSet, values []int64) error
	// Close stops and releases an event set
	Close(es EventSet) error

	StrError(status int) string
}
