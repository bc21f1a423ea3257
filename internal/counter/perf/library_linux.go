//go:build linux

package perf

import (
	"encoding/binary"
	"errors"
	"math"
	"sync"
	"unsafe"

	"github.com/yairfalse/perfio/internal/counter"
	"github.com/yairfalse/perfio/internal/topology"
	"golang.org/x/sys/unix"
)

const paranoidPath = "/proc/sys/kernel/perf_event_paranoid"

// value, time_enabled, time_running
const readSize = 3 * 8

type eventSet struct {
	cpu         int
	component   int
	multiplexed bool
	codes       []counter.Code
	fds         []int
	started     bool
	buf         [readSize]byte
}

// Library is the perf_event backed counter library
type Library struct {
	mu sync.Mutex

	sysfsRoot   string
	inited      bool
	version     int
	multiplex   bool
	granularity counter.Granularity
	sets        []*eventSet
}

// New creates a library that reads topology from sysfsRoot ("" for /sys)
func New(sysfsRoot string) *Library {
	return &Library{
		sysfsRoot:   sysfsRoot,
		granularity: counter.GranularityThread,
	}
}

func (l *Library) Init(version int) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.inited {
		return l.version, nil
	}
	if version != counter.Version {
		return 0, counter.Errorf(counter.StatusInvalid)
	}
	if err := unix.Access(paranoidPath, unix.R_OK); err != nil {
		if errors.Is(err, unix.ENOENT) {
			return 0, counter.Errorf(counter.StatusNoSupport)
		}
		return 0, statusFromErrno(err)
	}
	l.inited = true
	l.version = version
	return version, nil
}

func (l *Library) MultiplexInit() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.inited {
		return counter.Errorf(counter.StatusNoInit)
	}
	// The kernel multiplexes on its own; this only unlocks SetMultiplex
	l.multiplex = true
	return nil
}

func (l *Library) SetGranularity(g counter.Granularity) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.inited {
		return counter.Errorf(counter.StatusNoInit)
	}
	switch g {
	case counter.GranularityThread, counter.GranularityProcess, counter.GranularitySystem:
		l.granularity = g
		return nil
	default:
		return counter.Errorf(counter.StatusInvalid)
	}
}

func (l *Library) HardwareInfo() (counter.HardwareInfo, error) {
	t := topology.Discover(l.sysfsRoot)
	if t.Cores() <= 0 {
		return counter.HardwareInfo{}, counter.Errorf(counter.StatusBug)
	}
	return counter.HardwareInfo{
		Sockets:        t.Sockets,
		CoresPerSocket: t.CoresPerSocket,
		CPUs:           t.CPUs,
		Vendor:         "linux",
		Model:          "perf_event",
	}, nil
}

func (l *Library) CreateEventSet() (counter.EventSet, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.inited {
		return counter.Null, counter.Errorf(counter.StatusNoInit)
	}
	l.sets = append(l.sets, &eventSet{cpu: -1})
	return counter.EventSet(len(l.sets) - 1), nil
}

func (l *Library) lookup(es counter.EventSet) (*eventSet, error) {
	if es < 0 || int(es) >= len(l.sets) || l.sets[es] == nil {
		return nil, counter.Errorf(counter.StatusNoEventSet)
	}
	return l.sets[es], nil
}

func (l *Library) AssignComponent(es counter.EventSet, component int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, err := l.lookup(es)
	if err != nil {
		return err
	}
	// Component 0 is the CPU; perf exposes no other component here
	if component != 0 {
		return counter.Errorf(counter.StatusNoSupport)
	}
	s.component = component
	return nil
}

func (l *Library) AttachCPU(es counter.EventSet, cpu int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, err := l.lookup(es)
	if err != nil {
		return err
	}
	if s.started {
		return counter.Errorf(counter.StatusIsRunning)
	}
	if cpu < 0 {
		return counter.Errorf(counter.StatusInvalid)
	}
	s.cpu = cpu
	return nil
}

func (l *Library) SetMultiplex(es counter.EventSet) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, err := l.lookup(es)
	if err != nil {
		return err
	}
	if !l.multiplex {
		return counter.Errorf(counter.StatusNoSupport)
	}
	s.multiplexed = true
	return nil
}

func (l *Library) EventNameToCode(name string) (counter.Code, error) {
	def, ok := lookupEvent(name)
	if !ok {
		return 0, counter.Errorf(counter.StatusNoEvent)
	}
	return encode(def), nil
}

func (l *Library) AddEvent(es counter.EventSet, code counter.Code) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, err := l.lookup(es)
	if err != nil {
		return err
	}
	if s.started {
		return counter.Errorf(counter.StatusIsRunning)
	}
	for _, c := range s.codes {
		if c == code {
			return counter.Errorf(counter.StatusConflict)
		}
	}
	s.codes = append(s.codes, code)
	return nil
}

// Start opens one fd per event, then resets and enables all of them
func (l *Library) Start(es counter.EventSet) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, err := l.lookup(es)
	if err != nil {
		return err
	}
	if s.started {
		return counter.Errorf(counter.StatusIsRunning)
	}

	pid := 0
	if l.granularity == counter.GranularitySystem {
		if s.cpu < 0 {
			return counter.Errorf(counter.StatusInvalid)
		}
		pid = -1
	}

	fds := make([]int, 0, len(s.codes))
	for _, code := range s.codes {
		fd, err := l.open(decode(code), pid, s.cpu)
		if err != nil {
			closeAll(fds)
			return err
		}
		fds = append(fds, fd)
	}

	for _, fd := range fds {
		if err := unix.IoctlSetInt(fd, unix.PERF_EVENT_IOC_RESET, 0); err != nil {
			closeAll(fds)
			return statusFromErrno(err)
		}
		if err := unix.IoctlSetInt(fd, unix.PERF_EVENT_IOC_ENABLE, 0); err != nil {
			closeAll(fds)
			return statusFromErrno(err)
		}
	}

	s.fds = fds
	s.started = true
	return nil
}

func (l *Library) open(def eventDef, pid, cpu int) (int, error) {
	attr := unix.PerfEventAttr{
		Type:        def.typ,
		Config:      def.config,
		Size:        uint32(unsafe.Sizeof(unix.PerfEventAttr{})),
		Read_format: unix.PERF_FORMAT_TOTAL_TIME_ENABLED | unix.PERF_FORMAT_TOTAL_TIME_RUNNING,
		Bits:        unix.PerfBitDisabled,
	}
	if l.granularity == counter.GranularityProcess {
		attr.Bits |= unix.PerfBitInherit
	}
	fd, err := unix.PerfEventOpen(&attr, pid, cpu, -1, unix.PERF_FLAG_FD_CLOEXEC)
	if err != nil {
		return -1, statusFromErrno(err)
	}
	return fd, nil
}

func (l *Library) Read(es counter.EventSet, values []int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, err := l.lookup(es)
	if err != nil {
		return err
	}
	if !s.started {
		return counter.Errorf(counter.StatusNotRunning)
	}
	if len(values) < len(s.fds) {
		return counter.Errorf(counter.StatusInvalid)
	}
	for i, fd := range s.fds {
		n, err := unix.Read(fd, s.buf[:])
		if err != nil {
			return statusFromErrno(err)
		}
		if n != readSize {
			return counter.Errorf(counter.StatusBug)
		}
		values[i] = scale(
			binary.NativeEndian.Uint64(s.buf[0:8]),
			binary.NativeEndian.Uint64(s.buf[8:16]),
			binary.NativeEndian.Uint64(s.buf[16:24]),
		)
	}
	return nil
}

// scale extrapolates a multiplexed count to the full enabled window
func scale(value, enabled, running uint64) int64 {
	if running == 0 {
		return 0
	}
	if running >= enabled {
		return clamp(float64(value))
	}
	return clamp(float64(value) * float64(enabled) / float64(running))
}

func clamp(v float64) int64 {
	if v >= math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(v)
}

func (l *Library) Close(es counter.EventSet) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, err := l.lookup(es)
	if err != nil {
		return err
	}
	for _, fd := range s.fds {
		unix.IoctlSetInt(fd, unix.PERF_EVENT_IOC_DISABLE, 0)
	}
	closeAll(s.fds)
	s.fds = nil
	s.started = false
	l.sets[es] = nil
	return nil
}

func (l *Library) StrError(status int) string {
	return counter.StatusText(status)
}

func closeAll(fds []int) {
	for _, fd := range fds {
		unix.Close(fd)
	}
}

func statusFromErrno(err error) error {
	var errno unix.Errno
	if !errors.As(err, &errno) {
		return counter.Errorf(counter.StatusBug)
	}
	switch errno {
	case unix.EACCES, unix.EPERM:
		return counter.Errorf(counter.StatusPermission)
	case unix.ENOENT, unix.EOPNOTSUPP, unix.ENODEV:
		return counter.Errorf(counter.StatusNoSupport)
	case unix.EBUSY:
		return counter.Errorf(counter.StatusConflict)
	case unix.EINVAL:
		return counter.Errorf(counter.StatusInvalid)
	case unix.ENOMEM:
		return counter.Errorf(counter.StatusNoMemory)
	default:
		return counter.SystemError(errno)
	}
}

var _ counter.Library = (*Library)(nil)
