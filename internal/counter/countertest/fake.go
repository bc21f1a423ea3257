// Package countertest provides an in-memory counter.Library for tests.
package countertest

import (
	"sync"

	"github.com/yairfalse/perfio/internal/counter"
)

// EventSetState is a snapshot of one fake event set
type EventSetState struct {
	CPU         int
	Component   int
	Multiplexed bool
	Codes       []counter.Code
	Started     bool
	Closed      bool
	Reads       int
}

type failure struct {
	after int
	err   error
}

// Library is a deterministic fake counter library.
//
// Counter values grow on every Read of an event set:
// value = reads * (cpu+1) * (code+1), so they are monotonic per
// (cpu, event) and distinct across both.
type Library struct {
	mu sync.Mutex

	info   counter.HardwareInfo
	codes  map[string]counter.Code
	sets   []*EventSetState
	calls  map[string]int
	fails  map[string]failure
	inited bool

	InitCalls   int
	Multiplex   bool
	Granularity counter.Granularity
}

// NewLibrary returns a fake for a machine described by info that knows the
// given event names. Codes are assigned in argument order starting at 1.
func NewLibrary(info counter.HardwareInfo, events ...string) *Library {
	l := &Library{
		info:  info,
		codes: make(map[string]counter.Code, len(events)),
		calls: make(map[string]int),
		fails: make(map[string]failure),
	}
	for i, name := range events {
		l.codes[name] = counter.Code(i + 1)
	}
	return l
}

// Machine is a shorthand for a HardwareInfo with the given shape
func Machine(sockets, coresPerSocket int) counter.HardwareInfo {
	return counter.HardwareInfo{
		Sockets:        sockets,
		CoresPerSocket: coresPerSocket,
		CPUs:           sockets * coresPerSocket,
		Vendor:         "fake",
		Model:          "countertest",
	}
}

// FailOn makes the given primitive fail with err starting from its
// (after+1)-th invocation. after=0 fails the first call.
func (l *Library) FailOn(call string, after int, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.fails[call] = failure{after: after, err: err}
}

// Calls returns how many times a primitive has been invoked
func (l *Library) Calls(call string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls[call]
}

// EventSet returns a copy of the state of es
func (l *Library) EventSet(es counter.EventSet) (EventSetState, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, err := l.lookup(es)
	if err != nil {
		return EventSetState{}, false
	}
	out := *s
	out.Codes = append([]counter.Code(nil), s.Codes...)
	return out, true
}

// EventSets returns the number of event sets ever created
func (l *Library) EventSets() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.sets)
}

// check counts the call and returns the injected failure, if due
func (l *Library) check(call string) error {
	n := l.calls[call]
	l.calls[call] = n + 1
	if f, ok := l.fails[call]; ok && n >= f.after {
		return f.err
	}
	return nil
}

func (l *Library) lookup(es counter.EventSet) (*EventSetState, error) {
	if es < 0 || int(es) >= len(l.sets) {
		return nil, counter.Errorf(counter.StatusNoEventSet)
	}
	return l.sets[es], nil
}

func (l *Library) Init(version int) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.check("Init"); err != nil {
		return 0, err
	}
	l.InitCalls++
	l.inited = true
	return version, nil
}

func (l *Library) MultiplexInit() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.check("MultiplexInit"); err != nil {
		return err
	}
	l.Multiplex = true
	return nil
}

func (l *Library) SetGranularity(g counter.Granularity) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.check("SetGranularity"); err != nil {
		return err
	}
	l.Granularity = g
	return nil
}

func (l *Library) HardwareInfo() (counter.HardwareInfo, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.check("HardwareInfo"); err != nil {
		return counter.HardwareInfo{}, err
	}
	return l.info, nil
}

func (l *Library) CreateEventSet() (counter.EventSet, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.check("CreateEventSet"); err != nil {
		return counter.Null, err
	}
	if !l.inited {
		return counter.Null, counter.Errorf(counter.StatusNoInit)
	}
	l.sets = append(l.sets, &EventSetState{CPU: -1})
	return counter.EventSet(len(l.sets) - 1), nil
}

func (l *Library) AssignComponent(es counter.EventSet, component int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.check("AssignComponent"); err != nil {
		return err
	}
	s, err := l.lookup(es)
	if err != nil {
		return err
	}
	s.Component = component
	return nil
}

func (l *Library) AttachCPU(es counter.EventSet, cpu int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.check("AttachCPU"); err != nil {
		return err
	}
	s, err := l.lookup(es)
	if err != nil {
		return err
	}
	if cpu < 0 || cpu >= l.info.Cores() {
		return counter.Errorf(counter.StatusInvalid)
	}
	s.CPU = cpu
	return nil
}

func (l *Library) SetMultiplex(es counter.EventSet) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.check("SetMultiplex"); err != nil {
		return err
	}
	s, err := l.lookup(es)
	if err != nil {
		return err
	}
	s.Multiplexed = true
	return nil
}

func (l *Library) EventNameToCode(name string) (counter.Code, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.check("EventNameToCode"); err != nil {
		return 0, err
	}
	code, ok := l.codes[name]
	if !ok {
		return 0, counter.Errorf(counter.StatusNoEvent)
	}
	return code, nil
}

func (l *Library) AddEvent(es counter.EventSet, code counter.Code) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.check("AddEvent"); err != nil {
		return err
	}
	s, err := l.lookup(es)
	if err != nil {
		return err
	}
	if s.Started {
		return counter.Errorf(counter.StatusIsRunning)
	}
	s.Codes = append(s.Codes, code)
	return nil
}

func (l *Library) Start(es counter.EventSet) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.check("Start"); err != nil {
		return err
	}
	s, err := l.lookup(es)
	if err != nil {
		return err
	}
	if s.Started {
		return counter.Errorf(counter.StatusIsRunning)
	}
	s.Started = true
	return nil
}

func (l *Library) Read(es counter.EventSet, values []int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.check("Read"); err != nil {
		return err
	}
	s, err := l.lookup(es)
	if err != nil {
		return err
	}
	if !s.Started || s.Closed {
		return counter.Errorf(counter.StatusNotRunning)
	}
	if len(values) < len(s.Codes) {
		return counter.Errorf(counter.StatusInvalid)
	}
	s.Reads++
	for i, code := range s.Codes {
		values[i] = Value(s.Reads, s.CPU, code)
	}
	return nil
}

func (l *Library) Close(es counter.EventSet) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.check("Close"); err != nil {
		return err
	}
	s, err := l.lookup(es)
	if err != nil {
		return err
	}
	s.Closed = true
	s.Started = false
	return nil
}

func (l *Library) StrError(status int) string {
	return counter.StatusText(status)
}

// Value is the count the fake reports on the given read of (cpu, code)
func Value(reads, cpu int, code counter.Code) int64 {
	return int64(reads) * int64(cpu+1) * int64(code+1)
}

var _ counter.Library = (*Library)(nil)
