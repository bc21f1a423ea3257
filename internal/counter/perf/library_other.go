//go:build !linux

package perf

import (
	"github.com/yairfalse/perfio/internal/counter"
)

// Library reports StatusNoSupport for every call outside Linux
type Library struct{}

// New returns the unsupported-platform library
func New(sysfsRoot string) *Library {
	return &Library{}
}

func unsupported() error {
	return counter.Errorf(counter.StatusNoSupport)
}

func (l *Library) Init(version int) (int, error)              { return 0, unsupported() }
func (l *Library) MultiplexInit() error                       { return unsupported() }
func (l *Library) SetGranularity(g counter.Granularity) error { return unsupported() }
func (l *Library) HardwareInfo() (counter.HardwareInfo, error) {
	return counter.HardwareInfo{}, unsupported()
}
func (l *Library) CreateEventSet() (counter.EventSet, error) { return counter.Null, unsupported() }
func (l *Library) AssignComponent(es counter.EventSet, component int) error {
	return unsupported()
}
func (l *Library) AttachCPU(es counter.EventSet, cpu int) error { return unsupported() }
func (l *Library) SetMultiplex(es counter.EventSet) error       { return unsupported() }
func (l *Library) EventNameToCode(name string) (counter.Code, error) {
	return 0, unsupported()
}
func (l *Library) AddEvent(es counter.EventSet, code counter.Code) error { return unsupported() }
func (l *Library) Start(es counter.EventSet) error                       { return unsupported() }
func (l *Library) Read(es counter.EventSet, values []int64) error        { return unsupported() }
func (l *Library) Close(es counter.EventSet) error                       { return unsupported() }
func (l *Library) StrError(status int) string                            { return counter.StatusText(status) }

// EventNames is empty outside Linux
func EventNames() []string {
	return nil
}

var _ counter.Library = (*Library)(nil)
