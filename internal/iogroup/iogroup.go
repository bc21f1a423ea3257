// Package iogroup defines the contract between a monitoring host and the
// signal providers it loads, plus the registry the host loads them from.
package iogroup

import (
	"github.com/yairfalse/perfio/pkg/domain"
)

// AggFunc combines one signal's values across domain instances
type AggFunc func(values []float64) float64

// FormatFunc renders a signal value for display
type FormatFunc func(value float64) string

// IOGroup is a provider of signals and controls.
//
// Signals are read in two phases: PushSignal returns a batch index once,
// then every ReadBatch refreshes all pushed values and Sample returns one by
// index. ReadSignal is the one-shot path that bypasses the batch.
//
// Implementations are not safe for concurrent use.
type IOGroup interface {
	SignalNames() []string
	ControlNames() []string
	IsValidSignal(name string) bool
	IsValidControl(name string) bool
	SignalDomainType(name string) domain.DomainType
	ControlDomainType(name string) domain.DomainType

	PushSignal(name string, domainType domain.DomainType, domainIdx int) (int, error)
	PushControl(name string, domainType domain.DomainType, domainIdx int) (int, error)

	ReadBatch() error
	WriteBatch() error
	Sample(batchIdx int) (float64, error)
	Adjust(batchIdx int, setting float64) error

	ReadSignal(name string, domainType domain.DomainType, domainIdx int) (float64, error)
	WriteControl(name string, domainType domain.DomainType, domainIdx int, setting float64) error

	SaveControl() error
	RestoreControl() error

	AggFunction(name string) (AggFunc, error)
	FormatFunction(name string) (FormatFunc, error)
	SignalDescription(name string) (string, error)
	ControlDescription(name string) (string, error)
}

// Closer is implemented by IOGroups that hold OS resources
type Closer interface {
	Close() error
}

// DomainCounter is implemented by IOGroups that know how many instances of
// a domain type they serve
type DomainCounter interface {
	DomainCount(domainType domain.DomainType) int
}
