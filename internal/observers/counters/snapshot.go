package counters

import (
	"time"

	"github.com/yairfalse/perfio/internal/iogroup"
	"github.com/yairfalse/perfio/pkg/domain"
)

// Snapshot holds the values sampled by one batch read
type Snapshot struct {
	Timestamp time.Time      `json:"timestamp"`
	Signals   []SignalValues `json:"signals"`
}

// SignalValues is one signal across every domain instance
type SignalValues struct {
	Name   string            `json:"name"`
	Domain domain.DomainType `json:"domain"`
	// Values[i] is the sample for domain index i
	Values []float64 `json:"values"`
	// Total combines Values with the signal's aggregation function
	Total float64 `json:"total"`

	Format iogroup.FormatFunc `json:"-"`
}

// Signal looks up one signal by name
func (s Snapshot) Signal(name string) (SignalValues, bool) {
	for _, sv := range s.Signals {
		if sv.Name == name {
			return sv, true
		}
	}
	return SignalValues{}, false
}

// IsZero reports whether no read has completed yet
func (s Snapshot) IsZero() bool {
	return s.Timestamp.IsZero()
}

func (s Snapshot) clone() Snapshot {
	out := Snapshot{
		Timestamp: s.Timestamp,
		Signals:   make([]SignalValues, len(s.Signals)),
	}
	for i, sv := range s.Signals {
		sv.Values = append([]float64(nil), sv.Values...)
		out.Signals[i] = sv
	}
	return out
}
