package papi

import (
	"sort"

	"github.com/yairfalse/perfio/internal/iogroup"
	"github.com/yairfalse/perfio/pkg/domain"
)

const signalDescription = "Hardware performance counter. " +
	"See papi_avail, papi_native_avail or perf list for the events available on this machine"

// SignalNames returns every configured event, sorted
func (g *IOGroup) SignalNames() []string {
	names := make([]string, 0, len(g.offsets))
	for name := range g.offsets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsValidSignal reports whether name is a configured event
func (g *IOGroup) IsValidSignal(name string) bool {
	_, ok := g.offsets[name]
	return ok
}

// SignalDomainType is DomainCore for every signal, DomainInvalid otherwise
func (g *IOGroup) SignalDomainType(name string) domain.DomainType {
	if g.IsValidSignal(name) {
		return domain.DomainCore
	}
	return domain.DomainInvalid
}

// AggFunction sums per-core values
func (g *IOGroup) AggFunction(name string) (iogroup.AggFunc, error) {
	if !g.IsValidSignal(name) {
		return nil, g.invalidSignal("AggFunction", name)
	}
	return iogroup.Sum, nil
}

// FormatFunction prints whole event counts
func (g *IOGroup) FormatFunction(name string) (iogroup.FormatFunc, error) {
	if !g.IsValidSignal(name) {
		return nil, g.invalidSignal("FormatFunction", name)
	}
	return iogroup.FormatInteger, nil
}

func (g *IOGroup) SignalDescription(name string) (string, error) {
	if !g.IsValidSignal(name) {
		return "", g.invalidSignal("SignalDescription", name)
	}
	return signalDescription, nil
}

func (g *IOGroup) invalidSignal(method, name string) error {
	return domain.NewInvalidArgument(domain.ErrInvalidSignal,
		"%s.%s(): %s not valid for %s", component, method, name, component)
}

// checkSignal validates a (name, domain, index) triple and returns the
// signal offset within a core
func (g *IOGroup) checkSignal(method, name string, domainType domain.DomainType, domainIdx int) (int, error) {
	offset, ok := g.offsets[name]
	if !ok {
		return 0, g.invalidSignal(method, name)
	}
	if domainType != domain.DomainCore {
		return 0, domain.NewInvalidArgument(domain.ErrInvalidDomain,
			"%s.%s(): domain_type %s not valid for %s", component, method, domainType, component)
	}
	if domainIdx < 0 || domainIdx >= len(g.cores) {
		return 0, domain.NewInvalidArgument(domain.ErrInvalidDomain,
			"%s.%s(): domain_idx %d out of range [0, %d)", component, method, domainIdx, len(g.cores))
	}
	return offset, nil
}
