package papi

import (
	"github.com/yairfalse/perfio/pkg/domain"
)

// Counters are read-only. Every control call is rejected except
// SaveControl and RestoreControl, which have nothing to do.

func (g *IOGroup) ControlNames() []string {
	return []string{}
}

func (g *IOGroup) IsValidControl(name string) bool {
	return false
}

func (g *IOGroup) ControlDomainType(name string) domain.DomainType {
	return domain.DomainInvalid
}

func (g *IOGroup) PushControl(name string, domainType domain.DomainType, domainIdx int) (int, error) {
	return 0, noControls("PushControl")
}

// WriteBatch succeeds; there is never anything to write
func (g *IOGroup) WriteBatch() error {
	return nil
}

func (g *IOGroup) Adjust(batchIdx int, setting float64) error {
	return noControls("Adjust")
}

func (g *IOGroup) WriteControl(name string, domainType domain.DomainType, domainIdx int, setting float64) error {
	return noControls("WriteControl")
}

func (g *IOGroup) SaveControl() error {
	return nil
}

func (g *IOGroup) RestoreControl() error {
	return nil
}

func (g *IOGroup) ControlDescription(name string) (string, error) {
	return "", noControls("ControlDescription")
}

func noControls(method string) error {
	return domain.NewInvalidArgument(domain.ErrNoControls,
		"%s.%s(): %s has no controls", component, method, component)
}
