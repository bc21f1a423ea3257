package domain

import (
	"fmt"
	"strings"
)

// DomainType identifies the granularity a signal is scoped to
type DomainType int

const (
	DomainInvalid DomainType = -1
	DomainBoard   DomainType = 0
	DomainPackage DomainType = 1
	DomainCore    DomainType = 2
	DomainCPU     DomainType = 3
)

var domainNames = map[DomainType]string{
	DomainInvalid: "invalid",
	DomainBoard:   "board",
	DomainPackage: "package",
	DomainCore:    "core",
	DomainCPU:     "cpu",
}

// String returns the lower-case name of the domain type
func (d DomainType) String() string {
	if name, ok := domainNames[d]; ok {
		return name
	}
	return fmt.Sprintf("domain(%d)", int(d))
}

// IsValid returns true for every domain type other than DomainInvalid
func (d DomainType) IsValid() bool {
	_, ok := domainNames[d]
	return ok && d != DomainInvalid
}

// ParseDomainType converts a domain name such as "core" into a DomainType
func ParseDomainType(name string) (DomainType, error) {
	wanted := strings.ToLower(strings.TrimSpace(name))
	for d, n := range domainNames {
		if d != DomainInvalid && n == wanted {
			return d, nil
		}
	}
	return DomainInvalid, fmt.Errorf("unknown domain type: %q", name)
}
