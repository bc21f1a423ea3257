package papi

import (
	"fmt"

	"github.com/yairfalse/perfio/pkg/domain"
)

// PushSignal registers interest in name on one core and returns its batch
// index, domainIdx*len(events)+offset. Pushing the same triple twice returns
// the same index.
func (g *IOGroup) PushSignal(name string, domainType domain.DomainType, domainIdx int) (int, error) {
	offset, err := g.checkSignal("PushSignal", name, domainType, domainIdx)
	if err != nil {
		return 0, err
	}
	// The sweep over cores always rewrites marks[domainIdx][offset]
	for range g.cores {
		g.marks[domainIdx][offset].doRead = true
	}
	return domainIdx*len(g.events) + offset, nil
}

// ReadBatch reads every event on every core into the sample buffer.
// Pushed or not, all counters are refreshed.
func (g *IOGroup) ReadBatch() error {
	n := len(g.events)
	for core := range g.cores {
		ctx := &g.cores[core]
		if err := g.lib.Read(ctx.eventSet, ctx.values); err != nil {
			return g.die(fmt.Sprintf("PAPI_read CPU %d", core), err)
		}
		row := g.batch[core*n : (core+1)*n]
		for i, v := range ctx.values {
			row[i] = float64(v)
		}
	}
	return nil
}

// Sample returns the value stored at batchIdx by the last ReadBatch, or 0
// before the first one
func (g *IOGroup) Sample(batchIdx int) (float64, error) {
	if batchIdx < 0 || batchIdx >= len(g.batch) {
		return 0, domain.NewInvalidArgument(domain.ErrInvalidArgument,
			"%s.Sample(): batch_idx %d not valid for %s", component, batchIdx, component)
	}
	return g.batch[batchIdx], nil
}

// ReadSignal reads one core's counters immediately. The batch buffer is
// left untouched.
func (g *IOGroup) ReadSignal(name string, domainType domain.DomainType, domainIdx int) (float64, error) {
	offset, err := g.checkSignal("ReadSignal", name, domainType, domainIdx)
	if err != nil {
		return 0, err
	}
	ctx := &g.cores[domainIdx]
	if err := g.lib.Read(ctx.eventSet, ctx.values); err != nil {
		return 0, g.die(fmt.Sprintf("PAPI_read CPU %d", domainIdx), err)
	}
	return float64(ctx.values[offset]), nil
}

// Pushed reports whether PushSignal was called for name on domainIdx
func (g *IOGroup) Pushed(name string, domainIdx int) bool {
	offset, ok := g.offsets[name]
	if !ok || domainIdx < 0 || domainIdx >= len(g.marks) {
		return false
	}
	return g.marks[domainIdx][offset].doRead
}
