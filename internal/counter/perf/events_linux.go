//go:build linux

package perf

import (
	"strconv"
	"strings"

	"github.com/yairfalse/perfio/internal/counter"
	"golang.org/x/sys/unix"
)

type eventDef struct {
	typ    uint32
	config uint64
}

const typeShift = 56

func encode(e eventDef) counter.Code {
	return counter.Code(uint64(e.typ)<<typeShift | e.config&(1<<typeShift-1))
}

func decode(code counter.Code) eventDef {
	return eventDef{
		typ:    uint32(uint64(code) >> typeShift),
		config: uint64(code) & (1<<typeShift - 1),
	}
}

func hwCache(id, op, result uint64) eventDef {
	return eventDef{unix.PERF_TYPE_HW_CACHE, id | op<<8 | result<<16}
}

var genericEvents = map[string]eventDef{
	// Hardware events
	"cycles":                  {unix.PERF_TYPE_HARDWARE, unix.PERF_COUNT_HW_CPU_CYCLES},
	"cpu-cycles":              {unix.PERF_TYPE_HARDWARE, unix.PERF_COUNT_HW_CPU_CYCLES},
	"instructions":            {unix.PERF_TYPE_HARDWARE, unix.PERF_COUNT_HW_INSTRUCTIONS},
	"cache-references":        {unix.PERF_TYPE_HARDWARE, unix.PERF_COUNT_HW_CACHE_REFERENCES},
	"cache-misses":            {unix.PERF_TYPE_HARDWARE, unix.PERF_COUNT_HW_CACHE_MISSES},
	"branches":                {unix.PERF_TYPE_HARDWARE, unix.PERF_COUNT_HW_BRANCH_INSTRUCTIONS},
	"branch-instructions":     {unix.PERF_TYPE_HARDWARE, unix.PERF_COUNT_HW_BRANCH_INSTRUCTIONS},
	"branch-misses":           {unix.PERF_TYPE_HARDWARE, unix.PERF_COUNT_HW_BRANCH_MISSES},
	"bus-cycles":              {unix.PERF_TYPE_HARDWARE, unix.PERF_COUNT_HW_BUS_CYCLES},
	"stalled-cycles-frontend": {unix.PERF_TYPE_HARDWARE, unix.PERF_COUNT_HW_STALLED_CYCLES_FRONTEND},
	"stalled-cycles-backend":  {unix.PERF_TYPE_HARDWARE, unix.PERF_COUNT_HW_STALLED_CYCLES_BACKEND},
	"ref-cycles":              {unix.PERF_TYPE_HARDWARE, unix.PERF_COUNT_HW_REF_CPU_CYCLES},

	// Software events
	"cpu-clock":        {unix.PERF_TYPE_SOFTWARE, unix.PERF_COUNT_SW_CPU_CLOCK},
	"task-clock":       {unix.PERF_TYPE_SOFTWARE, unix.PERF_COUNT_SW_TASK_CLOCK},
	"page-faults":      {unix.PERF_TYPE_SOFTWARE, unix.PERF_COUNT_SW_PAGE_FAULTS},
	"faults":           {unix.PERF_TYPE_SOFTWARE, unix.PERF_COUNT_SW_PAGE_FAULTS},
	"context-switches": {unix.PERF_TYPE_SOFTWARE, unix.PERF_COUNT_SW_CONTEXT_SWITCHES},
	"cs":               {unix.PERF_TYPE_SOFTWARE, unix.PERF_COUNT_SW_CONTEXT_SWITCHES},
	"cpu-migrations":   {unix.PERF_TYPE_SOFTWARE, unix.PERF_COUNT_SW_CPU_MIGRATIONS},
	"minor-faults":     {unix.PERF_TYPE_SOFTWARE, unix.PERF_COUNT_SW_PAGE_FAULTS_MIN},
	"major-faults":     {unix.PERF_TYPE_SOFTWARE, unix.PERF_COUNT_SW_PAGE_FAULTS_MAJ},
	"alignment-faults": {unix.PERF_TYPE_SOFTWARE, unix.PERF_COUNT_SW_ALIGNMENT_FAULTS},
	"emulation-faults": {unix.PERF_TYPE_SOFTWARE, unix.PERF_COUNT_SW_EMULATION_FAULTS},

	// Hardware cache events
	"L1-dcache-loads":       hwCache(unix.PERF_COUNT_HW_CACHE_L1D, unix.PERF_COUNT_HW_CACHE_OP_READ, unix.PERF_COUNT_HW_CACHE_RESULT_ACCESS),
	"L1-dcache-load-misses": hwCache(unix.PERF_COUNT_HW_CACHE_L1D, unix.PERF_COUNT_HW_CACHE_OP_READ, unix.PERF_COUNT_HW_CACHE_RESULT_MISS),
	"L1-dcache-stores":      hwCache(unix.PERF_COUNT_HW_CACHE_L1D, unix.PERF_COUNT_HW_CACHE_OP_WRITE, unix.PERF_COUNT_HW_CACHE_RESULT_ACCESS),
	"L1-icache-load-misses": hwCache(unix.PERF_COUNT_HW_CACHE_L1I, unix.PERF_COUNT_HW_CACHE_OP_READ, unix.PERF_COUNT_HW_CACHE_RESULT_MISS),
	"LLC-loads":             hwCache(unix.PERF_COUNT_HW_CACHE_LL, unix.PERF_COUNT_HW_CACHE_OP_READ, unix.PERF_COUNT_HW_CACHE_RESULT_ACCESS),
	"LLC-load-misses":       hwCache(unix.PERF_COUNT_HW_CACHE_LL, unix.PERF_COUNT_HW_CACHE_OP_READ, unix.PERF_COUNT_HW_CACHE_RESULT_MISS),
	"LLC-stores":            hwCache(unix.PERF_COUNT_HW_CACHE_LL, unix.PERF_COUNT_HW_CACHE_OP_WRITE, unix.PERF_COUNT_HW_CACHE_RESULT_ACCESS),
	"dTLB-load-misses":      hwCache(unix.PERF_COUNT_HW_CACHE_DTLB, unix.PERF_COUNT_HW_CACHE_OP_READ, unix.PERF_COUNT_HW_CACHE_RESULT_MISS),
	"iTLB-load-misses":      hwCache(unix.PERF_COUNT_HW_CACHE_ITLB, unix.PERF_COUNT_HW_CACHE_OP_READ, unix.PERF_COUNT_HW_CACHE_RESULT_MISS),
	"branch-load-misses":    hwCache(unix.PERF_COUNT_HW_CACHE_BPU, unix.PERF_COUNT_HW_CACHE_OP_READ, unix.PERF_COUNT_HW_CACHE_RESULT_MISS),
}

// PAPI presets with a direct generic perf equivalent
var presetEvents = map[string]string{
	"PAPI_TOT_CYC": "cycles",
	"PAPI_REF_CYC": "ref-cycles",
	"PAPI_TOT_INS": "instructions",
	"PAPI_BR_INS":  "branches",
	"PAPI_BR_MSP":  "branch-misses",
	"PAPI_L1_DCM":  "L1-dcache-load-misses",
	"PAPI_L1_ICM":  "L1-icache-load-misses",
	"PAPI_L3_TCA":  "cache-references",
	"PAPI_L3_TCM":  "cache-misses",
	"PAPI_L3_LDM":  "LLC-load-misses",
	"PAPI_TLB_DM":  "dTLB-load-misses",
	"PAPI_TLB_IM":  "iTLB-load-misses",
	"PAPI_STL_ICY": "stalled-cycles-frontend",
	"PAPI_RES_STL": "stalled-cycles-backend",
}

// lookupEvent resolves a symbolic name to its perf type and config
func lookupEvent(name string) (eventDef, bool) {
	if alias, ok := presetEvents[name]; ok {
		name = alias
	}
	if def, ok := genericEvents[name]; ok {
		return def, true
	}
	if len(name) > 1 && name[0] == 'r' {
		raw, err := strconv.ParseUint(strings.TrimPrefix(name[1:], "0x"), 16, 64)
		if err == nil && raw < 1<<typeShift {
			return eventDef{unix.PERF_TYPE_RAW, raw}, true
		}
	}
	return eventDef{}, false
}

// EventNames lists every symbolic name the backend resolves, raw codes aside
func EventNames() []string {
	names := make([]string, 0, len(genericEvents)+len(presetEvents))
	for name := range genericEvents {
		names = append(names, name)
	}
	for name := range presetEvents {
		names = append(names, name)
	}
	return names
}
