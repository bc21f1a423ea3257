package prometheus

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/yairfalse/perfio/internal/observers/base"
	"github.com/yairfalse/perfio/internal/observers/counters"
	"github.com/yairfalse/perfio/pkg/domain"
)

type stubSource struct {
	snap   counters.Snapshot
	stats  *base.Stats
	health *domain.HealthStatus
}

func (s *stubSource) Snapshot() counters.Snapshot { return s.snap }
func (s *stubSource) Statistics() *base.Stats     { return s.stats }
func (s *stubSource) Health() *domain.HealthStatus {
	return s.health
}

func twoCoreSource() *stubSource {
	return &stubSource{
		snap: counters.Snapshot{
			Timestamp: time.Unix(1700000000, 0),
			Signals: []counters.SignalValues{
				{Name: "cycles", Domain: domain.DomainCore, Values: []float64{100, 250}, Total: 350},
				{Name: "instructions", Domain: domain.DomainCore, Values: []float64{40, 60}, Total: 100},
			},
		},
		stats:  &base.Stats{Name: "counters", ReadsTotal: 7, ErrorCount: 1},
		health: domain.NewHealthyStatus("ok"),
	}
}

func TestCollectorExportsSnapshot(t *testing.T) {
	c := NewCollector(twoCoreSource(), nil)

	expected := `
# HELP perfio_counter_total Hardware counter value aggregated across cores
# TYPE perfio_counter_total gauge
perfio_counter_total{signal="cycles"} 350
perfio_counter_total{signal="instructions"} 100
# HELP perfio_counter_value Hardware counter value on one core as of the last batch read
# TYPE perfio_counter_value gauge
perfio_counter_value{core="0",signal="cycles"} 100
perfio_counter_value{core="1",signal="cycles"} 250
perfio_counter_value{core="0",signal="instructions"} 40
perfio_counter_value{core="1",signal="instructions"} 60
# HELP perfio_last_read_timestamp_seconds Unix time of the last successful batch read
# TYPE perfio_last_read_timestamp_seconds gauge
perfio_last_read_timestamp_seconds 1.7e+09
# HELP perfio_observer_errors_total Batch reads that failed
# TYPE perfio_observer_errors_total counter
perfio_observer_errors_total 1
# HELP perfio_observer_reads_total Batch reads completed
# TYPE perfio_observer_reads_total counter
perfio_observer_reads_total 7
`
	require.NoError(t, testutil.CollectAndCompare(c, strings.NewReader(expected)))
	assert.Equal(t, 9, testutil.CollectAndCount(c))
}

func TestCollectorBeforeFirstRead(t *testing.T) {
	src := &stubSource{stats: &base.Stats{Name: "counters"}}
	c := NewCollector(src, nil)

	assert.Equal(t, 2, testutil.CollectAndCount(c), "only observer counters before the first read")
	assert.Equal(t, 0, testutil.CollectAndCount(c, "perfio_counter_value"))
}

func TestCollectorConstLabels(t *testing.T) {
	c := NewCollector(twoCoreSource(), &CollectorConfig{
		Namespace:   "lab",
		ConstLabels: map[string]string{"host": "node1"},
	})

	expected := `
# HELP lab_counter_total Hardware counter value aggregated across cores
# TYPE lab_counter_total gauge
lab_counter_total{host="node1",signal="cycles"} 350
lab_counter_total{host="node1",signal="instructions"} 100
`
	require.NoError(t, testutil.CollectAndCompare(c, strings.NewReader(expected), "lab_counter_total"))
}

func TestNewRegistryAndMux(t *testing.T) {
	src := twoCoreSource()
	reg, err := NewRegistry(NewCollector(src, nil))
	require.NoError(t, err)

	server := httptest.NewServer(NewMux(reg, "/metrics", src, zaptest.NewLogger(t)))
	defer server.Close()

	resp, err := http.Get(server.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	problems, err := testutil.GatherAndLint(reg, "perfio_counter_value")
	require.NoError(t, err)
	assert.Empty(t, problems)

	resp, err = http.Get(server.URL + "/health")
	require.NoError(t, err)
	var hs domain.HealthStatus
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&hs))
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, domain.HealthHealthy, hs.Status)

	src.health = domain.NewUnhealthyStatus("counters gone", nil)
	resp, err = http.Get(server.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
