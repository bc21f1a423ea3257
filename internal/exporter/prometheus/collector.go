// Package prometheus exposes counter snapshots in the Prometheus format
package prometheus

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/yairfalse/perfio/internal/observers/base"
	"github.com/yairfalse/perfio/internal/observers/counters"
)

// Source supplies the values exported on every scrape
type Source interface {
	Snapshot() counters.Snapshot
	Statistics() *base.Stats
}

// CollectorConfig configures the collector
type CollectorConfig struct {
	Namespace   string
	ConstLabels prometheus.Labels
}

// DefaultCollectorConfig returns default collector configuration
func DefaultCollectorConfig() *CollectorConfig {
	return &CollectorConfig{
		Namespace:   "perfio",
		ConstLabels: prometheus.Labels{},
	}
}

// Collector implements prometheus.Collector over a Source. Values are taken
// from the latest snapshot at scrape time; scrapes never trigger a read.
type Collector struct {
	source Source
	config *CollectorConfig

	valueDesc    *prometheus.Desc
	totalDesc    *prometheus.Desc
	lastReadDesc *prometheus.Desc
	readsDesc    *prometheus.Desc
	errorsDesc   *prometheus.Desc
}

// NewCollector creates a collector over source
func NewCollector(source Source, config *CollectorConfig) *Collector {
	if config == nil {
		config = DefaultCollectorConfig()
	}

	c := &Collector{
		source: source,
		config: config,
	}
	c.initializeDescriptors()
	return c
}

func (c *Collector) initializeDescriptors() {
	ns := c.config.Namespace
	labels := c.config.ConstLabels

	c.valueDesc = prometheus.NewDesc(
		prometheus.BuildFQName(ns, "counter", "value"),
		"Hardware counter value on one core as of the last batch read",
		[]string{"signal", "core"},
		labels,
	)
	c.totalDesc = prometheus.NewDesc(
		prometheus.BuildFQName(ns, "counter", "total"),
		"Hardware counter value aggregated across cores",
		[]string{"signal"},
		labels,
	)
	c.lastReadDesc = prometheus.NewDesc(
		prometheus.BuildFQName(ns, "", "last_read_timestamp_seconds"),
		"Unix time of the last successful batch read",
		nil,
		labels,
	)
	c.readsDesc = prometheus.NewDesc(
		prometheus.BuildFQName(ns, "observer", "reads_total"),
		"Batch reads completed",
		nil,
		labels,
	)
	c.errorsDesc = prometheus.NewDesc(
		prometheus.BuildFQName(ns, "observer", "errors_total"),
		"Batch reads that failed",
		nil,
		labels,
	)
}

// Describe implements prometheus.Collector
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.valueDesc
	ch <- c.totalDesc
	ch <- c.lastReadDesc
	ch <- c.readsDesc
	ch <- c.errorsDesc
}

// Collect implements prometheus.Collector
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	if stats := c.source.Statistics(); stats != nil {
		ch <- prometheus.MustNewConstMetric(c.readsDesc, prometheus.CounterValue, float64(stats.ReadsTotal))
		ch <- prometheus.MustNewConstMetric(c.errorsDesc, prometheus.CounterValue, float64(stats.ErrorCount))
	}

	snap := c.source.Snapshot()
	if snap.IsZero() {
		return
	}

	ch <- prometheus.MustNewConstMetric(c.lastReadDesc, prometheus.GaugeValue,
		float64(snap.Timestamp.UnixNano())/1e9)

	for _, sv := range snap.Signals {
		for core, v := range sv.Values {
			ch <- prometheus.MustNewConstMetric(c.valueDesc, prometheus.GaugeValue, v,
				sv.Name, strconv.Itoa(core))
		}
		ch <- prometheus.MustNewConstMetric(c.totalDesc, prometheus.GaugeValue, sv.Total, sv.Name)
	}
}

var _ prometheus.Collector = (*Collector)(nil)
