// Package processingcounters implements C7 (spec.md §4.7): a small record
// of lock-free atomic counters, plus a Prometheus collector exposing the
// same values. Grounded in SPEC_FULL.md §3's domain-stack pairing of a
// "processing counters" component with github.com/prometheus/client_golang
// (AKJUS-bsc-erigon's go.mod depends on it extensively for node
// observability) - only the dependency itself survived retrieval for this
// pack, not a usage file, so the collector below follows client_golang's
// own canonical custom-Collector pattern (NewDesc + MustNewConstMetric).
package processingcounters

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

// Counters holds the four statistics spec.md §4.7 names. Readers observe
// monotonic values; writers use relaxed ordering (plain atomic adds) -
// these are statistics, not synchronization.
type Counters struct {
	headersProcessed      atomic.Uint64
	directParentEdges     atomic.Uint64
	dependenciesResolved  atomic.Uint64
	invalidations         atomic.Uint64
}

// New creates a zeroed Counters record.
func New() *Counters {
	return &Counters{}
}

// HeaderProcessed increments the processed-header count by one.
func (c *Counters) HeaderProcessed() {
	c.headersProcessed.Add(1)
}

// DirectParentEdgesObserved adds n to the direct-parent-edge count.
func (c *Counters) DirectParentEdgesObserved(n uint64) {
	c.directParentEdges.Add(n)
}

// DependencyResolved increments the dependencies-resolved count by one.
func (c *Counters) DependencyResolved() {
	c.dependenciesResolved.Add(1)
}

// Invalidated increments the invalidation count by one.
func (c *Counters) Invalidated() {
	c.invalidations.Add(1)
}

// Snapshot is a point-in-time read of every counter.
type Snapshot struct {
	HeadersProcessed     uint64
	DirectParentEdges    uint64
	DependenciesResolved uint64
	Invalidations        uint64
}

// Snapshot reads all four counters. Each load is independent, so the
// result is not a single atomic point-in-time view across all four
// fields - acceptable for statistics, per spec.md §4.7.
func (c *Counters) Snapshot() Snapshot {
	return Snapshot{
		HeadersProcessed:     c.headersProcessed.Load(),
		DirectParentEdges:    c.directParentEdges.Load(),
		DependenciesResolved: c.dependenciesResolved.Load(),
		Invalidations:        c.invalidations.Load(),
	}
}

var (
	headersProcessedDesc = prometheus.NewDesc(
		"ghostnode_headers_processed_total", "Total headers admitted by the header processor.", nil, nil)
	directParentEdgesDesc = prometheus.NewDesc(
		"ghostnode_direct_parent_edges_total", "Total direct-parent edges observed across admitted headers.", nil, nil)
	dependenciesResolvedDesc = prometheus.NewDesc(
		"ghostnode_dependencies_resolved_total", "Total dependency-manager resolutions.", nil, nil)
	invalidationsDesc = prometheus.NewDesc(
		"ghostnode_invalidations_total", "Total headers marked Invalid.", nil, nil)
)

// Collector adapts Counters to prometheus.Collector so the counters can
// be registered on a metrics registry and scraped over HTTP.
type Collector struct {
	counters *Counters
}

// NewCollector wraps counters as a prometheus.Collector.
func NewCollector(counters *Counters) *Collector {
	return &Collector{counters: counters}
}

// Describe implements prometheus.Collector.
func (col *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- headersProcessedDesc
	ch <- directParentEdgesDesc
	ch <- dependenciesResolvedDesc
	ch <- invalidationsDesc
}

// Collect implements prometheus.Collector.
func (col *Collector) Collect(ch chan<- prometheus.Metric) {
	snapshot := col.counters.Snapshot()
	ch <- prometheus.MustNewConstMetric(headersProcessedDesc, prometheus.CounterValue, float64(snapshot.HeadersProcessed))
	ch <- prometheus.MustNewConstMetric(directParentEdgesDesc, prometheus.CounterValue, float64(snapshot.DirectParentEdges))
	ch <- prometheus.MustNewConstMetric(dependenciesResolvedDesc, prometheus.CounterValue, float64(snapshot.DependenciesResolved))
	ch <- prometheus.MustNewConstMetric(invalidationsDesc, prometheus.CounterValue, float64(snapshot.Invalidations))
}
