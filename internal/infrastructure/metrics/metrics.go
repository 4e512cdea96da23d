// Package metrics exports service signals as Prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ersonp/lineage/internal/domain/services"
)

// Tree traversal outcomes.
const (
	treeComplete  = "complete"
	treeTruncated = "truncated"
)

// Collector implements services.Observer on a dedicated registry.
type Collector struct {
	registry *prometheus.Registry

	treeTraversals *prometheus.CounterVec
	treeDuration   prometheus.Histogram
	treeFamilies   prometheus.Histogram
	writes         *prometheus.CounterVec
}

var _ services.Observer = (*Collector)(nil)

// NewCollector registers the lineage collectors plus the Go and process
// collectors on a fresh registry.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,
		treeTraversals: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "lineage_tree_traversals_total",
			Help: "Full-tree traversals by outcome",
		}, []string{"outcome"}),
		treeDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "lineage_tree_duration_seconds",
			Help:    "Full-tree traversal duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~8s
		}),
		treeFamilies: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "lineage_tree_families",
			Help:    "Families returned per full-tree traversal",
			Buckets: []float64{1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
		}),
		writes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "lineage_writes_total",
			Help: "Relationship and marriage writes by kind and outcome",
		}, []string{"kind", "outcome"}),
	}
}

// ObserveTree records one traversal.
func (c *Collector) ObserveTree(stats services.TreeStats) {
	outcome := treeComplete
	if stats.Truncated {
		outcome = treeTruncated
	}
	c.treeTraversals.WithLabelValues(outcome).Inc()
	c.treeDuration.Observe(stats.Duration.Seconds())
	c.treeFamilies.Observe(float64(stats.Families))
}

// ObserveWrite records one write attempt.
func (c *Collector) ObserveWrite(op, outcome string) {
	c.writes.WithLabelValues(op, outcome).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
