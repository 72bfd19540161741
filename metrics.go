package sktree

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	kindLabel    = "kind"
	builderLabel = "builder"
)

// Metrics counts tree construction work. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	nodes         *prometheus.CounterVec
	builds        *prometheus.CounterVec
	buildDuration prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with reg when it is
// not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	var m Metrics

	m.nodes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sktree_nodes_total",
		Help: "The total number of tree nodes created, per kind (split or leaf).",
	}, []string{kindLabel})

	m.builds = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sktree_builds_total",
		Help: "The total number of trees built, per builder.",
	}, []string{builderLabel})

	m.buildDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "sktree_build_duration_seconds",
		Help:    "Time spent building one tree.",
		Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
	})

	if reg != nil {
		reg.MustRegister(m.nodes, m.builds, m.buildDuration)
	}
	return &m
}

func (m *Metrics) nodeAdded(leaf bool) {
	if m == nil {
		return
	}
	kind := "split"
	if leaf {
		kind = "leaf"
	}
	m.nodes.WithLabelValues(kind).Inc()
}

func (m *Metrics) treeBuilt(builder string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.builds.WithLabelValues(builder).Inc()
	m.buildDuration.Observe(elapsed.Seconds())
}
