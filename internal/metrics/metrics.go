// Package metrics exposes the engine's Prometheus instrumentation. All
// collectors register against the default registry and are served by the
// /metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SnapshotsApplied = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "board",
		Name:      "snapshots_applied_total",
		Help:      "Store snapshots applied by live sessions, per collection",
	}, []string{"collection"})

	OpenSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "board",
		Name:      "open_sessions",
		Help:      "Synchronization sessions currently live or subscribing",
	})

	Mutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "board",
		Name:      "mutations_total",
		Help:      "Mutations issued against the document store",
	}, []string{"collection", "action"})

	MutationFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "board",
		Name:      "mutation_failures_total",
		Help:      "Mutations that resolved to a typed failure",
	}, []string{"collection", "action"})
)
