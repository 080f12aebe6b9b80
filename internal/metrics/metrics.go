// Package metrics exposes the Prometheus instrumentation shared by the
// pipeline, the sink and the ingest server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "log_indexer"

// Metrics holds all Prometheus metrics for the indexer. Every instance
// carries its own registry, so constructing one never collides with
// another.
type Metrics struct {
	registry *prometheus.Registry

	EventsTotal      *prometheus.CounterVec
	BatchesTotal     *prometheus.CounterVec
	BatchDuration    prometheus.Histogram
	DocumentsIndexed prometheus.Counter
	DocumentsFailed  prometheus.Counter
	DeadLetterTotal  prometheus.Counter
	RejectsTotal     *prometheus.CounterVec
	ControlTotal     prometheus.Counter
}

// New initializes and registers the Prometheus metrics.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		EventsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "normalize",
			Name:      "events_total",
			Help:      "Total number of normalized events by classification.",
		}, []string{"class"}), // class: lifecycle, report, error, payload
		BatchesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "batches_total",
			Help:      "Total number of processed batches by source.",
		}, []string{"source"}), // source: http, backfill
		BatchDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "batch_duration_seconds",
			Help:      "Time spent normalizing and enqueueing one batch.",
			Buckets:   prometheus.DefBuckets,
		}),
		DocumentsIndexed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sink",
			Name:      "documents_indexed_total",
			Help:      "Total number of documents accepted by the bulk sink.",
		}),
		DocumentsFailed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sink",
			Name:      "documents_failed_total",
			Help:      "Total number of documents rejected by the bulk sink.",
		}),
		DeadLetterTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sink",
			Name:      "dead_letter_total",
			Help:      "Total number of rejected documents written to the dead letter file.",
		}),
		RejectsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "rejects_total",
			Help:      "Total number of rejected ingest requests by reason.",
		}, []string{"reason"}), // reason: decode, read, body_too_large
		ControlTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "control_messages_total",
			Help:      "Total number of subscription control messages received.",
		}),
	}
}

// Registry returns the registry backing this instance, for serving the
// /metrics endpoint.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
