package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups the Prometheus collectors used by the gateway.
type Metrics struct {
	upstreamRequests *prometheus.CounterVec
	upstreamDuration *prometheus.HistogramVec
	gateDecisions    *prometheus.CounterVec
	inflightRejected *prometheus.CounterVec
	staleDiscarded   *prometheus.CounterVec
}

// NewRegistry returns a registry preloaded with the Go and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// New registers the gateway collectors on reg.
func New(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		upstreamRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "temppredict_upstream_requests_total",
				Help: "Upstream calls by backend and outcome",
			},
			[]string{"backend", "outcome"},
		),
		upstreamDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "temppredict_upstream_request_duration_seconds",
				Help:    "Upstream call latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"backend"},
		),
		gateDecisions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "temppredict_access_gate_decisions_total",
				Help: "Access gate decisions by outcome",
			},
			[]string{"decision"},
		),
		inflightRejected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "temppredict_inflight_rejections_total",
				Help: "Requests rejected because the same operation was already in flight",
			},
			[]string{"operation"},
		),
		staleDiscarded: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "temppredict_stale_results_discarded_total",
				Help: "Upstream results discarded because the view was torn down or superseded",
			},
			[]string{"operation"},
		),
	}
}

// ObserveUpstream records one upstream call. A nil receiver is a no-op.
func (m *Metrics) ObserveUpstream(backend, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.upstreamRequests.WithLabelValues(backend, outcome).Inc()
	m.upstreamDuration.WithLabelValues(backend).Observe(elapsed.Seconds())
}

// GateDecision counts an access gate outcome.
func (m *Metrics) GateDecision(decision string) {
	if m == nil {
		return
	}
	m.gateDecisions.WithLabelValues(decision).Inc()
}

// InflightRejected counts a duplicate submission.
func (m *Metrics) InflightRejected(operation string) {
	if m == nil {
		return
	}
	m.inflightRejected.WithLabelValues(operation).Inc()
}

// StaleDiscarded counts a result dropped on arrival.
func (m *Metrics) StaleDiscarded(operation string) {
	if m == nil {
		return
	}
	m.staleDiscarded.WithLabelValues(operation).Inc()
}
