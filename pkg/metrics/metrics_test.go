package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestObserveUpstreamCountsByOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveUpstream("auth", "ok", 20*time.Millisecond)
	m.ObserveUpstream("auth", "ok", 30*time.Millisecond)
	m.ObserveUpstream("auth", "unreachable", time.Second)

	require.Equal(t, 2.0, counterValue(t, reg, "temppredict_upstream_requests_total", "outcome", "ok"))
	require.Equal(t, 1.0, counterValue(t, reg, "temppredict_upstream_requests_total", "outcome", "unreachable"))
}

func TestGateAndInflightCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.GateDecision("redirect")
	m.InflightRejected("predict_year")
	m.StaleDiscarded("predict_year")

	require.Equal(t, 1.0, counterValue(t, reg, "temppredict_access_gate_decisions_total", "decision", "redirect"))
	require.Equal(t, 1.0, counterValue(t, reg, "temppredict_inflight_rejections_total", "operation", "predict_year"))
	require.Equal(t, 1.0, counterValue(t, reg, "temppredict_stale_results_discarded_total", "operation", "predict_year"))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	require.NotPanics(t, func() {
		m.ObserveUpstream("auth", "ok", time.Millisecond)
		m.GateDecision("allow")
		m.InflightRejected("predict_point")
		m.StaleDiscarded("predict_point")
	})
}

func counterValue(t *testing.T, reg *prometheus.Registry, name, label, value string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, metric := range family.GetMetric() {
			for _, pair := range metric.GetLabel() {
				if pair.GetName() == label && pair.GetValue() == value {
					return metric.GetCounter().GetValue()
				}
			}
		}
	}
	t.Fatalf("metric %s{%s=%q} not found", name, label, value)
	return 0
}
