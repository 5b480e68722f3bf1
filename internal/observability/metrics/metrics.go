package metrics

import "github.com/prometheus/client_golang/prometheus"

// AgentMetrics exposes counters/histograms for dialogue turn processing.
type AgentMetrics struct {
	turnsTotal      *prometheus.CounterVec
	intentsTotal    *prometheus.CounterVec
	dispatchLatency *prometheus.HistogramVec
}

func NewAgentMetrics(reg prometheus.Registerer) *AgentMetrics {
	m := &AgentMetrics{
		turnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dentalagent",
			Subsystem: "agent",
			Name:      "turns_total",
			Help:      "Total dialogue turns processed",
		}, []string{"role", "outcome"}),
		intentsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dentalagent",
			Subsystem: "agent",
			Name:      "intents_total",
			Help:      "Total intents resolved by source",
		}, []string{"intent", "source"}),
		dispatchLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "dentalagent",
			Subsystem: "agent",
			Name:      "dispatch_latency_seconds",
			Help:      "Latency of tool dispatch per intent",
			Buckets:   prometheus.DefBuckets,
		}, []string{"intent"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.turnsTotal, m.intentsTotal, m.dispatchLatency)
	return m
}

// ObserveTurn records one processed turn and its outcome
// (answered, prompted, dispatched, rejected, unknown, error).
func (m *AgentMetrics) ObserveTurn(role, outcome string) {
	if m == nil {
		return
	}
	m.turnsTotal.WithLabelValues(role, outcome).Inc()
}

// ObserveIntent records a resolved intent and how it was resolved
// (override, classifier, fallback).
func (m *AgentMetrics) ObserveIntent(intent, source string) {
	if m == nil {
		return
	}
	m.intentsTotal.WithLabelValues(intent, source).Inc()
}

func (m *AgentMetrics) ObserveDispatchLatency(intent string, seconds float64) {
	if m == nil {
		return
	}
	m.dispatchLatency.WithLabelValues(intent).Observe(seconds)
}
