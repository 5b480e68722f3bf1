package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveTurn(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewAgentMetrics(reg)

	m.ObserveTurn("doctor", "dispatched")
	m.ObserveTurn("doctor", "dispatched")
	m.ObserveTurn("patient", "prompted")

	assert.Equal(t, float64(2), testutil.ToFloat64(m.turnsTotal.WithLabelValues("doctor", "dispatched")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.turnsTotal.WithLabelValues("patient", "prompted")))
}

func TestNilReceiverIsSafe(t *testing.T) {
	var m *AgentMetrics
	m.ObserveTurn("doctor", "error")
	m.ObserveIntent("appt_book", "override")
	m.ObserveDispatchLatency("appt_book", 0.2)
}

func TestObserveIntent(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewAgentMetrics(reg)

	m.ObserveIntent("appt_block", "override")
	assert.Equal(t, float64(1), testutil.ToFloat64(m.intentsTotal.WithLabelValues("appt_block", "override")))
}
