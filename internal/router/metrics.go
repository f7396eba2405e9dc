package router

import (
	"github.com/prometheus/client_golang/prometheus"

	"convert_go/internal/domain"
)

// Metrics counts routing outcomes. A nil *Metrics records nothing.
type Metrics struct {
	outcomes *prometheus.CounterVec
	legs     *prometheus.CounterVec
}

// NewMetrics registers the router counters with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "convert",
			Subsystem: "router",
			Name:      "outcomes_total",
			Help:      "Routed conversions by final status.",
		}, []string{"status"}),
		legs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "convert",
			Subsystem: "router",
			Name:      "legs_total",
			Help:      "Order legs by provider and result.",
		}, []string{"provider", "result"}),
	}
	if reg != nil {
		reg.MustRegister(m.outcomes, m.legs)
	}
	return m
}

func (m *Metrics) outcome(status domain.ConversionStatus) {
	if m == nil {
		return
	}
	m.outcomes.WithLabelValues(string(status)).Inc()
}

func (m *Metrics) leg(provider domain.Provider, ok bool) {
	if m == nil {
		return
	}
	result := "accepted"
	if !ok {
		result = "failed"
	}
	m.legs.WithLabelValues(string(provider), result).Inc()
}
