package pricehistory

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	resultRecorded = "recorded"
	resultSkipped  = "skipped"
	resultFailed   = "failed"
)

// Metrics counts price job results. A nil *Metrics records nothing.
type Metrics struct {
	updates *prometheus.CounterVec
	purges  *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		updates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "convert",
			Subsystem: "prices",
			Name:      "updates_total",
			Help:      "Price updates per market by result.",
		}, []string{"market", "result"}),
		purges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "convert",
			Subsystem: "prices",
			Name:      "purged_rows_total",
			Help:      "Price-history rows deleted per pair.",
		}, []string{"pair"}),
	}
	if reg != nil {
		reg.MustRegister(m.updates, m.purges)
	}
	return m
}

func (m *Metrics) observe(market, result string) {
	if m == nil {
		return
	}
	m.updates.WithLabelValues(market, result).Inc()
}

func (m *Metrics) purged(pair string, n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.purges.WithLabelValues(pair).Add(float64(n))
}
