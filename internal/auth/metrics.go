package auth

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts authentication outcomes. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	outcomes *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		outcomes: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "auth_outcomes_total",
				Help: "Authentication attempts by operation and outcome",
			},
			[]string{"op", "outcome"},
		),
	}
}

func (m *Metrics) observe(op, outcome string) {
	if m == nil {
		return
	}
	m.outcomes.WithLabelValues(op, outcome).Inc()
}
