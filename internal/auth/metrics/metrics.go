package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus collectors for authentication decisions.
type Metrics struct {
	AuthAttempts   *prometheus.CounterVec // result: accepted | rejected | error
	GuardDecisions *prometheus.CounterVec // outcome: continue | redirect_signin | redirect_landing | bypass
	SessionsIssued prometheus.Counter
	AuthDurationMs prometheus.Histogram
}

// New registers and returns collectors on the default registerer.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers collectors on the given registerer. Tests pass a fresh
// registry to avoid duplicate-registration panics.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		AuthAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "authgate_auth_attempts_total",
			Help: "Total authentication attempts by result",
		}, []string{"result"}),
		GuardDecisions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "authgate_guard_decisions_total",
			Help: "Session-guard routing decisions by outcome",
		}, []string{"outcome"}),
		SessionsIssued: factory.NewCounter(prometheus.CounterOpts{
			Name: "authgate_sessions_issued_total",
			Help: "Total sessions issued after successful authentication",
		}),
		AuthDurationMs: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "authgate_auth_duration_ms",
			Help:    "Duration of authentication attempts in milliseconds",
			Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000},
		}),
	}
}
