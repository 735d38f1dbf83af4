package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the file authorization gate.
type Metrics struct {
	Decisions        *prometheus.CounterVec
	EvaluateDuration prometheus.Histogram
}

// New creates a new Metrics instance with all gate metrics registered.
func New() *Metrics {
	return &Metrics{
		Decisions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "arkhiv_download_decisions_total",
			Help: "Download authorization decisions by outcome and deny reason",
		}, []string{"outcome", "reason"}),
		EvaluateDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "arkhiv_download_authorization_duration_seconds",
			Help:    "Duration of download authorization including store lookups",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

// IncrementDecision records one authorization decision.
func (m *Metrics) IncrementDecision(outcome, reason string) {
	m.Decisions.WithLabelValues(outcome, reason).Inc()
}

// ObserveEvaluate records the duration of an authorization.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveEvaluate(start time.Time) {
	m.EvaluateDuration.Observe(time.Since(start).Seconds())
}
