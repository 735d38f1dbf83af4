package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the access request module.
type Metrics struct {
	RequestsCreated    prometheus.Counter
	Transitions        *prometheus.CounterVec
	TransitionFailures *prometheus.CounterVec
	TransitionDuration prometheus.Histogram
}

// New creates a new Metrics instance with all request module metrics registered.
func New() *Metrics {
	return &Metrics{
		RequestsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "arkhiv_access_requests_created_total",
			Help: "Total number of access requests created",
		}),
		Transitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "arkhiv_access_request_transitions_total",
			Help: "Successful request status transitions by target status",
		}, []string{"to_status"}),
		TransitionFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "arkhiv_access_request_transition_failures_total",
			Help: "Rejected transition attempts by error code",
		}, []string{"code"}),
		TransitionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "arkhiv_access_request_transition_duration_seconds",
			Help:    "Duration of transition operations including store round-trip",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

// IncrementCreated records a successful request creation.
func (m *Metrics) IncrementCreated() {
	m.RequestsCreated.Inc()
}

// IncrementTransition records a successful transition to the given status.
func (m *Metrics) IncrementTransition(toStatus string) {
	m.Transitions.WithLabelValues(toStatus).Inc()
}

// IncrementTransitionFailure records a failed transition attempt.
func (m *Metrics) IncrementTransitionFailure(code string) {
	m.TransitionFailures.WithLabelValues(code).Inc()
}

// ObserveTransition records the duration of a transition operation.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveTransition(start time.Time) {
	m.TransitionDuration.Observe(time.Since(start).Seconds())
}
