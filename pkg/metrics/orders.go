package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OrderMetrics records submission outcomes for the print-order pipeline.
type OrderMetrics struct {
	submissions     *prometheus.CounterVec
	simulations     prometheus.Counter
	sessionDuration prometheus.Histogram
}

// NewOrderMetrics registers the order pipeline metrics on the provided registerer.
func NewOrderMetrics(reg prometheus.Registerer) *OrderMetrics {
	if reg == nil {
		return &OrderMetrics{}
	}
	submissions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "print_order_submissions_total",
		Help: "Print order submission attempts by outcome.",
	}, []string{"outcome"})
	simulations := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "checkout_simulation_fallbacks_total",
		Help: "Checkout sessions answered with the simulation sentinel.",
	})
	sessionDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "checkout_session_duration_seconds",
		Help:    "Latency of checkout session creation.",
		Buckets: prometheus.DefBuckets,
	})
	reg.MustRegister(submissions, simulations, sessionDuration)
	return &OrderMetrics{
		submissions:     submissions,
		simulations:     simulations,
		sessionDuration: sessionDuration,
	}
}

// IncSubmission counts a submission attempt with the given outcome.
func (m *OrderMetrics) IncSubmission(outcome string) {
	if m == nil || m.submissions == nil {
		return
	}
	m.submissions.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncSimulationFallback counts a checkout simulation fallback.
func (m *OrderMetrics) IncSimulationFallback() {
	if m == nil || m.simulations == nil {
		return
	}
	m.simulations.Inc()
}

// ObserveSessionDuration records how long checkout session creation took.
func (m *OrderMetrics) ObserveSessionDuration(d time.Duration) {
	if m == nil || m.sessionDuration == nil {
		return
	}
	m.sessionDuration.Observe(d.Seconds())
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
