package metrics

import "github.com/prometheus/client_golang/prometheus"

// SchedulerMetrics exposes counters/histograms for gateway calls and booking
// session transitions.
type SchedulerMetrics struct {
	requestsTotal  *prometheus.CounterVec
	requestLatency *prometheus.HistogramVec
	transitions    *prometheus.CounterVec
	staleFetches   prometheus.Counter
}

// NewSchedulerMetrics registers the scheduler metrics on reg, or on the
// default registerer when reg is nil.
func NewSchedulerMetrics(reg prometheus.Registerer) *SchedulerMetrics {
	m := &SchedulerMetrics{
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sched",
			Subsystem: "gateway",
			Name:      "requests_total",
			Help:      "Total scheduling service calls by call and outcome",
		}, []string{"call", "status"}),
		requestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "sched",
			Subsystem: "gateway",
			Name:      "latency_seconds",
			Help:      "Latency of scheduling service calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"call"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sched",
			Subsystem: "session",
			Name:      "transitions_total",
			Help:      "Booking session transitions by destination screen",
		}, []string{"screen"}),
		staleFetches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sched",
			Subsystem: "session",
			Name:      "stale_fetches_total",
			Help:      "Availability results discarded because a newer fetch superseded them",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.requestsTotal, m.requestLatency, m.transitions, m.staleFetches)
	return m
}

// ObserveRequest records one gateway call.
func (m *SchedulerMetrics) ObserveRequest(call string, err error, seconds float64) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.requestsTotal.WithLabelValues(call, status).Inc()
	m.requestLatency.WithLabelValues(call).Observe(seconds)
}

// ObserveTransition counts a session entering screen.
func (m *SchedulerMetrics) ObserveTransition(screen string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(screen).Inc()
}

// ObserveStaleFetch counts an availability result dropped as stale.
func (m *SchedulerMetrics) ObserveStaleFetch() {
	if m == nil {
		return
	}
	m.staleFetches.Inc()
}
