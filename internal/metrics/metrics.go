package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "mindfuleat"

// Metrics holds the Prometheus collectors for remote calls, tip generation
// and HTTP traffic. A nil *Metrics is valid and records nothing.
type Metrics struct {
	remoteDuration *prometheus.HistogramVec
	fallbacks      *prometheus.CounterVec
	tipGenerations *prometheus.CounterVec
	tasksDropped   prometheus.Counter
	httpDuration   *prometheus.HistogramVec
	httpRequests   *prometheus.CounterVec
}

// New registers the collectors with reg. Registration errors panic, the same
// way promauto does, so misconfiguration shows up at startup.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		remoteDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "request_duration_seconds",
			Help:      "Latency of calls to the trait and tip services.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"service", "outcome"}),
		fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "fallbacks_total",
			Help:      "Remote calls that degraded to a fixed fallback value.",
		}, []string{"service", "reason"}),
		tipGenerations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tips",
			Name:      "generations_total",
			Help:      "Tip generation attempts by trigger and outcome.",
		}, []string{"trigger", "outcome"}),
		tasksDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tips",
			Name:      "tasks_dropped_total",
			Help:      "Background tip tasks rejected because the queue was full or closed.",
		}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"method", "route", "status"}),
	}
	reg.MustRegister(m.remoteDuration, m.fallbacks, m.tipGenerations, m.tasksDropped, m.httpDuration, m.httpRequests)
	return m
}

func (m *Metrics) ObserveRemoteCall(service, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.remoteDuration.WithLabelValues(service, outcome).Observe(d.Seconds())
}

func (m *Metrics) IncFallback(service, reason string) {
	if m == nil {
		return
	}
	m.fallbacks.WithLabelValues(service, reason).Inc()
}

func (m *Metrics) IncTipGeneration(trigger, outcome string) {
	if m == nil {
		return
	}
	m.tipGenerations.WithLabelValues(trigger, outcome).Inc()
}

func (m *Metrics) IncTaskDropped() {
	if m == nil {
		return
	}
	m.tasksDropped.Inc()
}

func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
	m.httpRequests.WithLabelValues(method, route, statusClass(status)).Inc()
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
