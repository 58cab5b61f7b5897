package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus instruments for the service.
type Metrics struct {
	RequestsCreated prometheus.Counter

	// Outbound provider calls. labels: service={geocode,weather,forecast,openai}, outcome={success,error}
	UpstreamRequests *prometheus.CounterVec
	UpstreamDuration *prometheus.HistogramVec // label: service

	AskRequests  *prometheus.CounterVec // label: outcome={success,error}
	GeocodeCache *prometheus.CounterVec // label: result={hit,miss}
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.RequestsCreated,
		m.UpstreamRequests,
		m.UpstreamDuration,
		m.AskRequests,
		m.GeocodeCache,
	)
	return m
}

// NewMetricsForTesting creates Metrics without touching the default registry,
// so parallel tests do not trip "already registered" panics.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		RequestsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weather_advisor",
			Name:      "requests_created_total",
			Help:      "Total weather request records created.",
		}),
		UpstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "weather_advisor",
			Name:      "upstream_requests_total",
			Help:      "Outbound provider calls by service and outcome.",
		}, []string{"service", "outcome"}),
		UpstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "weather_advisor",
			Name:      "upstream_duration_seconds",
			Help:      "Outbound provider call duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"service"}),
		AskRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "weather_advisor",
			Name:      "ask_requests_total",
			Help:      "Assistant questions by outcome.",
		}, []string{"outcome"}),
		GeocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "weather_advisor",
			Name:      "geocode_cache_total",
			Help:      "Geocode cache lookups by result.",
		}, []string{"result"}),
	}
}

// ObserveUpstream records one outbound call.
func (m *Metrics) ObserveUpstream(service string, seconds float64, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.UpstreamRequests.WithLabelValues(service, outcome).Inc()
	m.UpstreamDuration.WithLabelValues(service).Observe(seconds)
}
