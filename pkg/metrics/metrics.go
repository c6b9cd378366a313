// Package metrics provides the Prometheus collectors and HTTP middleware used
// to monitor the assistant backend.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// LLMBuckets defines histogram buckets suited for inference latencies, from
// 100ms to 5 minutes.
var LLMBuckets = []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300}

// Adapter outcome label values.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

var (
	// RequestsTotal counts HTTP requests by method, route and status class.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "murasame_requests_total",
			Help: "Total requests",
		},
		[]string{"method", "route", "status"},
	)

	// RequestDuration records HTTP request duration in seconds.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "murasame_request_duration_seconds",
			Help:    "Request duration",
			Buckets: LLMBuckets,
		},
		[]string{"method", "route"},
	)

	// InFlightRequests tracks requests currently being served.
	InFlightRequests = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "murasame_requests_in_flight",
			Help: "Requests in flight",
		},
	)

	// EnvelopesTotal counts response envelopes by endpoint and envelope status.
	EnvelopesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "murasame_envelopes_total",
			Help: "Response envelopes",
		},
		[]string{"endpoint", "status"},
	)

	// AdapterRequestsTotal counts calls made to backend adapters.
	AdapterRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "murasame_adapter_requests_total",
			Help: "Adapter requests",
		},
		[]string{"adapter", "endpoint", "outcome"},
	)

	// AdapterLatency records backend adapter latency in seconds.
	AdapterLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "murasame_adapter_latency_seconds",
			Help:    "Adapter latency",
			Buckets: LLMBuckets,
		},
		[]string{"adapter", "endpoint"},
	)

	// FallbacksTotal counts fallbacks from a failed adapter to the next one.
	FallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "murasame_fallbacks_total",
			Help: "Adapter fallbacks",
		},
		[]string{"endpoint", "from"},
	)

	// ConfigReloadsTotal counts configuration reloads by result.
	ConfigReloadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "murasame_config_reloads_total",
			Help: "Configuration reloads",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		InFlightRequests,
		EnvelopesTotal,
		AdapterRequestsTotal,
		AdapterLatency,
		FallbacksTotal,
		ConfigReloadsTotal,
	)
}
