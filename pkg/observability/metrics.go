// Package observability provides Prometheus metrics and HTTP middleware
// for monitoring promptgate.
package observability

import "github.com/prometheus/client_golang/prometheus"

// LatencyBuckets defines histogram buckets suited for generation latencies,
// ranging from 5ms to 120s.
var LatencyBuckets = []float64{0.005, 0.025, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 120}

// SizeBuckets defines histogram buckets for body sizes in bytes, from 64 B
// to 4 MiB.
var SizeBuckets = prometheus.ExponentialBuckets(64, 4, 10)

var (
	// RequestsTotal counts all HTTP requests by method and status class.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "promptgate_requests_total",
			Help: "Total requests",
		},
		[]string{"method", "status"},
	)

	// RequestDuration records HTTP request duration in seconds by method.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "promptgate_request_duration_seconds",
			Help:    "Request duration",
			Buckets: LatencyBuckets,
		},
		[]string{"method"},
	)

	// RequestsInFlight tracks requests currently being served.
	RequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "promptgate_requests_in_flight",
			Help: "Requests currently being served",
		},
	)

	// RouteDecisionsTotal counts routing outcomes (matched, unmatched, malformed).
	RouteDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "promptgate_route_decisions_total",
			Help: "Route decisions",
		},
		[]string{"decision"},
	)

	// RequestBodyBytes records the size of drained request bodies.
	RequestBodyBytes = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "promptgate_request_body_bytes",
			Help:    "Drained request body size",
			Buckets: SizeBuckets,
		},
	)

	// ResponseChunksTotal counts body chunks written for buffered responses.
	ResponseChunksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "promptgate_response_chunks_total",
			Help: "Buffered response chunks written",
		},
	)

	// ResponseBytesTotal counts response body bytes by mode (buffered/streaming).
	ResponseBytesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "promptgate_response_bytes_total",
			Help: "Response body bytes written",
		},
		[]string{"mode"},
	)

	// StreamingResponses tracks the number of streamed responses in flight.
	StreamingResponses = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "promptgate_streaming_responses_active",
			Help: "Active streaming responses",
		},
	)

	// BackendRequestsTotal counts calls to the generation backend.
	BackendRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "promptgate_backend_requests_total",
			Help: "Backend requests",
		},
		[]string{"backend", "mode", "status"},
	)

	// BackendLatency records backend call latency in seconds.
	BackendLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "promptgate_backend_latency_seconds",
			Help:    "Backend latency",
			Buckets: LatencyBuckets,
		},
		[]string{"backend", "mode"},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		RequestsInFlight,
		RouteDecisionsTotal,
		RequestBodyBytes,
		ResponseChunksTotal,
		ResponseBytesTotal,
		StreamingResponses,
		BackendRequestsTotal,
		BackendLatency,
	)
}
