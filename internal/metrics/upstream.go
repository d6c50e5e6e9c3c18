package metrics

import "github.com/prometheus/client_golang/prometheus"

// Upstream (ABS and chat-completion) Prometheus metrics.
var (
	ABSRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "absquery",
			Name:      "abs_requests_total",
			Help:      "Total number of ABS time-series API requests",
		},
		[]string{"status"},
	)

	ABSRequestDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "absquery",
			Name:      "abs_request_duration_seconds",
			Help:      "ABS time-series API request duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	ABSSeriesParsed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "absquery",
			Name:      "abs_series_parsed_total",
			Help:      "Total series records parsed from ABS responses",
		},
	)

	ChatRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "absquery",
			Name:      "chat_requests_total",
			Help:      "Total number of chat-completion requests",
		},
		[]string{"model", "status"},
	)

	ChatRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "absquery",
			Name:      "chat_request_duration_seconds",
			Help:      "Chat-completion request duration in seconds",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"model"},
	)

	ChatTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "absquery",
			Name:      "chat_tokens_total",
			Help:      "Total chat-completion tokens consumed",
		},
		[]string{"model", "type"},
	)

	ChatErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "absquery",
			Name:      "chat_errors_total",
			Help:      "Total chat-completion errors",
		},
		[]string{"model", "error_type"},
	)
)

var upstreamMetricsRegistered bool

// RegisterUpstreamMetrics registers Prometheus upstream metrics. Must be called once from main.
func RegisterUpstreamMetrics() {
	if upstreamMetricsRegistered {
		return
	}
	prometheus.MustRegister(ABSRequestsTotal)
	prometheus.MustRegister(ABSRequestDuration)
	prometheus.MustRegister(ABSSeriesParsed)
	prometheus.MustRegister(ChatRequestsTotal)
	prometheus.MustRegister(ChatRequestDuration)
	prometheus.MustRegister(ChatTokensTotal)
	prometheus.MustRegister(ChatErrorsTotal)
	upstreamMetricsRegistered = true
}
