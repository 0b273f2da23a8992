package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Gate metrics
	QuotaDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sqlhelper_quota_decisions_total",
			Help: "Quota evaluations by outcome",
		},
		[]string{"outcome"}, // outcome: allowed|denied|fail_closed
	)

	TokensRecorded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sqlhelper_tokens_recorded_total",
			Help: "Tokens added to the usage ledger",
		},
		[]string{"kind"}, // kind: request|response
	)

	SessionEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sqlhelper_session_events_total",
			Help: "Session registry events",
		},
		[]string{"event"}, // event: created|evicted|validated|rejected|expired|removed
	)

	StoreFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sqlhelper_store_failures_total",
			Help: "Backing store errors seen at component boundaries",
		},
		[]string{"component", "op"},
	)

	// Assistant metrics
	AssistantCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sqlhelper_assistant_calls_total",
			Help: "Assistant completions by task, model and status",
		},
		[]string{"task", "model", "status"}, // status: success|error|denied
	)

	AssistantLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sqlhelper_assistant_latency_seconds",
			Help:    "Assistant completion latency in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
		},
		[]string{"task", "model"},
	)

	// HTTP metrics
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sqlhelper_http_requests_total",
			Help: "HTTP requests by route, method and status code",
		},
		[]string{"route", "method", "code"},
	)

	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sqlhelper_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)
)

func init() {
	prometheus.MustRegister(QuotaDecisions)
	prometheus.MustRegister(TokensRecorded)
	prometheus.MustRegister(SessionEvents)
	prometheus.MustRegister(StoreFailures)

	prometheus.MustRegister(AssistantCalls)
	prometheus.MustRegister(AssistantLatency)

	prometheus.MustRegister(HTTPRequests)
	prometheus.MustRegister(HTTPDuration)
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
