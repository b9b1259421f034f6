package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "sachtalks", Name: "rate_limit_allowed_total", Help: "Requests let through by limiter backend and budget."},
		[]string{"limiter", "budget"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "sachtalks", Name: "rate_limit_rejected_total", Help: "Requests rejected by limiter backend and budget."},
		[]string{"limiter", "budget"},
	)
	DispatchOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "sachtalks", Name: "dispatch_operations_total", Help: "Document store operations by action and outcome."},
		[]string{"action", "outcome"},
	)
	DispatchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Namespace: "sachtalks", Name: "dispatch_operation_duration_seconds", Help: "Document store operation latency.", Buckets: prometheus.DefBuckets},
		[]string{"action"},
	)
	StoreConnects = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "sachtalks", Name: "store_connects_total", Help: "Document store dial attempts by outcome."},
		[]string{"outcome"},
	)
	YouTubeRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "sachtalks", Name: "youtube_requests_total", Help: "YouTube Data API calls by endpoint and outcome."},
		[]string{"endpoint", "outcome"},
	)
	CacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "sachtalks", Name: "cache_lookups_total", Help: "Read-through cache lookups by cache and result."},
		[]string{"cache", "result"},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
	reg.MustRegister(DispatchOperations)
	reg.MustRegister(DispatchDuration)
	reg.MustRegister(StoreConnects)
	reg.MustRegister(YouTubeRequests)
	reg.MustRegister(CacheLookups)
}
