package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		paymentVerifyRequests,
		paymentVerifyDuration,
		subscriptionExtensions,
		rateLimitedTotal,
	)
}

var (
	// result: ok|fail
	// reason: completed|already_processed|ignored on ok, the error kind on fail
	paymentVerifyRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_verify_requests_total",
			Help: "Count of verify-payment calls by channel, result and reason.",
		},
		[]string{"channel", "result", "reason"},
	)

	paymentVerifyDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "payment_verify_duration_seconds",
			Help:    "Duration of verify-payment handling in seconds.",
			Buckets: []float64{0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"channel"},
	)

	// source: verify|reconciler
	// result: ok|fail
	subscriptionExtensions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "subscription_extensions_total",
			Help: "Subscription extensions triggered by completed payments.",
		},
		[]string{"source", "result"},
	)

	rateLimitedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limited_total",
			Help: "Requests rejected by the rate limiter, per route.",
		},
		[]string{"route"},
	)
)

func ObserveVerify(channel, result, reason string, took time.Duration) {
	paymentVerifyRequests.WithLabelValues(norm(channel), norm(result), norm(reason)).Inc()
	paymentVerifyDuration.WithLabelValues(norm(channel)).Observe(took.Seconds())
}

func IncSubscriptionExtension(source string, ok bool) {
	result := "ok"
	if !ok {
		result = "fail"
	}
	subscriptionExtensions.WithLabelValues(norm(source), result).Inc()
}

func IncRateLimited(route string) {
	rateLimitedTotal.WithLabelValues(norm(route)).Inc()
}
