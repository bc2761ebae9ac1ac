// Package metrics holds the Prometheus collectors shared by the HTTP layer
// and the connection services.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestsTotal counts HTTP requests by method, route pattern and status
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "devmatch_http_requests_total",
		Help: "Total HTTP requests by method, route and status code",
	}, []string{"method", "route", "status"})

	// HTTPRequestDuration tracks request latency by method and route pattern
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "devmatch_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
	}, []string{"method", "route"})

	// ConnectionRequestsTotal counts lifecycle operations by operation and outcome
	ConnectionRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "devmatch_connection_requests_total",
		Help: "Connection request operations by operation and result",
	}, []string{"operation", "result"})

	// NotificationFailuresTotal counts best-effort notifications that failed
	NotificationFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "devmatch_notification_failures_total",
		Help: "Failed connection event notifications by event type",
	}, []string{"event"})
)
