package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests by method, route and status",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	BillsCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "billing_bills_created_total",
			Help: "Bills committed by the bill engine",
		},
	)

	BillFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_bill_failures_total",
			Help: "Bill creations that failed, by error kind",
		},
		[]string{"kind"},
	)

	BillAttemptRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_attempt_retries_total",
			Help: "Bill transaction attempts restarted after a conflict",
		},
		[]string{"reason"},
	)

	BillCreateDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "billing_bill_create_duration_seconds",
			Help:    "End-to-end bill creation latency including retries",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
	)

	CacheHitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_requests_total",
			Help: "Redis cache lookups by result",
		},
		[]string{"result"},
	)
)
