// Package metrics holds the Prometheus collectors shared by the API, worker
// and pipeline. Collectors register on the default registry via promauto.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ExtractionsTotal counts finished extraction attempts by status and,
	// for failures, by failure kind.
	ExtractionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "salesdrop_extractions_total",
		Help: "Extraction attempts by final status and failure kind.",
	}, []string{"status", "kind"})

	// LargeReportsTotal counts successful reports above the large-row threshold.
	LargeReportsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "salesdrop_large_reports_total",
		Help: "Reports whose row count exceeded the configured threshold.",
	})

	// ReadDuration observes object storage reads by backend and outcome.
	ReadDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "salesdrop_storage_read_seconds",
		Help:    "Object storage read latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"backend", "outcome"})

	CacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "salesdrop_report_cache_hits_total",
		Help: "Report lookups served from the in-memory cache.",
	})
	CacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "salesdrop_report_cache_misses_total",
		Help: "Report lookups that went to the backing store.",
	})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "salesdrop_http_requests_total",
		Help: "HTTP requests by method, route and status.",
	}, []string{"method", "route", "status"})
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "salesdrop_http_request_duration_seconds",
		Help:    "HTTP request latency by method and route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})
)
