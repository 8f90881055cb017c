package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ReportsGeneratedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reports_generated_total",
		Help: "Total number of reports computed",
	}, []string{"report"})

	ReportFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "report_failures_total",
		Help: "Total number of failed report computations",
	}, []string{"report", "reason"})

	ReportComputeLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "report_compute_latency_seconds",
		Help:    "Latency of report computations",
		Buckets: prometheus.DefBuckets,
	}, []string{"report"})

	ReportRows = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "report_rows",
		Help: "Row count of the last computed report",
	}, []string{"report"})

	ReportCacheHitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "report_cache_hits_total",
		Help: "Total number of reports served from cache",
	}, []string{"report"})

	ReportCacheMissesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "report_cache_misses_total",
		Help: "Total number of report cache misses",
	}, []string{"report"})

	SnapshotLoadLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "snapshot_load_latency_seconds",
		Help:    "Latency of loading the order snapshot",
		Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
	})

	SnapshotRows = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "snapshot_rows",
		Help: "Rows per relation in the last loaded snapshot",
	}, []string{"relation"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
