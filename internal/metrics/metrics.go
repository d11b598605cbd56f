package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aiotracker_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "aiotracker_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// SERP fetch metrics
	SERPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aiotracker_serp_requests_total",
			Help: "Total number of SERP provider calls",
		},
		[]string{"provider", "status"},
	)

	SERPDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "aiotracker_serp_request_duration_seconds",
			Help:    "SERP provider call duration in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40, 60},
		},
	)

	// Session metrics
	SessionsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aiotracker_sessions_created_total",
			Help: "Total number of check sessions created",
		},
		[]string{"source"},
	)

	KeywordsStored = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "aiotracker_keywords_stored_total",
			Help: "Total number of keyword rows stored",
		},
	)

	FetchJobsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "aiotracker_fetch_jobs_active",
			Help: "Number of fetch jobs currently running",
		},
	)

	// Analytics cache metrics
	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aiotracker_analytics_cache_lookups_total",
			Help: "Analytics cache lookups by result",
		},
		[]string{"result"},
	)

	// Scheduler and inbox metrics
	ScheduledRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aiotracker_scheduled_runs_total",
			Help: "Scheduled project fetches by outcome",
		},
		[]string{"status"},
	)

	InboxFiles = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aiotracker_inbox_files_total",
			Help: "Inbox files processed by outcome",
		},
		[]string{"status"},
	)
)
