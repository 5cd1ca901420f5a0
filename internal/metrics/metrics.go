// OtakuMatch - Anime Taste Profiling and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/otakumatch

// Package metrics holds the Prometheus instrumentation shared by all
// OtakuMatch components. Collectors are registered on the default registry
// at package init and exposed by the server at /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Taste Profile Metrics
	ProfileActions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "otakumatch_profile_actions_total",
			Help: "Total number of profile actions by outcome",
		},
		[]string{"action", "result"}, // result: "applied", "duplicate", "invalid", "error"
	)

	ProfileLoadFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "otakumatch_profile_load_fallbacks_total",
			Help: "Total number of corrupt persisted profiles replaced by an empty profile",
		},
	)

	ProfileResets = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "otakumatch_profile_resets_total",
			Help: "Total number of explicit profile resets",
		},
	)

	ProfileTitles = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "otakumatch_profile_titles",
			Help: "Number of titles on each profile list",
		},
		[]string{"list"}, // "watched", "want"
	)

	// Recommendation Metrics
	RecommendRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "otakumatch_recommend_requests_total",
			Help: "Total number of recommendation requests",
		},
		[]string{"source", "result"}, // source: "top", "search"; result: "ok", "empty"
	)

	RecommendDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "otakumatch_recommend_duration_seconds",
			Help:    "End-to-end recommendation latency including catalog fetch",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"source"},
	)

	RecommendCandidates = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "otakumatch_recommend_candidates",
			Help:    "Candidate pool size per recommendation request",
			Buckets: []float64{0, 5, 10, 15, 20, 25, 50},
		},
	)

	RecommendExcluded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "otakumatch_recommend_excluded_total",
			Help: "Total number of candidates removed because they are already on a profile list",
		},
	)

	// Catalog Metrics
	CatalogRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "otakumatch_catalog_requests_total",
			Help: "Total number of upstream catalog requests",
		},
		[]string{"endpoint", "status"},
	)

	CatalogRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "otakumatch_catalog_request_duration_seconds",
			Help:    "Upstream catalog request duration in seconds, including throttle wait",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"endpoint"},
	)

	CatalogFetchFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "otakumatch_catalog_fetch_failures_total",
			Help: "Total number of catalog fetches that degraded to an empty result",
		},
		[]string{"operation"},
	)

	// Cache Metrics
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "otakumatch_cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"cache"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "otakumatch_cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"cache"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "otakumatch_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "otakumatch_circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerConsecutiveFailures = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "otakumatch_circuit_breaker_consecutive_failures",
			Help: "Current number of consecutive failures",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "otakumatch_circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Event Metrics
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "otakumatch_events_published_total",
			Help: "Total number of profile events published",
		},
		[]string{"action", "result"},
	)

	EventsConsumed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "otakumatch_events_consumed_total",
			Help: "Total number of profile events handled by subscribers",
		},
		[]string{"subscriber"},
	)

	// API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "otakumatch_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "otakumatch_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "otakumatch_api_active_requests",
			Help: "Current number of active API requests",
		},
	)
)

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordCatalogRequest records one upstream catalog call. A zero status
// means the request never produced a response.
func RecordCatalogRequest(endpoint string, status int, duration time.Duration) {
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	CatalogRequests.WithLabelValues(endpoint, label).Inc()
	CatalogRequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// RecordRecommendation records a completed recommendation request.
func RecordRecommendation(source string, candidates, excluded, returned int, duration time.Duration) {
	result := "ok"
	if returned == 0 {
		result = "empty"
	}
	RecommendRequests.WithLabelValues(source, result).Inc()
	RecommendDuration.WithLabelValues(source).Observe(duration.Seconds())
	RecommendCandidates.Observe(float64(candidates))
	RecommendExcluded.Add(float64(excluded))
}

// RecordCacheLookup records a cache hit or miss.
func RecordCacheLookup(cache string, hit bool) {
	if hit {
		CacheHits.WithLabelValues(cache).Inc()
	} else {
		CacheMisses.WithLabelValues(cache).Inc()
	}
}
