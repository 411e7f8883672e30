// SipLens - VoIP Call Quality Monitoring and Alerting
// Copyright 2026 SipLens Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/siplens/siplens

// Package metrics provides Prometheus instrumentation for the monitoring
// engine: sample ingestion, alerting, storage, HTTP, the threshold cache and
// the daily rankings batch.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Sample ingestion
	SamplesRecorded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "siplens_samples_recorded_total",
			Help: "Total number of quality samples recorded",
		},
		[]string{"tenant_id", "quality_label"},
	)

	SampleMOS = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "siplens_sample_mos",
			Help:    "Distribution of MOS scores across recorded samples",
			Buckets: []float64{1.0, 1.5, 2.0, 2.5, 3.0, 3.5, 4.0, 4.3, 4.5},
		},
	)

	// Alerting
	AlertsRaised = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "siplens_alerts_raised_total",
			Help: "Total number of quality alerts raised",
		},
		[]string{"alert_type", "severity"},
	)

	AlertsPublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "siplens_alert_events_published_total",
			Help: "Total number of alert events published to the notification bus",
		},
	)

	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "siplens_notifications_sent_total",
			Help: "Total number of alert notifications forwarded to the transport",
		},
		[]string{"outcome"}, // "sent", "rate_limited", "breaker_open", "error"
	)

	// Storage
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "siplens_db_query_duration_seconds",
			Help:    "Duration of DuckDB queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "siplens_db_query_errors_total",
			Help: "Total number of DuckDB query errors",
		},
		[]string{"operation", "table"},
	)

	// Threshold cache
	ThresholdCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "siplens_threshold_cache_hits_total",
			Help: "Tenant threshold lookups served from cache",
		},
	)

	ThresholdCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "siplens_threshold_cache_misses_total",
			Help: "Tenant threshold lookups that fell through to storage",
		},
	)

	// API
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "siplens_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "siplens_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "endpoint"},
	)

	// Rankings batch
	RankingsBatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "siplens_rankings_batch_duration_seconds",
			Help:    "Duration of carrier/agent score batch runs in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300},
		},
		[]string{"entity"}, // "carrier" or "agent"
	)

	RankingsBatchErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "siplens_rankings_batch_errors_total",
			Help: "Per-entity failures during score batch runs",
		},
		[]string{"entity"},
	)

	// Retention janitor
	SamplesPurged = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "siplens_samples_purged_total",
			Help: "Samples deleted by the retention janitor",
		},
	)
)

// ObserveDBQuery records one database query's duration and outcome.
func ObserveDBQuery(operation, table string, start time.Time, err error) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(operation, table).Inc()
	}
}
