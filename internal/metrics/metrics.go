// Package metrics exposes Prometheus instrumentation for the pipeline stages.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Ingestion
	IngestionRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingestion_runs_total",
			Help: "Total number of ingestion runs by outcome",
		},
		[]string{"status"},
	)

	MentionsIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mentions_ingested_total",
			Help: "Candidate mentions seen during ingestion, by platform and result (new, duplicate)",
		},
		[]string{"platform", "result"},
	)

	SourceFetchErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "source_fetch_errors_total",
			Help: "Source fetches that failed and were skipped",
		},
		[]string{"platform"},
	)

	IngestionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ingestion_duration_seconds",
			Help:    "Duration of ingestion runs in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Enrichment
	MentionsEnriched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mentions_enriched_total",
			Help: "Mentions processed by enrichment, by outcome (success, error)",
		},
		[]string{"status"},
	)

	EnrichmentFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "enrichment_fallbacks_total",
			Help: "Enrichment actions that fell back to a heuristic result",
		},
		[]string{"action"},
	)

	ClustersCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "clusters_created_total",
			Help: "Story clusters created",
		},
	)

	// LLM gateway
	LLMRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llm_requests_total",
			Help: "LLM gateway requests by outcome",
		},
		[]string{"status"},
	)

	LLMRequestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "llm_request_duration_seconds",
			Help:    "LLM gateway request latency in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	// Alerting
	AlertRulesEvaluated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alert_rules_evaluated_total",
			Help: "Alert rule evaluations by rule type and outcome",
		},
		[]string{"rule_type", "result"},
	)

	AlertsTriggered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alerts_triggered_total",
			Help: "Alerts created by rule type and severity",
		},
		[]string{"rule_type", "severity"},
	)

	NotificationDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_deliveries_total",
			Help: "External alert deliveries by channel and outcome",
		},
		[]string{"channel", "status"},
	)

	// API
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)
)

// RecordIngestion records the outcome of a single ingestion run
func RecordIngestion(duration time.Duration, err error) {
	IngestionDuration.Observe(duration.Seconds())
	if err != nil {
		IngestionRuns.WithLabelValues("error").Inc()
		return
	}
	IngestionRuns.WithLabelValues("success").Inc()
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordRuleEvaluation records whether a rule triggered, stayed quiet or failed
func RecordRuleEvaluation(ruleType string, triggered bool, err error) {
	switch {
	case err != nil:
		AlertRulesEvaluated.WithLabelValues(ruleType, "error").Inc()
	case triggered:
		AlertRulesEvaluated.WithLabelValues(ruleType, "triggered").Inc()
	default:
		AlertRulesEvaluated.WithLabelValues(ruleType, "quiet").Inc()
	}
}
