// Package metrics provides Prometheus metrics for the clover service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DuplicateChecksTotal tracks duplicate checks by outcome
	DuplicateChecksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "dedupe",
			Name:      "checks_total",
			Help:      "Total number of duplicate checks by outcome",
		},
		[]string{"tenant_id", "outcome"},
	)

	// DuplicateCheckDuration tracks duplicate check duration in seconds
	DuplicateCheckDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "clover",
			Subsystem: "dedupe",
			Name:      "check_duration_seconds",
			Help:      "Duration of duplicate checks in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"tenant_id"},
	)

	// MatchConfidence tracks aggregate confidence of returned candidates
	MatchConfidence = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "clover",
			Subsystem: "dedupe",
			Name:      "match_confidence",
			Help:      "Aggregate confidence of ranked duplicate candidates",
			Buckets:   []float64{10, 20, 30, 40, 50, 60, 70, 80, 85, 90, 95, 100},
		},
		[]string{"field"},
	)

	// DecisionCacheTotal tracks decision cache lookups by result
	DecisionCacheTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "cache",
			Name:      "decisions_total",
			Help:      "Total number of decision cache lookups by result",
		},
		[]string{"result"},
	)

	// MergesTotal tracks merges by strategy and trigger
	MergesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "merge",
			Name:      "merges_total",
			Help:      "Total number of record merges by strategy and trigger",
		},
		[]string{"tenant_id", "strategy", "trigger"},
	)

	// MergeConflictsTotal tracks merge conflicts resolved
	MergeConflictsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "merge",
			Name:      "conflicts_total",
			Help:      "Total number of field conflicts resolved during merges",
		},
		[]string{"strategy"},
	)

	// ReviewQueueDepth tracks pending merge candidates awaiting review
	ReviewQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "clover",
			Subsystem: "review",
			Name:      "queue_depth",
			Help:      "Number of merge candidates pending human review",
		},
	)

	// IngestMessagesTotal tracks consumed lead messages by status
	IngestMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "ingest",
			Name:      "messages_total",
			Help:      "Total number of lead messages consumed by status",
		},
		[]string{"source", "status"},
	)

	// IngestLag tracks the delay between message production and processing
	IngestLag = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "clover",
			Subsystem: "ingest",
			Name:      "lag_seconds",
			Help:      "Delay between lead message production and processing in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300},
		},
	)

	// KafkaMessagesPublished tracks Kafka messages published
	KafkaMessagesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "kafka",
			Name:      "messages_published_total",
			Help:      "Total number of messages published to Kafka",
		},
		[]string{"topic", "status"},
	)
)

// RecordDuplicateCheck records a duplicate check outcome
func RecordDuplicateCheck(tenantID, outcome string, durationSeconds float64) {
	DuplicateChecksTotal.WithLabelValues(tenantID, outcome).Inc()
	DuplicateCheckDuration.WithLabelValues(tenantID).Observe(durationSeconds)
}

// RecordMatchConfidence records the confidence a field comparator produced
func RecordMatchConfidence(field string, confidence int) {
	MatchConfidence.WithLabelValues(field).Observe(float64(confidence))
}

// RecordCacheLookup records a decision cache hit or miss
func RecordCacheLookup(result string) {
	DecisionCacheTotal.WithLabelValues(result).Inc()
}

// RecordMerge records a completed merge
func RecordMerge(tenantID, strategy, trigger string, conflicts int) {
	MergesTotal.WithLabelValues(tenantID, strategy, trigger).Inc()
	MergeConflictsTotal.WithLabelValues(strategy).Add(float64(conflicts))
}

// RecordIngestMessage records a consumed lead message
func RecordIngestMessage(source, status string) {
	IngestMessagesTotal.WithLabelValues(source, status).Inc()
}
