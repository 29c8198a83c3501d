// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ClassificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "collector_classifications_total",
			Help: "Total number of classifications by outcome",
		},
		[]string{"outcome"},
	)

	ClassificationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "collector_classification_errors_total",
			Help: "Total number of failed classifications by error code",
		},
		[]string{"error_code"},
	)

	SimilarityScore = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "collector_similarity_best_score",
			Help:    "Best similarity score found during a template scan",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		},
	)

	TemplateScanDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "collector_template_scan_duration_seconds",
			Help: "Duration of scoring a candidate against every template",
		},
	)

	TemplatesCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "collector_templates_created_total",
			Help: "Total number of templates created",
		},
	)

	MalformedRepresentatives = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "collector_malformed_representatives_total",
			Help: "Templates skipped during scans because their stored features failed to decode",
		},
	)
)
