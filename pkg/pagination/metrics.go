package pagination

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// BatchesRendered counts batches handed to a Renderer.
	BatchesRendered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gallery_pagination_batches_rendered_total",
		Help: "Total number of batches appended to a renderer",
	})

	// TriggersAbsorbed counts LoadMore calls that were no-ops.
	TriggersAbsorbed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gallery_pagination_triggers_absorbed_total",
		Help: "Total number of load triggers ignored by reason",
	}, []string{"reason"}) // "loading", "exhausted"

	// BatchesProcessed counts build-time batches.
	BatchesProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gallery_batches_processed_total",
		Help: "Total number of build-time batches processed",
	})

	// BatchDuration tracks build-time batch processing time.
	BatchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "gallery_batch_duration_seconds",
		Help:    "Build-time batch processing duration in seconds",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
	})
)
