package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks lookups answered from the persisted mapping by status
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gallery_image_cache_hits_total",
			Help: "Total number of image cache hits",
		},
		[]string{"status"}, // "optimized", "failed"
	)

	// CacheMisses tracks lookups that required an upload
	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gallery_image_cache_misses_total",
			Help: "Total number of image cache misses",
		},
	)

	// CacheEntries tracks the number of persisted entries
	CacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gallery_image_cache_entries",
			Help: "Current number of entries in the image cache",
		},
	)

	// Optimizations tracks upload outcomes recorded in the cache
	Optimizations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gallery_image_optimizations_total",
			Help: "Total number of image optimization attempts by outcome",
		},
		[]string{"status"}, // "optimized", "failed"
	)

	// SharedUploads tracks callers that joined an in-flight upload
	SharedUploads = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gallery_image_cache_shared_uploads_total",
			Help: "Total number of resolves that reused an in-flight upload",
		},
	)

	// CacheErrors tracks persistence errors
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gallery_image_cache_errors_total",
			Help: "Total number of image cache persistence errors",
		},
		[]string{"operation"}, // "load", "save"
	)
)
