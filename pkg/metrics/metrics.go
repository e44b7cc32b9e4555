// Package metrics exposes the Prometheus registry used by the gallery.
// All metrics are defined in their respective packages (cache, cdn, client,
// gallery, pagination) to maintain modularity and avoid circular dependencies.
//
// This package provides the /metrics handler and a reference for every
// available metric.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry used by the gallery.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Gatherer is the source Handler serves from.
var Gatherer = prometheus.DefaultGatherer

// Handler serves every registered metric in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.InstrumentMetricHandler(Registry, promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{}))
}

// Metrics Documentation
//
// Image Cache Metrics (pkg/cache):
//   - gallery_image_cache_hits_total{status} (Counter): Lookups answered from the cache
//   - gallery_image_cache_misses_total (Counter): Lookups that required an upload
//   - gallery_image_cache_entries (Gauge): Entries in the in-memory mapping
//   - gallery_image_optimizations_total{status} (Counter): Upload outcomes (optimized, failed)
//   - gallery_image_cache_shared_uploads_total (Counter): Callers that joined an in-flight upload
//   - gallery_image_cache_errors_total{operation} (Counter): Store load/save failures
//
// CDN Metrics (pkg/cdn):
//   - gallery_cdn_uploads_total{result} (Counter): Upload requests by result
//   - gallery_cdn_upload_duration_seconds (Histogram): Upload latency
//
// Query Metrics (pkg/client):
//   - gallery_query_requests_total{status} (Counter): Query API requests by HTTP status
//   - gallery_query_request_duration_seconds (Histogram): Query API latency
//   - gallery_query_errors_total{class} (Counter): Errors by class (client, server, network, decode)
//   - gallery_query_retries_total{error_class} (Counter): Retry attempts by error class
//   - gallery_query_retry_backoff_seconds{error_class} (Histogram): Backoff duration by error class
//   - gallery_query_retry_exhausted_total{error_class} (Counter): Requests that exhausted max retries
//
// Pagination Metrics (pkg/pagination):
//   - gallery_pagination_batches_rendered_total (Counter): Interactive batches rendered
//   - gallery_pagination_triggers_absorbed_total{reason} (Counter): Load triggers ignored (loading, exhausted)
//   - gallery_batches_processed_total (Counter): Build batches processed
//   - gallery_batch_duration_seconds (Histogram): Build batch duration
//
// Build Metrics (pkg/gallery):
//   - gallery_builds_total{result} (Counter): Builds by result (updated, unchanged, failed)
//   - gallery_build_submissions (Gauge): Submissions in the last build
//
// Example Prometheus Queries:
//
//   # Image Cache Hit Rate
//   sum(rate(gallery_image_cache_hits_total[5m])) /
//   (sum(rate(gallery_image_cache_hits_total[5m])) + sum(rate(gallery_image_cache_misses_total[5m])))
//
//   # Failed Optimizations
//   rate(gallery_image_optimizations_total{status="failed"}[1h])
//
//   # P95 Upload Latency
//   histogram_quantile(0.95, rate(gallery_cdn_upload_duration_seconds_bucket[5m]))
//
//   # Builds That Rewrote The Page
//   increase(gallery_builds_total{result="updated"}[1d])
