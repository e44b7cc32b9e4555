// Package cache provides the image optimization cache used by gallery builds.
//
// The cache manager maps each raw screenshot URL to a display URL with the
// following guarantees:
//
// - At most one CDN upload per distinct URL, across runs
// - Every outcome is persisted, success or failure (no automatic retry)
// - Resolve never fails; it falls back to the original URL
// - Persisted writes are atomic (temp file + rename, or MULTI/EXEC)
// - Concurrent resolves of the same URL share a single upload
//
// # Basic Usage
//
//	store := cache.NewFileStore(".github/data/image-metadata.json")
//	manager := cache.NewManager(store, cdnClient, logging.NewLogger("cache"))
//	if err := manager.Load(ctx); err != nil {
//		// Logged; the manager starts empty and re-optimizes.
//	}
//
//	displayURL := manager.Resolve(ctx, rawURL)
//
// # Keys
//
// Keys are the hex MD5 of the raw URL (see Key). The file format is a JSON
// object keyed by that digest:
//
//	{
//	  "5d41402abc4b2a76b9719d911017c592": {
//	    "originalUrl": "https://dl.airtable.com/...",
//	    "cdnUrl": "https://cdn.hackclub.com/...",
//	    "timestamp": "2024-06-01T12:00:00Z",
//	    "status": "optimized"
//	  }
//	}
//
// # Maintenance
//
// Entries are never deleted by Resolve. Operators force a retry with Forget
// or PruneFailed (exposed as "gallery cache prune").
//
// # Metrics
//
//   - gallery_image_cache_hits_total{status} - Cache hits
//   - gallery_image_cache_misses_total - Cache misses
//   - gallery_image_cache_entries - Persisted entries
//   - gallery_image_optimizations_total{status} - Upload outcomes
//   - gallery_image_cache_shared_uploads_total - Resolves joined to an in-flight upload
//   - gallery_image_cache_errors_total{operation} - Persistence errors
package cache
