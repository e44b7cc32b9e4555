// Package pagination exposes an already-fetched record list in batches.
//
// Two paths share the package:
//
// Controller is the interactive path. It owns the pagination state for one
// gallery view (source list, cursor, visible prefix, loading guard) and
// hands each new batch to a Renderer. A scroll signal that fires on every
// event is safe: the loading guard and the cursor check make redundant
// triggers no-ops, so every record is rendered exactly once, in order.
//
//	ctrl, err := pagination.NewController(pagination.DefaultControllerConfig(), renderer)
//	ctrl.NewQuery(records)               // resets and renders the first batch
//	ctrl.OnScroll(pagination.Viewport{   // renders the next batch near the end
//		ScrollTop: 4200, WindowHeight: 900, DocumentHeight: 5600,
//	})
//
// Process is the build-time path. It groups items into fixed-size batches,
// runs each batch concurrently and pauses between batches so the image
// optimization service is not flooded:
//
//	results, err := pagination.Process(ctx, records, pagination.DefaultProcessConfig(), resolve)
package pagination
