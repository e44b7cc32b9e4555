package pagination

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Sternrassler/boba-gallery/pkg/logging"
)

// ProcessConfig holds build-time batch settings.
type ProcessConfig struct {
	// BatchSize is the number of items run concurrently (default 10).
	BatchSize int

	// Delay is the pause between batches; none follows the last (default 1s).
	Delay time.Duration
}

// DefaultProcessConfig returns batches of 10 with a one second pause.
func DefaultProcessConfig() ProcessConfig {
	return ProcessConfig{
		BatchSize: 10,
		Delay:     1 * time.Second,
	}
}

// Process applies fn to every item. Items are grouped into batches of
// cfg.BatchSize; the items of a batch run concurrently and batches run one
// after another with cfg.Delay in between. Results keep the input order.
//
// The first error returned by fn cancels the batch it belongs to and is
// returned with the results completed before that batch. Cancelling ctx
// stops processing before the next batch.
func Process[T, R any](ctx context.Context, items []T, cfg ProcessConfig, fn func(context.Context, T) (R, error)) ([]R, error) {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultProcessConfig().BatchSize
	}
	if cfg.Delay < 0 {
		cfg.Delay = 0
	}

	logger := logging.NewLogger("batch")
	results := make([]R, len(items))
	batches := (len(items) + cfg.BatchSize - 1) / cfg.BatchSize
	start := time.Now()

	for b := 0; b < batches; b++ {
		if err := ctx.Err(); err != nil {
			logger.Warn().Int("batch", b+1).Int("total", batches).Msg("Batch processing cancelled")
			return results[:b*cfg.BatchSize], err
		}

		lo := b * cfg.BatchSize
		hi := min(lo+cfg.BatchSize, len(items))
		logger.Info().Int("batch", b+1).Int("total", batches).Msg("Processing batch")

		batchStart := time.Now()
		g, gctx := errgroup.WithContext(ctx)
		for i := lo; i < hi; i++ {
			g.Go(func() error {
				r, err := fn(gctx, items[i])
				if err != nil {
					return err
				}
				results[i] = r
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return results[:lo], err
		}
		BatchesProcessed.Inc()
		BatchDuration.Observe(time.Since(batchStart).Seconds())

		if b < batches-1 && cfg.Delay > 0 {
			timer := time.NewTimer(cfg.Delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				logger.Warn().Int("batch", b+1).Int("total", batches).Msg("Batch processing cancelled")
				return results[:hi], ctx.Err()
			case <-timer.C:
			}
		}
	}

	logger.Info().
		Int("items", len(items)).
		Int("batches", batches).
		Dur("duration", time.Since(start)).
		Msg("Batch processing complete")
	return results, nil
}
