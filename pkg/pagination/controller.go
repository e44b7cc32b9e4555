package pagination

import (
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/Sternrassler/boba-gallery/pkg/logging"
)

const (
	// DefaultBatchSize is the number of records revealed per step.
	DefaultBatchSize = 12

	// DefaultScrollThreshold is how close to the end of the document, in
	// pixels, the viewport must be to load the next batch.
	DefaultScrollThreshold = 1000
)

var (
	// ErrInvalidBatchSize is returned for a batch size below one.
	ErrInvalidBatchSize = errors.New("batch size must be > 0")

	// ErrNilRenderer is returned when no renderer is given.
	ErrNilRenderer = errors.New("renderer cannot be nil")
)

// Renderer receives the visible set as it grows.
type Renderer[T any] interface {
	// Reset clears everything rendered for the previous query.
	Reset()

	// Append renders the next batch, in source order.
	Append(batch []T)

	// Empty renders the empty state for a query with no records.
	Empty()
}

// ControllerConfig configures a Controller.
type ControllerConfig struct {
	// BatchSize is the number of records per step (must be > 0).
	BatchSize int

	// ScrollThreshold is the distance from the document end that triggers
	// the next batch. Zero means the viewport must reach the end.
	ScrollThreshold int
}

// DefaultControllerConfig returns batch size 12 and a 1000px threshold.
func DefaultControllerConfig() ControllerConfig {
	return ControllerConfig{
		BatchSize:       DefaultBatchSize,
		ScrollThreshold: DefaultScrollThreshold,
	}
}

// Viewport is a scroll position report.
type Viewport struct {
	ScrollTop      int
	WindowHeight   int
	DocumentHeight int
}

// NearEnd reports whether the bottom of the window is within threshold of
// the end of the document.
func (v Viewport) NearEnd(threshold int) bool {
	return v.ScrollTop+v.WindowHeight >= v.DocumentHeight-threshold
}

// State is a snapshot of a controller's pagination state.
// Visible is always Source[:Cursor].
type State[T any] struct {
	Source  []T
	Cursor  int
	Visible []T
	Loading bool
}

// Controller reveals one query's records in batches. Each instance is
// independent; it is safe for concurrent use. Renderer calls never overlap:
// a call raised while another is running, on any goroutine, is queued and
// run by that goroutine once the current call returns.
type Controller[T any] struct {
	batchSize int
	threshold int
	renderer  Renderer[T]
	logger    zerolog.Logger

	mu      sync.Mutex
	source  []T
	cursor  int
	visible []T
	loading bool
	// generation changes on every NewQuery so a render started for an
	// older query does not release the guard of the current one.
	generation uint64
	// pending holds renderer calls in the order they were raised.
	pending   []func()
	rendering bool
}

// NewController creates a controller with no query.
func NewController[T any](cfg ControllerConfig, renderer Renderer[T]) (*Controller[T], error) {
	if cfg.BatchSize <= 0 {
		return nil, ErrInvalidBatchSize
	}
	if renderer == nil {
		return nil, ErrNilRenderer
	}
	if cfg.ScrollThreshold < 0 {
		cfg.ScrollThreshold = 0
	}
	return &Controller[T]{
		batchSize: cfg.BatchSize,
		threshold: cfg.ScrollThreshold,
		renderer:  renderer,
		logger:    logging.NewLogger("pagination"),
	}, nil
}

// NewQuery replaces the source with records, resets the cursor and the
// renderer, then loads the first batch. An empty list renders the empty
// state instead.
func (c *Controller[T]) NewQuery(records []T) {
	c.mu.Lock()
	c.generation++
	c.source = append([]T(nil), records...)
	c.cursor = 0
	c.visible = nil
	c.loading = false
	n := len(c.source)
	c.renderLocked(func() {
		c.renderer.Reset()
		if n == 0 {
			c.renderer.Empty()
		}
	})

	c.logger.Debug().Int("total", n).Msg("New query")
	if n > 0 {
		c.LoadMore()
	}
}

// LoadMore renders the next batch and reports whether it did. It is a no-op
// while a batch is being rendered or when every record is visible. When
// called from inside a renderer call, the batch is rendered after that call
// returns.
func (c *Controller[T]) LoadMore() bool {
	c.mu.Lock()
	if c.loading {
		c.mu.Unlock()
		TriggersAbsorbed.WithLabelValues("loading").Inc()
		return false
	}
	if c.cursor >= len(c.source) {
		c.mu.Unlock()
		TriggersAbsorbed.WithLabelValues("exhausted").Inc()
		return false
	}

	c.loading = true
	gen := c.generation
	start := c.cursor
	end := min(start+c.batchSize, len(c.source))
	batch := c.source[start:end:end]
	c.visible = append(c.visible, batch...)
	c.cursor = end
	total := len(c.source)

	c.logger.Debug().
		Int("cursor", start).
		Int("end", end).
		Int("total", total).
		Msg("Rendering batch")

	// The guard stays set while the renderer runs, so a trigger raised from
	// inside Append is absorbed.
	c.renderLocked(func() {
		c.mu.Lock()
		current := c.generation == gen
		c.mu.Unlock()
		// A batch of a replaced query must not follow the new query's Reset.
		if current {
			c.renderer.Append(batch)
			BatchesRendered.Inc()
		}

		c.mu.Lock()
		if c.generation == gen {
			c.loading = false
		}
		c.mu.Unlock()
	})
	return true
}

// renderLocked queues op and, unless a renderer call is already running,
// runs queued calls until none are left. It is called with c.mu held and
// returns with it released.
func (c *Controller[T]) renderLocked(op func()) {
	c.pending = append(c.pending, op)
	if c.rendering {
		c.mu.Unlock()
		return
	}
	c.rendering = true
	for len(c.pending) > 0 {
		next := c.pending[0]
		c.pending = c.pending[1:]
		c.mu.Unlock()
		next()
		c.mu.Lock()
	}
	c.pending = nil
	c.rendering = false
	c.mu.Unlock()
}

// OnScroll loads the next batch when v is near the end of the document.
func (c *Controller[T]) OnScroll(v Viewport) bool {
	if !v.NearEnd(c.threshold) {
		return false
	}
	return c.LoadMore()
}

// Visible returns a copy of the records rendered so far.
func (c *Controller[T]) Visible() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]T(nil), c.visible...)
}

// Cursor returns the number of records rendered so far.
func (c *Controller[T]) Cursor() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cursor
}

// Len returns the size of the current query.
func (c *Controller[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.source)
}

// Done reports whether every record of the current query is visible.
func (c *Controller[T]) Done() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cursor >= len(c.source)
}

// State returns a snapshot of the pagination state.
func (c *Controller[T]) State() State[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return State[T]{
		Source:  append([]T(nil), c.source...),
		Cursor:  c.cursor,
		Visible: append([]T(nil), c.visible...),
		Loading: c.loading,
	}
}
