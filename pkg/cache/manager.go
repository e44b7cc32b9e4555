package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/Sternrassler/boba-gallery/pkg/logging"
	"github.com/Sternrassler/boba-gallery/pkg/submission"
)

var (
	// ErrInvalidEntry indicates the persisted mapping is corrupted
	ErrInvalidEntry = errors.New("invalid cache entry")

	// ErrNotOptimized is recorded when the CDN answers without a new URL
	ErrNotOptimized = errors.New("cdn returned no distinct url")

	// ErrStoreUnread is returned instead of saving while the persisted
	// mapping has never been read.
	ErrStoreUnread = errors.New("cache store unread, not overwriting")
)

// Uploader submits an image to the optimization service and returns the
// optimized URL.
type Uploader interface {
	Upload(ctx context.Context, rawURL string) (string, error)
}

// Manager maps raw image URLs to display URLs, uploading each distinct URL
// at most once and persisting every outcome.
type Manager struct {
	store    Store
	uploader Uploader
	logger   zerolog.Logger
	now      func() time.Time

	mu      sync.RWMutex
	entries map[string]Entry

	// saveMu serializes snapshot+save so the last write always holds
	// every entry recorded before it.
	saveMu sync.Mutex
	// loadFailed is set while the store holds a mapping Load could not
	// read. Guarded by saveMu.
	loadFailed bool
	flight     singleflight.Group
}

// NewManager creates a cache manager. A nil uploader makes the manager
// read-only: misses resolve to the raw URL and nothing is persisted.
func NewManager(store Store, uploader Uploader, logger zerolog.Logger) *Manager {
	if store == nil {
		panic("cache store cannot be nil")
	}
	return &Manager{
		store:    store,
		uploader: uploader,
		logger:   logger,
		now:      time.Now,
		entries:  map[string]Entry{},
	}
}

// Load replaces the in-memory mapping with the persisted one. When the store
// cannot be read the mapping is left empty and the error is returned; the
// manager stays usable and misses are re-optimized. Until the store is read
// successfully, saves re-read it first and merge what they find, so results
// from this run never replace a mapping that was not seen.
//
// Invalid entries are not retried: the readable part of the mapping, if the
// store returns one, is kept and the rest is overwritten on the next save.
func (m *Manager) Load(ctx context.Context) error {
	entries, err := m.store.Load(ctx)
	if err != nil {
		CacheErrors.WithLabelValues("load").Inc()
		m.logger.Warn().Err(err).Int("readable", len(entries)).Msg("Failed to load image cache, starting fresh")
		if entries == nil {
			entries = map[string]Entry{}
		}
	}

	m.saveMu.Lock()
	m.loadFailed = err != nil && !errors.Is(err, ErrInvalidEntry)
	m.saveMu.Unlock()

	m.mu.Lock()
	m.entries = entries
	m.mu.Unlock()
	CacheEntries.Set(float64(len(entries)))

	m.logger.Debug().Int("entries", len(entries)).Msg("Image cache loaded")
	return err
}

// Resolve returns the display URL for rawURL. It never fails: upload and
// persistence errors fall back to rawURL or to the in-memory result.
func (m *Manager) Resolve(ctx context.Context, rawURL string) string {
	return m.resolve(ctx, rawURL).ResolvedURL()
}

// ResolveSubmission attaches a display URL to s, using the placeholder image
// when s has no screenshot.
func (m *Manager) ResolveSubmission(ctx context.Context, s submission.Submission) submission.Enriched {
	raw, ok := s.PhotoURL()
	if !ok {
		return submission.Enrich(s, submission.PlaceholderImageURL, false)
	}
	e := m.resolve(ctx, raw)
	return submission.Enrich(s, e.ResolvedURL(), e.IsOptimized())
}

// Lookup returns the cached display URL for rawURL without uploading.
func (m *Manager) Lookup(rawURL string) (string, bool) {
	e, ok := m.get(Key(rawURL))
	if !ok {
		return "", false
	}
	return e.ResolvedURL(), true
}

// LookupSubmission is the read-only counterpart of ResolveSubmission: cached
// URLs are used when present, the raw screenshot otherwise.
func (m *Manager) LookupSubmission(s submission.Submission) submission.Enriched {
	raw, ok := s.PhotoURL()
	if !ok {
		return submission.Enrich(s, submission.PlaceholderImageURL, false)
	}
	if e, ok := m.get(Key(raw)); ok {
		return submission.Enrich(s, e.ResolvedURL(), e.IsOptimized())
	}
	return submission.Enrich(s, raw, false)
}

func (m *Manager) resolve(ctx context.Context, rawURL string) Entry {
	key := Key(rawURL)

	if e, ok := m.get(key); ok {
		CacheHits.WithLabelValues(string(e.Status)).Inc()
		m.logger.Debug().Str("key", shortKey(key)).Str("status", string(e.Status)).Msg("Using cached image")
		return e
	}

	if m.uploader == nil {
		return Entry{OriginalURL: rawURL, CDNURL: rawURL}
	}

	for {
		v, _, shared := m.flight.Do(key, func() (any, error) {
			// Another caller may have finished between get and Do.
			if e, ok := m.get(key); ok {
				return outcome{entry: e, recorded: true}, nil
			}
			CacheMisses.Inc()
			return m.optimize(ctx, key, rawURL), nil
		})
		if shared {
			SharedUploads.Inc()
		}
		// The upload runs under the first caller's context. When that caller
		// was cancelled, the others retry under their own.
		out := v.(outcome)
		if out.recorded || ctx.Err() != nil {
			return out.entry
		}
	}
}

// outcome is the result of one upload flight.
type outcome struct {
	entry    Entry
	recorded bool
}

// optimize uploads rawURL and records the outcome.
func (m *Manager) optimize(ctx context.Context, key, rawURL string) outcome {
	log := m.logger.With().Str("key", shortKey(key)).Str("url", logging.Truncate(rawURL, 50)).Logger()
	log.Info().Msg("Optimizing image")

	deployed, err := m.uploader.Upload(ctx, rawURL)

	entry := Entry{
		OriginalURL: rawURL,
		CDNURL:      rawURL,
		Timestamp:   m.now().UTC(),
		Status:      StatusFailed,
	}
	switch {
	case err != nil && ctx.Err() != nil:
		// Cancelled runs are not a verdict on the image; leave it unrecorded.
		log.Warn().Err(err).Msg("Optimization interrupted, using original image")
		return outcome{entry: entry}
	case err != nil:
		entry.Error = err.Error()
		log.Warn().Err(err).Msg("Failed to optimize image, using original")
	case deployed == "" || deployed == rawURL:
		entry.Error = ErrNotOptimized.Error()
		log.Warn().Msg("CDN returned no optimized copy, using original")
	default:
		entry.CDNURL = deployed
		entry.Status = StatusOptimized
		log.Info().Str("cdn_url", logging.Truncate(deployed, 50)).Msg("Optimized and cached image")
	}

	Optimizations.WithLabelValues(string(entry.Status)).Inc()
	m.put(ctx, key, entry)
	return outcome{entry: entry, recorded: true}
}

// put records entry in memory and persists the full mapping.
// A persistence failure is logged; the in-memory entry is kept.
func (m *Manager) put(ctx context.Context, key string, entry Entry) {
	m.mu.Lock()
	m.entries[key] = entry
	n := len(m.entries)
	m.mu.Unlock()
	CacheEntries.Set(float64(n))

	if err := m.persist(ctx); err != nil {
		m.logger.Error().Err(err).Str("key", shortKey(key)).Msg("Failed to save image cache")
	}
}

func (m *Manager) persist(ctx context.Context) error {
	m.saveMu.Lock()
	defer m.saveMu.Unlock()

	// Saving with a cancelled context would lose a result that is already known.
	ctx = context.WithoutCancel(ctx)
	if m.loadFailed {
		if err := m.reload(ctx); err != nil {
			CacheErrors.WithLabelValues("save").Inc()
			return err
		}
	}

	if err := m.store.Save(ctx, m.Entries()); err != nil {
		CacheErrors.WithLabelValues("save").Inc()
		return err
	}
	return nil
}

// reload merges the persisted mapping into memory after a failed Load.
// Entries recorded in this run win. Callers hold saveMu.
func (m *Manager) reload(ctx context.Context) error {
	stored, err := m.store.Load(ctx)
	if err != nil && !errors.Is(err, ErrInvalidEntry) {
		return fmt.Errorf("%w: %w", ErrStoreUnread, err)
	}

	m.mu.Lock()
	for k, e := range stored {
		if _, ok := m.entries[k]; !ok {
			m.entries[k] = e
		}
	}
	n := len(m.entries)
	m.mu.Unlock()
	CacheEntries.Set(float64(n))

	m.loadFailed = false
	m.logger.Info().Int("stored", len(stored)).Int("entries", n).Msg("Image cache store readable again, merged persisted entries")
	return nil
}

func (m *Manager) get(key string) (Entry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[key]
	return e, ok
}

// Entries returns a copy of the current mapping.
func (m *Manager) Entries() map[string]Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]Entry, len(m.entries))
	for k, v := range m.entries {
		out[k] = v
	}
	return out
}

// Len returns the number of entries.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Forget removes the entry for rawURL so the next Resolve uploads again.
// It reports whether an entry existed.
func (m *Manager) Forget(ctx context.Context, rawURL string) (bool, error) {
	key := Key(rawURL)

	m.mu.Lock()
	_, ok := m.entries[key]
	delete(m.entries, key)
	n := len(m.entries)
	m.mu.Unlock()

	if !ok {
		return false, nil
	}
	CacheEntries.Set(float64(n))
	return true, m.persist(ctx)
}

// PruneFailed removes every failed entry and returns how many were removed.
func (m *Manager) PruneFailed(ctx context.Context) (int, error) {
	m.mu.Lock()
	removed := 0
	for k, e := range m.entries {
		if e.Status != StatusOptimized {
			delete(m.entries, k)
			removed++
		}
	}
	n := len(m.entries)
	m.mu.Unlock()

	if removed == 0 {
		return 0, nil
	}
	CacheEntries.Set(float64(n))
	m.logger.Info().Int("removed", removed).Int("remaining", n).Msg("Pruned failed image cache entries")
	return removed, m.persist(ctx)
}
