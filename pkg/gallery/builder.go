// Package gallery builds the static gallery page: fetch every submission,
// resolve its image through the optimization cache, render, and write the
// page only when the content changed.
package gallery

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/boba-gallery/internal/fsutil"
	"github.com/Sternrassler/boba-gallery/pkg/logging"
	"github.com/Sternrassler/boba-gallery/pkg/pagination"
	"github.com/Sternrassler/boba-gallery/pkg/render"
	"github.com/Sternrassler/boba-gallery/pkg/submission"
)

var (
	buildsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gallery_builds_total",
		Help: "Total gallery builds by result",
	}, []string{"result"}) // "updated", "unchanged", "failed"

	buildSubmissions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gallery_build_submissions",
		Help: "Number of submissions in the last build",
	})
)

const (
	// DefaultChecksumPath holds the checksum of the last written content.
	DefaultChecksumPath = ".github/data/gallery-checksum.txt"

	// DefaultTemplatePath is the page template.
	DefaultTemplatePath = "gallery.template.html"

	// DefaultOutputPath is the generated page.
	DefaultOutputPath = "gallery.html"
)

// Lister fetches submissions.
type Lister interface {
	List(ctx context.Context, filter submission.Filter) ([]submission.Submission, error)
}

// Resolver attaches a display image to a submission. It never fails.
type Resolver interface {
	ResolveSubmission(ctx context.Context, s submission.Submission) submission.Enriched
}

// Config holds the build paths and batch settings.
type Config struct {
	TemplatePath string
	OutputPath   string
	ChecksumPath string
	Batches      pagination.ProcessConfig
}

// DefaultConfig returns the repository layout defaults.
func DefaultConfig() Config {
	return Config{
		TemplatePath: DefaultTemplatePath,
		OutputPath:   DefaultOutputPath,
		ChecksumPath: DefaultChecksumPath,
		Batches:      pagination.DefaultProcessConfig(),
	}
}

// Result summarizes a build.
type Result struct {
	Submissions int
	Optimized   int
	Checksum    string
	Changed     bool
	Duration    time.Duration
}

// Builder runs the build pipeline.
type Builder struct {
	lister   Lister
	resolver Resolver
	config   Config
	logger   zerolog.Logger
}

// NewBuilder creates a builder. Empty paths take their defaults.
func NewBuilder(lister Lister, resolver Resolver, cfg Config) *Builder {
	if lister == nil || resolver == nil {
		panic("gallery builder needs a lister and a resolver")
	}
	def := DefaultConfig()
	if cfg.TemplatePath == "" {
		cfg.TemplatePath = def.TemplatePath
	}
	if cfg.OutputPath == "" {
		cfg.OutputPath = def.OutputPath
	}
	if cfg.ChecksumPath == "" {
		cfg.ChecksumPath = def.ChecksumPath
	}
	return &Builder{
		lister:   lister,
		resolver: resolver,
		config:   cfg,
		logger:   logging.NewLogger("gallery"),
	}
}

// Run fetches, resolves and renders every submission. The output page and
// the checksum are written only when the rendered content differs from the
// last build.
func (b *Builder) Run(ctx context.Context) (Result, error) {
	start := time.Now()
	result, err := b.run(ctx)
	result.Duration = time.Since(start)

	switch {
	case err != nil:
		buildsTotal.WithLabelValues("failed").Inc()
		b.logger.Error().Err(err).Dur("duration", result.Duration).Msg("Gallery build failed")
	case result.Changed:
		buildsTotal.WithLabelValues("updated").Inc()
		b.logger.Info().
			Int("submissions", result.Submissions).
			Int("optimized", result.Optimized).
			Str("checksum", result.Checksum).
			Dur("duration", result.Duration).
			Msg("Gallery updated successfully")
	default:
		buildsTotal.WithLabelValues("unchanged").Inc()
		b.logger.Info().
			Str("checksum", result.Checksum).
			Dur("duration", result.Duration).
			Msg("Gallery content unchanged, skipping update")
	}
	return result, err
}

func (b *Builder) run(ctx context.Context) (Result, error) {
	var result Result

	b.logger.Info().Msg("Fetching submissions")
	records, err := b.lister.List(ctx, submission.Filter{})
	if err != nil {
		return result, fmt.Errorf("fetch submissions: %w", err)
	}
	result.Submissions = len(records)
	buildSubmissions.Set(float64(len(records)))
	b.logger.Info().Int("total", len(records)).Msg("Found submissions")

	enriched, err := pagination.Process(ctx, records, b.config.Batches,
		func(ctx context.Context, s submission.Submission) (submission.Enriched, error) {
			return b.resolver.ResolveSubmission(ctx, s), nil
		})
	if err != nil {
		return result, fmt.Errorf("resolve images: %w", err)
	}
	for _, e := range enriched {
		if e.IsOptimized {
			result.Optimized++
		}
	}

	content := render.Gallery(enriched)
	result.Checksum = Checksum(content)

	if previous := b.previousChecksum(); previous == result.Checksum {
		return result, nil
	}

	b.logger.Info().Msg("Gallery content changed, updating")
	if err := b.write(content, result.Checksum); err != nil {
		return result, err
	}
	result.Changed = true
	return result, nil
}

// previousChecksum returns the stored checksum, or "" when there is none
// or it cannot be read.
func (b *Builder) previousChecksum() string {
	data, err := os.ReadFile(b.config.ChecksumPath)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			b.logger.Warn().Err(err).Str("path", b.config.ChecksumPath).Msg("Failed to read gallery checksum, treating content as changed")
		}
		return ""
	}
	return strings.TrimSpace(string(data))
}

// write renders the page and stores it before the checksum, so an
// interrupted build is detected as changed next time. Only a failed page
// write is an error: once the page is on disk a missing checksum costs a
// redundant rewrite on the next build.
func (b *Builder) write(content, checksum string) error {
	tmpl, err := os.ReadFile(b.config.TemplatePath)
	if err != nil {
		return fmt.Errorf("read template: %w", err)
	}
	page, err := render.Substitute(string(tmpl), content)
	if err != nil {
		return fmt.Errorf("render %s: %w", b.config.TemplatePath, err)
	}

	if err := fsutil.WriteFileAtomic(b.config.OutputPath, []byte(page), 0o644); err != nil {
		return fmt.Errorf("write gallery: %w", err)
	}
	if err := fsutil.WriteFileAtomic(b.config.ChecksumPath, []byte(checksum), 0o644); err != nil {
		b.logger.Warn().Err(err).Str("path", b.config.ChecksumPath).Msg("Failed to write gallery checksum, next build will rewrite the page")
	}
	return nil
}

// Checksum is the MD5 hex digest of rendered content.
func Checksum(content string) string {
	sum := md5.Sum([]byte(content))
	return hex.EncodeToString(sum[:])
}
