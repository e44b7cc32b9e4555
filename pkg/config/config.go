// Package config loads the gallery configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/Sternrassler/boba-gallery/pkg/cache"
	"github.com/Sternrassler/boba-gallery/pkg/cdn"
	"github.com/Sternrassler/boba-gallery/pkg/client"
	"github.com/Sternrassler/boba-gallery/pkg/logging"
	"github.com/Sternrassler/boba-gallery/pkg/pagination"
)

// Cache backends.
const (
	BackendFile  = "file"
	BackendRedis = "redis"
)

// ErrMissingToken is returned by ValidateBuild when API_TOKEN is unset.
var ErrMissingToken = cdn.ErrMissingToken

type (
	Config struct {
		Query  Query
		CDN    CDN
		Cache  Cache
		Build  Build
		Server Server
		Log    Log
	}

	Query struct {
		URL   string `env:"GALLERY_API_URL" envDefault:"https://api2.hackclub.com"`
		Base  string `env:"GALLERY_API_BASE" envDefault:"Boba Drops"`
		Table string `env:"GALLERY_API_TABLE" envDefault:"Websites"`
	}

	CDN struct {
		Token   string        `env:"API_TOKEN"`
		URL     string        `env:"GALLERY_CDN_URL" envDefault:"https://cdn.hackclub.com/api/v3/new"`
		Timeout time.Duration `env:"GALLERY_UPLOAD_TIMEOUT" envDefault:"30s"`
	}

	Cache struct {
		Backend  string `env:"GALLERY_CACHE_BACKEND" envDefault:"file"`
		File     string `env:"GALLERY_CACHE_FILE" envDefault:".github/data/image-metadata.json"`
		RedisURL string `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`
		RedisKey string `env:"GALLERY_CACHE_REDIS_KEY" envDefault:"gallery:image_metadata"`
	}

	Build struct {
		ChecksumFile string        `env:"GALLERY_CHECKSUM_FILE" envDefault:".github/data/gallery-checksum.txt"`
		Template     string        `env:"GALLERY_TEMPLATE" envDefault:"gallery.template.html"`
		Output       string        `env:"GALLERY_OUTPUT" envDefault:"gallery.html"`
		BatchSize    int           `env:"GALLERY_BATCH_SIZE" envDefault:"10"`
		BatchDelay   time.Duration `env:"GALLERY_BATCH_DELAY" envDefault:"1s"`
	}

	Server struct {
		ListenAddr      string `env:"GALLERY_LISTEN_ADDR" envDefault:":8080"`
		PageSize        int    `env:"GALLERY_PAGE_SIZE" envDefault:"12"`
		ScrollThreshold int    `env:"GALLERY_SCROLL_THRESHOLD" envDefault:"1000"`
	}

	Log struct {
		Level  string `env:"LOG_LEVEL" envDefault:"info"`
		Pretty bool   `env:"LOG_PRETTY" envDefault:"false"`
	}
)

// New reads the process environment.
func New() (*Config, error) {
	return parse(env.Options{})
}

// FromMap reads configuration from vars instead of the process environment.
func FromMap(vars map[string]string) (*Config, error) {
	return parse(env.Options{Environment: vars})
}

func parse(opts env.Options) (*Config, error) {
	cfg := &Config{}

	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}

	return cfg, nil
}

// Validate checks settings shared by every command.
func (c *Config) Validate() error {
	var errs []error
	switch c.Cache.Backend {
	case BackendFile, BackendRedis:
	default:
		errs = append(errs, fmt.Errorf("GALLERY_CACHE_BACKEND must be %q or %q, got %q", BackendFile, BackendRedis, c.Cache.Backend))
	}
	if c.Build.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("GALLERY_BATCH_SIZE must be > 0, got %d", c.Build.BatchSize))
	}
	if c.Build.BatchDelay < 0 {
		errs = append(errs, fmt.Errorf("GALLERY_BATCH_DELAY must not be negative, got %s", c.Build.BatchDelay))
	}
	if c.Server.PageSize <= 0 {
		errs = append(errs, fmt.Errorf("GALLERY_PAGE_SIZE must be > 0, got %d", c.Server.PageSize))
	}
	if c.Server.ScrollThreshold < 0 {
		errs = append(errs, fmt.Errorf("GALLERY_SCROLL_THRESHOLD must not be negative, got %d", c.Server.ScrollThreshold))
	}
	return errors.Join(errs...)
}

// ValidateBuild checks the settings only the build command needs.
func (c *Config) ValidateBuild() error {
	if c.CDN.Token == "" {
		return ErrMissingToken
	}
	return nil
}

// Logging returns the logger configuration.
func (c *Config) Logging() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = logging.LogLevel(c.Log.Level)
	cfg.Pretty = c.Log.Pretty
	return cfg
}

// QueryClient returns the query API client configuration.
func (c *Config) QueryClient() client.Config {
	cfg := client.DefaultConfig()
	cfg.BaseURL = c.Query.URL
	cfg.Base = c.Query.Base
	cfg.Table = c.Query.Table
	return cfg
}

// Uploader returns the CDN client configuration.
func (c *Config) Uploader() cdn.Config {
	return cdn.Config{
		Endpoint: c.CDN.URL,
		Token:    c.CDN.Token,
		Timeout:  c.CDN.Timeout,
	}
}

// Batches returns the build-time batch settings.
func (c *Config) Batches() pagination.ProcessConfig {
	return pagination.ProcessConfig{
		BatchSize: c.Build.BatchSize,
		Delay:     c.Build.BatchDelay,
	}
}

// Pages returns the interactive pagination settings.
func (c *Config) Pages() pagination.ControllerConfig {
	return pagination.ControllerConfig{
		BatchSize:       c.Server.PageSize,
		ScrollThreshold: c.Server.ScrollThreshold,
	}
}

// CacheFile returns the file store for the configured path.
func (c *Config) CacheFile() *cache.FileStore {
	return cache.NewFileStore(c.Cache.File)
}
