// Command gallery builds and serves the Boba Drops submission gallery.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Sternrassler/boba-gallery/pkg/cache"
	"github.com/Sternrassler/boba-gallery/pkg/cdn"
	"github.com/Sternrassler/boba-gallery/pkg/client"
	"github.com/Sternrassler/boba-gallery/pkg/config"
	"github.com/Sternrassler/boba-gallery/pkg/gallery"
	"github.com/Sternrassler/boba-gallery/pkg/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "gallery: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gallery",
		Short: "Boba Drops submission gallery",
		Long: `gallery fetches Boba Drops submissions, optimizes their screenshots through
the CDN, and renders them into a static page or serves them with infinite scroll.
Configuration is read from the environment (API_TOKEN, GALLERY_*, REDIS_URL, LOG_*).`,
		SilenceUsage: true,
	}
	cmd.AddCommand(
		newBuildCmd(),
		newServeCmd(),
		newCacheCmd(),
	)
	return cmd
}

// loadConfig reads the environment and configures the global logger.
func loadConfig() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.New()
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	return cfg, logging.Setup(cfg.Logging()), nil
}

func newBuildCmd() *cobra.Command {
	var template, output string
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Render the gallery page when its content changed",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			if template != "" {
				cfg.Build.Template = template
			}
			if output != "" {
				cfg.Build.Output = output
			}

			result, err := runBuild(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			if result.Changed {
				fmt.Fprintf(cmd.OutOrStdout(), "gallery updated: %d submissions, %d optimized, checksum %s\n",
					result.Submissions, result.Optimized, result.Checksum)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "gallery unchanged (checksum %s)\n", result.Checksum)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&template, "template", "", "Template file (overrides GALLERY_TEMPLATE)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (overrides GALLERY_OUTPUT)")
	return cmd
}

func runBuild(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (gallery.Result, error) {
	if err := cfg.ValidateBuild(); err != nil {
		logger.Error().Err(err).Msg("API_TOKEN environment variable is required")
		return gallery.Result{}, err
	}

	query, err := client.New(cfg.QueryClient())
	if err != nil {
		return gallery.Result{}, err
	}
	uploader, err := cdn.New(cfg.Uploader())
	if err != nil {
		return gallery.Result{}, err
	}

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return gallery.Result{}, err
	}
	defer closeStore()

	images := cache.NewManager(store, uploader, logging.NewLogger("cache"))
	// A corrupt or unreadable cache is not fatal; every image is re-optimized.
	_ = images.Load(ctx)

	builder := gallery.NewBuilder(query, images, gallery.Config{
		TemplatePath: cfg.Build.Template,
		OutputPath:   cfg.Build.Output,
		ChecksumPath: cfg.Build.ChecksumFile,
		Batches:      cfg.Batches(),
	})
	return builder.Run(ctx)
}

// openStore returns the configured cache backend and a function releasing it.
func openStore(ctx context.Context, cfg *config.Config) (cache.Store, func(), error) {
	if cfg.Cache.Backend != config.BackendRedis {
		return cfg.CacheFile(), func() {}, nil
	}

	opts, err := redis.ParseURL(cfg.Cache.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	redisClient := redis.NewClient(opts)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		redisClient.Close()
		return nil, nil, fmt.Errorf("connect to redis at %s: %w", opts.Addr, err)
	}
	return cache.NewRedisStore(redisClient, cfg.Cache.RedisKey), func() { redisClient.Close() }, nil
}
