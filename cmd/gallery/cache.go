package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/Sternrassler/boba-gallery/pkg/cache"
	"github.com/Sternrassler/boba-gallery/pkg/logging"
)

// errNoEntry is returned by cache forget for an unknown URL.
var errNoEntry = errors.New("no cache entry for url")

func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and maintain the image optimization cache",
	}
	cmd.AddCommand(
		newCacheListCmd(),
		newCachePruneCmd(),
		newCacheForgetCmd(),
	)
	return cmd
}

func newCacheListCmd() *cobra.Command {
	var failedOnly bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List cached images",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCache(cmd.Context(), func(m *cache.Manager) error {
				return writeEntries(cmd.OutOrStdout(), m.Entries(), failedOnly)
			})
		},
	}
	cmd.Flags().BoolVar(&failedOnly, "failed", false, "Only list failed optimizations")
	return cmd
}

func newCachePruneCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Remove failed entries so the next build retries them",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCache(cmd.Context(), func(m *cache.Manager) error {
				removed, err := m.PruneFailed(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "removed %d failed entries, %d remaining\n", removed, m.Len())
				return nil
			})
		},
	}
}

func newCacheForgetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "forget <url>...",
		Short: "Remove the entries for the given image URLs",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCache(cmd.Context(), func(m *cache.Manager) error {
				for _, rawURL := range args {
					ok, err := m.Forget(cmd.Context(), rawURL)
					if err != nil {
						return err
					}
					if !ok {
						return fmt.Errorf("%w: %s", errNoEntry, rawURL)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "forgot %s\n", rawURL)
				}
				return nil
			})
		},
	}
}

// withCache opens the configured store and runs fn against a manager with no
// uploader. Unlike a build, an unreadable cache is an error here: the
// commands inspect or edit the stored mapping, so they need to have read it.
func withCache(ctx context.Context, fn func(*cache.Manager) error) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	m := cache.NewManager(store, nil, logging.NewLogger("cache"))
	if err := m.Load(ctx); err != nil {
		return fmt.Errorf("load image cache: %w", err)
	}
	return fn(m)
}

// writeEntries prints entries as a table ordered by original URL.
func writeEntries(w io.Writer, entries map[string]cache.Entry, failedOnly bool) error {
	rows := make([]cache.Entry, 0, len(entries))
	for _, e := range entries {
		if failedOnly && e.Status == cache.StatusOptimized {
			continue
		}
		rows = append(rows, e)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].OriginalURL < rows[j].OriginalURL })

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STATUS\tUPDATED\tORIGINAL\tRESOLVED\tERROR")
	for _, e := range rows {
		updated := "-"
		if !e.Timestamp.IsZero() {
			updated = e.Timestamp.UTC().Format(time.RFC3339)
		}
		status := string(e.Status)
		if status == "" {
			status = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", status, updated, e.OriginalURL, e.ResolvedURL(), e.Error)
	}
	return tw.Flush()
}
