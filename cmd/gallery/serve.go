package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Sternrassler/boba-gallery/pkg/cache"
	"github.com/Sternrassler/boba-gallery/pkg/client"
	"github.com/Sternrassler/boba-gallery/pkg/gallery"
	"github.com/Sternrassler/boba-gallery/pkg/logging"
	"github.com/Sternrassler/boba-gallery/pkg/metrics"
	"github.com/Sternrassler/boba-gallery/pkg/pagination"
	"github.com/Sternrassler/boba-gallery/pkg/render"
	"github.com/Sternrassler/boba-gallery/pkg/submission"
)

// nextPageHeader carries the URL of the following batch on /more responses.
const nextPageHeader = "X-Next-Page"

func newServeCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the gallery with filters and infinite scroll",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.ListenAddr = addr
			}
			ctx := cmd.Context()

			tmpl, err := os.ReadFile(cfg.Build.Template)
			if err != nil {
				return fmt.Errorf("read template: %w", err)
			}
			query, err := client.New(cfg.QueryClient())
			if err != nil {
				return err
			}
			store, closeStore, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			images := cache.NewManager(store, nil, logging.NewLogger("cache"))
			_ = images.Load(ctx)

			srv, err := newServer(query, images, cfg.Pages(), string(tmpl))
			if err != nil {
				return err
			}
			srv.ready = func(ctx context.Context) error {
				_, err := store.Load(ctx)
				return err
			}

			httpServer := &http.Server{
				Addr:              cfg.Server.ListenAddr,
				Handler:           srv.routes(),
				ReadHeaderTimeout: 10 * time.Second,
			}
			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				httpServer.Shutdown(shutdownCtx)
			}()

			logger.Info().Str("addr", cfg.Server.ListenAddr).Msg("Starting gallery server")
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server failed: %w", err)
			}
			logger.Info().Msg("Gallery server stopped")
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides GALLERY_LISTEN_ADDR)")
	return cmd
}

// imageLookup resolves display images without uploading.
type imageLookup interface {
	LookupSubmission(s submission.Submission) submission.Enriched
}

// server renders gallery pages on request. Every request paginates its own
// query with a fresh controller.
type server struct {
	lister   gallery.Lister
	images   imageLookup
	pages    pagination.ControllerConfig
	template string
	logger   zerolog.Logger

	// ready reports whether the cache backend is reachable.
	ready func(ctx context.Context) error
}

func newServer(lister gallery.Lister, images imageLookup, pages pagination.ControllerConfig, template string) (*server, error) {
	if _, err := render.Substitute(template, ""); err != nil {
		return nil, err
	}
	return &server{
		lister:   lister,
		images:   images,
		pages:    pages,
		template: template,
		logger:   logging.NewLogger("server"),
		ready:    func(context.Context) error { return nil },
	}, nil
}

func (s *server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", healthHandler)
	mux.HandleFunc("GET /ready", s.readyHandler)
	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("GET /more", s.moreHandler)
	mux.HandleFunc("GET /{$}", s.pageHandler)
	return mux
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

func (s *server) readyHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.ready(ctx); err != nil {
		http.Error(w, "cache backend unavailable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

// pageHandler serves the template with the first batch of the filtered query.
func (s *server) pageHandler(w http.ResponseWriter, r *http.Request) {
	filter := filterFrom(r.URL.Query())
	status := http.StatusOK

	records, err := s.query(r.Context(), filter)
	if err != nil {
		status = http.StatusBadGateway
		records = nil
	}

	ctrl, renderer, err := s.paginate(records)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	content := renderer.String()
	if !ctrl.Done() {
		content += "\n" + render.ScrollLoader(moreURL(filter, 2))
	}
	page, err := render.Substitute(s.template, content)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	fmt.Fprint(w, page)
}

// moreHandler serves the cards of one batch. With viewport parameters the
// batch is only rendered when the reader is near the end of the document;
// 204 means there is nothing to add yet.
func (s *server) moreHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := strconv.Atoi(q.Get("page"))
	if err != nil || page < 2 {
		http.Error(w, "page must be an integer >= 2", http.StatusBadRequest)
		return
	}
	viewport, hasViewport, err := viewportFrom(q)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	filter := filterFrom(q)
	records, err := s.query(r.Context(), filter)
	if err != nil {
		http.Error(w, "submissions unavailable", http.StatusBadGateway)
		return
	}

	ctrl, renderer, err := s.paginate(records)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	// The first batch is rendered by NewQuery; replay up to the one before page.
	for i := 2; i < page; i++ {
		if !ctrl.LoadMore() {
			break
		}
	}

	var loaded bool
	if hasViewport {
		loaded = ctrl.OnScroll(viewport)
	} else {
		loaded = ctrl.LoadMore()
	}
	if !loaded {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if !ctrl.Done() {
		w.Header().Set(nextPageHeader, moreURL(filter, page+1))
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, renderer.Last())
}

// query fetches the filtered submissions and attaches cached images.
func (s *server) query(ctx context.Context, filter submission.Filter) ([]submission.Enriched, error) {
	records, err := s.lister.List(ctx, filter)
	if err != nil {
		var fetchErr *client.FetchError
		if errors.As(err, &fetchErr) {
			s.logger.Warn().Err(err).Str("class", string(fetchErr.Class)).Msg("Failed to fetch submissions")
		} else {
			s.logger.Warn().Err(err).Msg("Failed to fetch submissions")
		}
		return nil, err
	}

	enriched := make([]submission.Enriched, len(records))
	for i, r := range records {
		enriched[i] = s.images.LookupSubmission(r)
	}
	return enriched, nil
}

// paginate starts a controller on records with its first batch rendered.
func (s *server) paginate(records []submission.Enriched) (*pagination.Controller[submission.Enriched], *render.Incremental, error) {
	renderer := render.NewIncremental()
	ctrl, err := pagination.NewController[submission.Enriched](s.pages, renderer)
	if err != nil {
		return nil, nil, err
	}
	ctrl.NewQuery(records)
	return ctrl, renderer, nil
}

func filterFrom(q url.Values) submission.Filter {
	f := submission.Filter{EventCode: q.Get("eventCode")}
	if v := q.Get("status"); v != "" {
		f.Status = submission.ParseStatusFilter(v)
	}
	return f
}

// viewportFrom reads scrollTop, windowHeight and documentHeight. It reports
// false when none is present; a partial or non-numeric set is an error.
func viewportFrom(q url.Values) (pagination.Viewport, bool, error) {
	names := []string{"scrollTop", "windowHeight", "documentHeight"}
	values := make([]int, len(names))
	present := 0
	for i, name := range names {
		raw := q.Get(name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return pagination.Viewport{}, false, fmt.Errorf("%s must be an integer", name)
		}
		values[i] = n
		present++
	}
	switch present {
	case 0:
		return pagination.Viewport{}, false, nil
	case len(names):
		return pagination.Viewport{ScrollTop: values[0], WindowHeight: values[1], DocumentHeight: values[2]}, true, nil
	default:
		return pagination.Viewport{}, false, errors.New("scrollTop, windowHeight and documentHeight must be given together")
	}
}

// moreURL is the /more address of page for filter.
func moreURL(filter submission.Filter, page int) string {
	v := url.Values{}
	if filter.Status != "" && filter.Status != submission.FilterAll {
		v.Set("status", filter.Status)
	}
	if filter.EventCode != "" {
		v.Set("eventCode", filter.EventCode)
	}
	v.Set("page", strconv.Itoa(page))
	return "/more?" + v.Encode()
}
