// Package client fetches Boba Drops submissions from the Hack Club query API
// (an Airtable proxy) with retries and error classification.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/boba-gallery/pkg/logging"
	"github.com/Sternrassler/boba-gallery/pkg/submission"
)

// Prometheus metrics for query API operations.
var (
	queryRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gallery_query_requests_total",
		Help: "Total query API requests by status",
	}, []string{"status"})

	queryRequestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "gallery_query_request_duration_seconds",
		Help:    "Query API request duration in seconds",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	})

	queryErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gallery_query_errors_total",
		Help: "Total query API errors by class",
	}, []string{"class"})

	queryRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gallery_query_retries_total",
		Help: "Total number of retry attempts by error class",
	}, []string{"error_class"})

	queryRetryBackoffSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gallery_query_retry_backoff_seconds",
		Help:    "Backoff duration for retries by error class",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30},
	}, []string{"error_class"})

	queryRetryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gallery_query_retry_exhausted_total",
		Help: "Total number of times retry attempts were exhausted by error class",
	}, []string{"error_class"})
)

const (
	// DefaultBaseURL is the Hack Club query API host.
	DefaultBaseURL = "https://api2.hackclub.com"

	// DefaultBase is the Airtable base holding submissions.
	DefaultBase = "Boba Drops"

	// DefaultTable is the submissions table.
	DefaultTable = "Websites"

	// DefaultTimeout bounds a single request attempt.
	DefaultTimeout = 30 * time.Second
)

// maxErrorBody limits how much of an error body is kept in a FetchError.
const maxErrorBody = 512

// Config holds the client configuration.
type Config struct {
	// BaseURL is the API origin (default DefaultBaseURL).
	BaseURL string

	// Base and Table address the record set.
	Base  string
	Table string

	// Timeout bounds each attempt (default DefaultTimeout).
	Timeout time.Duration

	// Retry overrides the retry policy (default RetryConfigForErrorClass).
	Retry RetryPolicy

	// HTTPClient overrides the transport (optional, for testing).
	HTTPClient *http.Client
}

// DefaultConfig returns the production configuration.
func DefaultConfig() Config {
	return Config{
		BaseURL: DefaultBaseURL,
		Base:    DefaultBase,
		Table:   DefaultTable,
		Timeout: DefaultTimeout,
	}
}

// Client lists submissions.
type Client struct {
	httpClient *http.Client
	baseURL    *url.URL
	base       string
	table      string
	retry      RetryPolicy
	logger     zerolog.Logger
}

// New creates a query client. Empty fields take their defaults.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Base == "" {
		cfg.Base = DefaultBase
	}
	if cfg.Table == "" {
		cfg.Table = DefaultTable
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if (base.Scheme != "http" && base.Scheme != "https") || base.Host == "" {
		return nil, fmt.Errorf("invalid base url %q: want http(s)://host", cfg.BaseURL)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &Client{
		httpClient: httpClient,
		baseURL:    base,
		base:       cfg.Base,
		table:      cfg.Table,
		retry:      cfg.Retry,
		logger:     logging.NewLogger("query-client"),
	}, nil
}

// ListURL returns the request URL for filter.
func (c *Client) ListURL(filter submission.Filter) string {
	sel, _ := json.Marshal(struct {
		FilterByFormula string `json:"filterByFormula"`
	}{filter.Formula()})

	params := url.Values{}
	params.Set("select", string(sel))
	params.Set("cache", "true")

	u := *c.baseURL
	u.Path = c.baseURL.Path + "/v0.1/" + c.base + "/" + c.table
	u.RawQuery = params.Encode()
	return u.String()
}

// List returns the submissions matching filter, in the order the API
// returns them. Failures are *FetchError, possibly wrapped in
// ErrRetryExhausted or ErrContextCancelled.
func (c *Client) List(ctx context.Context, filter submission.Filter) ([]submission.Submission, error) {
	endpoint := c.ListURL(filter)
	c.logger.Debug().Str("formula", filter.Formula()).Msg("Fetching submissions")

	var records []submission.Submission
	err := retryWithBackoff(ctx, c.logger, c.retry, func() error {
		var fetchErr error
		records, fetchErr = c.fetch(ctx, endpoint)
		return fetchErr
	})
	if err != nil {
		return nil, err
	}

	c.logger.Info().Int("total", len(records)).Msg("Fetched submissions")
	return records, nil
}

// fetch performs one attempt.
func (c *Client) fetch(ctx context.Context, endpoint string) ([]submission.Submission, error) {
	start := time.Now()
	defer func() {
		queryRequestDuration.Observe(time.Since(start).Seconds())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		queryRequestsTotal.WithLabelValues("network_error").Inc()
		return nil, c.fail(&FetchError{Class: ErrorClassNetwork, Message: "request failed", Err: err})
	}
	defer resp.Body.Close()

	queryRequestsTotal.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode >= 400 {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		msg := resp.Status
		if body := strings.TrimSpace(string(text)); body != "" {
			msg += ": " + body
		}
		return nil, c.fail(&FetchError{
			StatusCode: resp.StatusCode,
			Class:      classifyStatus(resp.StatusCode),
			Message:    msg,
		})
	}

	var records []submission.Submission
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		class := ErrorClassDecode
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			class = ErrorClassNetwork
		}
		return nil, c.fail(&FetchError{
			StatusCode: resp.StatusCode,
			Class:      class,
			Message:    "invalid response body",
			Err:        err,
		})
	}
	if records == nil {
		records = []submission.Submission{}
	}
	return records, nil
}

func (c *Client) fail(err *FetchError) error {
	queryErrorsTotal.WithLabelValues(string(err.Class)).Inc()
	c.logger.Warn().
		Int("status", err.StatusCode).
		Str("error_class", string(err.Class)).
		Str("message", logging.Truncate(err.Message, 100)).
		Msg("Query API request failed")
	return err
}

// classifyStatus categorizes an HTTP error status.
func classifyStatus(status int) ErrorClass {
	if status >= 500 {
		return ErrorClassServer
	}
	return ErrorClassClient
}
