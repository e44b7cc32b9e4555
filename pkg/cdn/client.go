// Package cdn uploads remote images to the Hack Club CDN, which stores an
// optimized copy and answers with its deployed URL.
package cdn

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/boba-gallery/pkg/logging"
)

// DefaultEndpoint is the CDN v3 upload endpoint.
const DefaultEndpoint = "https://cdn.hackclub.com/api/v3/new"

// DefaultTimeout bounds a single upload.
const DefaultTimeout = 30 * time.Second

// maxErrorBody limits how much of a rejection body is kept in errors.
const maxErrorBody = 1 << 10

var (
	cdnUploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gallery_cdn_uploads_total",
		Help: "Total CDN uploads by result",
	}, []string{"result"}) // "ok", "timeout", "rejected", "malformed", "error"

	cdnUploadDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "gallery_cdn_upload_duration_seconds",
		Help:    "CDN upload duration in seconds",
		Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 30},
	})
)

// Config holds the upload client configuration.
type Config struct {
	// Endpoint is the upload URL (default DefaultEndpoint).
	Endpoint string

	// Token is the bearer token (REQUIRED).
	Token string

	// Timeout bounds each upload (default DefaultTimeout).
	Timeout time.Duration

	// HTTPClient overrides the transport (optional, for testing).
	HTTPClient *http.Client
}

// Client performs CDN uploads.
type Client struct {
	httpClient *http.Client
	endpoint   string
	token      string
	timeout    time.Duration
	logger     zerolog.Logger
}

type uploadResponse struct {
	Files []struct {
		DeployedURL string `json:"deployedUrl"`
	} `json:"files"`
}

// New creates an upload client.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, ErrMissingToken
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	return &Client{
		httpClient: httpClient,
		endpoint:   cfg.Endpoint,
		token:      cfg.Token,
		timeout:    cfg.Timeout,
		logger:     logging.NewLogger("cdn"),
	}, nil
}

// Upload asks the CDN to ingest imageURL and returns the deployed URL.
// Errors are one of ErrUploadTimeout, *RejectedError, ErrMalformedResponse
// or a wrapped transport error.
func (c *Client) Upload(ctx context.Context, imageURL string) (string, error) {
	start := time.Now()
	defer func() {
		cdnUploadDuration.Observe(time.Since(start).Seconds())
	}()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	deployed, err := c.upload(ctx, imageURL)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = ErrUploadTimeout
		}
		cdnUploadsTotal.WithLabelValues(resultLabel(err)).Inc()
		c.logger.Warn().
			Err(err).
			Str("url", logging.Truncate(imageURL, 50)).
			Msg("CDN upload failed")
		return "", err
	}

	cdnUploadsTotal.WithLabelValues("ok").Inc()
	c.logger.Debug().
		Str("url", logging.Truncate(imageURL, 50)).
		Str("deployed_url", logging.Truncate(deployed, 50)).
		Dur("duration", time.Since(start)).
		Msg("CDN upload complete")
	return deployed, nil
}

func (c *Client) upload(ctx context.Context, imageURL string) (string, error) {
	body, err := json.Marshal([]string{imageURL})
	if err != nil {
		return "", fmt.Errorf("encode upload body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("cdn request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return "", &RejectedError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(text))}
	}

	var result uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", err
		}
		return "", fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if len(result.Files) == 0 || result.Files[0].DeployedURL == "" {
		return "", ErrMalformedResponse
	}

	return result.Files[0].DeployedURL, nil
}

func resultLabel(err error) string {
	var rejected *RejectedError
	switch {
	case errors.Is(err, ErrUploadTimeout):
		return "timeout"
	case errors.As(err, &rejected):
		return "rejected"
	case errors.Is(err, ErrMalformedResponse):
		return "malformed"
	default:
		return "error"
	}
}
