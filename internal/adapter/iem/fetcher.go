package iem

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/couchcryptid/storm-data-shared/retry"

	"github.com/couchcryptid/vtec-browser/internal/observability"
)

// ErrUpstreamStatus is wrapped by errors for non-200 upstream responses.
var ErrUpstreamStatus = errors.New("iem upstream error")

// maxErrorBody bounds how much of an error response ends up in the error.
const maxErrorBody = 512

// StatusError is a non-200 upstream response.
type StatusError struct {
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %s: status %d: %s", ErrUpstreamStatus, e.Path, e.StatusCode, e.Body)
}

func (e *StatusError) Unwrap() error {
	return ErrUpstreamStatus
}

// Temporary reports whether the request may succeed if repeated.
func (e *StatusError) Temporary() bool {
	return e.StatusCode >= http.StatusInternalServerError || e.StatusCode == http.StatusTooManyRequests
}

// Fetcher returns the raw body of a GET against an archive endpoint.
type Fetcher interface {
	Fetch(ctx context.Context, path string, params url.Values) ([]byte, error)
}

// HTTPFetcher talks to the archive over HTTP.
type HTTPFetcher struct {
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
	metrics    *observability.Metrics

	maxAttempts int
	backoff     time.Duration
	maxBackoff  time.Duration
}

// FetcherOption configures an HTTPFetcher.
type FetcherOption func(*HTTPFetcher)

// WithRetry repeats requests that fail with a temporary upstream status, up
// to attempts requests in total, doubling the pause from initial up to ceiling.
func WithRetry(attempts int, initial, ceiling time.Duration) FetcherOption {
	return func(f *HTTPFetcher) {
		if attempts > 0 {
			f.maxAttempts = attempts
		}
		f.backoff = initial
		f.maxBackoff = ceiling
	}
}

// NewHTTPFetcher creates a fetcher for baseURL with a per-request timeout.
// An empty baseURL means the public archive. Without WithRetry every request
// is made once.
func NewHTTPFetcher(baseURL string, timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics, opts ...FetcherOption) *HTTPFetcher {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	f := &HTTPFetcher{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL:     strings.TrimRight(baseURL, "/"),
		logger:      logger,
		metrics:     metrics,
		maxAttempts: 1,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *HTTPFetcher) Fetch(ctx context.Context, path string, params url.Values) ([]byte, error) {
	backoff := f.backoff
	for attempt := 1; ; attempt++ {
		body, err := f.fetchOnce(ctx, path, params)
		var se *StatusError
		if err == nil || attempt >= f.maxAttempts || !errors.As(err, &se) || !se.Temporary() {
			return body, err
		}
		f.logger.Warn("iem request failed, retrying", "path", path, "attempt", attempt, "backoff", backoff, "error", err)
		if !retry.SleepWithContext(ctx, backoff) {
			return nil, err
		}
		backoff = retry.NextBackoff(backoff, f.maxBackoff)
	}
}

func (f *HTTPFetcher) fetchOnce(ctx context.Context, path string, params url.Values) ([]byte, error) {
	fullURL := f.baseURL + "/" + strings.TrimLeft(path, "/")
	if len(params) > 0 {
		fullURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	start := time.Now()
	resp, err := f.httpClient.Do(req)
	f.metrics.FetchDuration.WithLabelValues(path).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("%s request: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{Path: path, StatusCode: resp.StatusCode, Body: string(body)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", path, err)
	}
	f.logger.Debug("iem request complete", "path", path, "bytes", len(body), "duration", time.Since(start))
	return body, nil
}
