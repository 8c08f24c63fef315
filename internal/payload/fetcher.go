// Package payload retrieves the feature script from the licensing service
// and executes it behind an explicit runner boundary.
//
// The payload is trusted as served: no checksum and no signature check.
// The Runner interface keeps that trust boundary in one place.
package payload

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/visualscripts/loader/internal/infrastructure"
)

// Fetcher downloads the payload script from its fixed location on the API.
type Fetcher struct {
	baseURL    string
	path       string
	httpClient *http.Client
	metrics    *Metrics
}

// NewFetcher creates a payload fetcher. path is the fixed payload location
// on the service; nothing from the verification response ever changes it.
func NewFetcher(baseURL, path string, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		baseURL:    strings.TrimRight(baseURL, "/"),
		path:       path,
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) FetcherOption {
	return func(f *Fetcher) { f.httpClient = hc }
}

// WithMetrics attaches OpenTelemetry instruments.
func WithMetrics(m *Metrics) FetcherOption {
	return func(f *Fetcher) { f.metrics = m }
}

// URL returns the full payload URL.
func (f *Fetcher) URL() string {
	return f.baseURL + f.path
}

// Fetch retrieves the payload script body. A non-2xx status or an empty
// body is an error.
func (f *Fetcher) Fetch(ctx context.Context) ([]byte, error) {
	logger := infrastructure.LoggerWithContext(ctx)

	if f.metrics != nil {
		f.metrics.FetchAttempts.Add(ctx, 1)
	}

	body, err := f.fetch(ctx)
	if err != nil {
		if f.metrics != nil {
			f.metrics.FetchFailures.Add(ctx, 1)
		}
		return nil, err
	}

	if f.metrics != nil {
		f.metrics.FetchBytes.Record(ctx, int64(len(body)))
	}
	logger.Debug("payload fetched",
		slog.String("path", f.path),
		slog.Int("size", len(body)),
	)
	return body, nil
}

func (f *Fetcher) fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.URL(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build payload request: %w", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("payload fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("payload fetch returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read payload body: %w", err)
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil, fmt.Errorf("payload body is empty")
	}
	return body, nil
}
