package license

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/visualscripts/loader/internal/infrastructure"
)

// VerifyRequest is the verify-key request body.
type VerifyRequest struct {
	ScriptKey string `json:"script_key"`
	HWID      string `json:"hwid"`
}

// VerifyResult is the decoded verify-key response. Blacklisted and Reason
// are only meaningful on denial; ScriptName and Version feed the
// user-visible status message and nothing else.
type VerifyResult struct {
	Valid       bool   `json:"valid"`
	Blacklisted bool   `json:"blacklisted"`
	Reason      string `json:"reason,omitempty"`
	ScriptName  string `json:"script_name"`
	Version     string `json:"version"`
}

// RegisterRequest is the register-hwid request body.
type RegisterRequest struct {
	HWID      string `json:"hwid"`
	ScriptKey string `json:"script_key"`
}

// Client talks to the licensing service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *Metrics
	tracer     trace.Tracer
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the client logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithMetrics attaches OpenTelemetry instruments.
func WithMetrics(m *Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// NewClient creates a licensing service client for the given base URL.
// Call timeouts are the caller's responsibility via context.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		logger:     slog.Default(),
		tracer:     otel.Tracer(TracerName),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// VerifyKey validates the script key against the hardware id.
//
// The service answers denials with a JSON body on a 403, so the body is
// decoded regardless of status. A *BlacklistedError or ErrInvalidKey means
// the service made a decision; any other error is transport or protocol
// level and the caller must treat the key as unverified.
func (c *Client) VerifyKey(ctx context.Context, scriptKey, hwid string) (*VerifyResult, error) {
	ctx, span := c.tracer.Start(ctx, "license.verify_key")
	defer span.End()

	logger := infrastructure.LoggerWithContext(ctx)
	logger.Debug("verifying script key",
		slog.String("key", MaskKey(scriptKey)),
		slog.String("hwid", MaskHWID(hwid)),
	)

	start := time.Now()
	if c.metrics != nil {
		c.metrics.VerifyAttempts.Add(ctx, 1)
	}

	body, err := c.postJSON(ctx, "/verify-key", VerifyRequest{ScriptKey: scriptKey, HWID: hwid})
	c.recordDuration(ctx, time.Since(start))
	if err != nil {
		c.countFailure(ctx)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if len(bytes.TrimSpace(body)) == 0 {
		c.countFailure(ctx)
		span.SetStatus(codes.Error, ErrEmptyResponse.Error())
		return nil, ErrEmptyResponse
	}

	var result VerifyResult
	if err := json.Unmarshal(body, &result); err != nil {
		c.countFailure(ctx)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to decode verification response: %w", err)
	}

	span.SetAttributes(
		attribute.Bool("license.valid", result.Valid),
		attribute.Bool("license.blacklisted", result.Blacklisted),
	)

	if result.Blacklisted {
		reason := result.Reason
		if reason == "" {
			reason = DefaultDenyReason
		}
		c.countDenied(ctx)
		logger.Warn("hardware id blacklisted",
			slog.String("hwid", MaskHWID(hwid)),
			slog.String("reason", reason),
		)
		return &result, &BlacklistedError{Reason: reason}
	}

	if !result.Valid {
		c.countDenied(ctx)
		logger.Warn("script key rejected", slog.String("key", MaskKey(scriptKey)))
		return &result, ErrInvalidKey
	}

	logger.Info("script key verified",
		slog.String("script_name", result.ScriptName),
		slog.String("version", result.Version),
	)
	return &result, nil
}

// RegisterHWID records the hardware id for a verified key. The loader
// discards the outcome; the error return exists for logging and tests.
func (c *Client) RegisterHWID(ctx context.Context, hwid, scriptKey string) error {
	ctx, span := c.tracer.Start(ctx, "license.register_hwid")
	defer span.End()

	if c.metrics != nil {
		c.metrics.RegisterAttempts.Add(ctx, 1)
	}

	_, err := c.postJSON(ctx, "/register-hwid", RegisterRequest{HWID: hwid, ScriptKey: scriptKey})
	if err != nil {
		if c.metrics != nil {
			c.metrics.RegisterFailures.Add(ctx, 1)
		}
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("register-hwid failed: %w", err)
	}
	return nil
}

// Health probes the service liveness endpoint.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to build health request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}
	return nil
}

// postJSON sends a JSON POST and returns the raw response body. Non-2xx
// statuses are not errors here: denial responses carry JSON bodies on 403
// and the caller decides based on content.
func (c *Client) postJSON(ctx context.Context, path string, payload interface{}) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response from %s: %w", path, err)
	}
	return body, nil
}

func (c *Client) countDenied(ctx context.Context) {
	if c.metrics != nil {
		c.metrics.VerifyDenied.Add(ctx, 1)
	}
}

func (c *Client) countFailure(ctx context.Context) {
	if c.metrics != nil {
		c.metrics.VerifyFailures.Add(ctx, 1)
	}
}

func (c *Client) recordDuration(ctx context.Context, d time.Duration) {
	if c.metrics != nil {
		c.metrics.VerifyDuration.Record(ctx, float64(d.Milliseconds()))
	}
}
