// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"golang.org/x/oauth2"

	"github.com/linuxfoundation/lfx-v2-fireflies-proxy/internal/domain"
	"github.com/linuxfoundation/lfx-v2-fireflies-proxy/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-fireflies-proxy/internal/logging"
)

const (
	// BaseURL is the Fireflies GraphQL endpoint
	BaseURL = "https://api.fireflies.ai/graphql"
	// DefaultClientTimeout is the default HTTP client timeout for Fireflies API requests
	DefaultClientTimeout = 30 * time.Second
	// Default retry configuration
	DefaultMaxRetries        = 3
	DefaultInitialBackoff    = 1 * time.Second
	DefaultMaxBackoff        = 30 * time.Second
	DefaultBackoffMultiplier = 2.0
	// DefaultCacheTTL applies to the identity probe and transcript fetches
	DefaultCacheTTL = 5 * time.Minute
	// DefaultRateLimitBackoff is used when a rate limit response carries no resume time
	DefaultRateLimitBackoff = 5 * time.Minute

	placeholderAPIKey = "your-api-key-here"
	rateLimitCode     = "too_many_requests"
	meterName         = "github.com/linuxfoundation/lfx-v2-fireflies-proxy/internal/infrastructure/fireflies/api"

	maxResponseBytes   = 16 << 20
	maxLoggedBodyBytes = 512
)

// Client is the Fireflies GraphQL API client. It owns the response caches and
// the rate limit backoff window shared by every caller in the process.
type Client struct {
	httpClient *http.Client
	config     Config

	users       *TTLCache[*models.ProviderUser]
	transcripts *TTLCache[*models.ProviderTranscript]
	backoff     BackoffWindow

	cacheLookups metric.Int64Counter
	requests     metric.Int64Counter
}

// Config holds the configuration for the Fireflies client
type Config struct {
	APIKey string
	// Optional: override base URL for testing
	BaseURL string
	// Optional: override timeout for HTTP requests
	Timeout time.Duration
	// Optional: retry configuration for transport failures and 5xx responses
	MaxRetries        int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64
	// Optional: cache and rate limit windows
	CacheTTL         time.Duration
	RateLimitBackoff time.Duration
	// Optional: clock override for testing
	Now func() time.Time
}

// Ensure that Client implements domain.TranscriptProvider
var _ domain.TranscriptProvider = (*Client)(nil)

// ValidAPIKey reports whether key looks like a usable credential.
func ValidAPIKey(key string) bool {
	key = strings.TrimSpace(key)
	return key != "" && key != placeholderAPIKey
}

// NewClient creates a new Fireflies API client
func NewClient(config Config) *Client {
	if config.BaseURL == "" {
		config.BaseURL = BaseURL
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultClientTimeout
	}
	if config.MaxRetries == 0 {
		config.MaxRetries = DefaultMaxRetries
	}
	if config.InitialBackoff == 0 {
		config.InitialBackoff = DefaultInitialBackoff
	}
	if config.MaxBackoff == 0 {
		config.MaxBackoff = DefaultMaxBackoff
	}
	if config.BackoffMultiplier == 0 {
		config.BackoffMultiplier = DefaultBackoffMultiplier
	}
	if config.CacheTTL == 0 {
		config.CacheTTL = DefaultCacheTTL
	}
	if config.RateLimitBackoff == 0 {
		config.RateLimitBackoff = DefaultRateLimitBackoff
	}
	if config.Now == nil {
		config.Now = time.Now
	}

	token := &oauth2.Token{AccessToken: strings.TrimSpace(config.APIKey), TokenType: "Bearer"}

	client := &Client{
		httpClient: &http.Client{
			Timeout: config.Timeout,
			Transport: &oauth2.Transport{
				Base:   otelhttp.NewTransport(http.DefaultTransport),
				Source: oauth2.StaticTokenSource(token),
			},
		},
		config:      config,
		users:       NewTTLCache[*models.ProviderUser](config.CacheTTL, config.Now),
		transcripts: NewTTLCache[*models.ProviderTranscript](config.CacheTTL, config.Now),
	}
	client.initMetrics()
	return client
}

func (c *Client) initMetrics() {
	meter := otel.Meter(meterName)

	var err error
	c.cacheLookups, err = meter.Int64Counter("fireflies.cache.lookups",
		metric.WithDescription("Fireflies response cache lookups by cache and result"))
	if err != nil {
		slog.Warn("failed to create cache lookup counter", logging.ErrKey, err)
		c.cacheLookups = noop.Int64Counter{}
	}
	c.requests, err = meter.Int64Counter("fireflies.api.requests",
		metric.WithDescription("Fireflies API calls by operation and outcome"))
	if err != nil {
		slog.Warn("failed to create request counter", logging.ErrKey, err)
		c.requests = noop.Int64Counter{}
	}
}

func (c *Client) recordCacheLookup(ctx context.Context, cache, result string) {
	c.cacheLookups.Add(ctx, 1, metric.WithAttributes(
		attribute.String("cache", cache),
		attribute.String("result", result),
	))
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors graphQLErrors   `json:"errors"`
}

// graphQLError keeps the raw error object; its shape differs between error kinds.
type graphQLError map[string]any

// graphQLErrors accepts a list of error objects or strings, or a single object.
type graphQLErrors []graphQLError

func (g *graphQLErrors) UnmarshalJSON(b []byte) error {
	*g = nil
	switch jsonKind(b) {
	case '{':
		var single map[string]any
		if json.Unmarshal(b, &single) == nil {
			*g = graphQLErrors{single}
		}
	case '[':
		var items []any
		if json.Unmarshal(b, &items) != nil {
			return nil
		}
		for _, item := range items {
			switch v := item.(type) {
			case map[string]any:
				*g = append(*g, v)
			case string:
				*g = append(*g, graphQLError{"message": v})
			}
		}
	}
	return nil
}

func (e graphQLError) lookup(path ...string) (any, bool) {
	var current any = map[string]any(e)
	for _, key := range path {
		obj, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		if current, ok = obj[key]; !ok {
			return nil, false
		}
	}
	return current, true
}

func (e graphQLError) str(path ...string) string {
	v, _ := e.lookup(path...)
	s, _ := v.(string)
	return s
}

func (e graphQLError) num(path ...string) (float64, bool) {
	v, ok := e.lookup(path...)
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}

func (e graphQLError) code() string {
	if code := e.str("code"); code != "" {
		return code
	}
	return e.str("extensions", "code")
}

func (e graphQLError) message() string {
	if msg := e.str("message"); msg != "" {
		return msg
	}
	if code := e.code(); code != "" {
		return code
	}
	return "unknown GraphQL error"
}

func (e graphQLError) rateLimited() bool {
	if e.code() == rateLimitCode {
		return true
	}
	status, ok := e.num("extensions", "status")
	return ok && int(status) == http.StatusTooManyRequests
}

// rateLimitError returns the rate limit error carried by the response, if any.
func (c *Client) rateLimitError(status int, header http.Header, errs graphQLErrors) (*domain.RateLimitedError, bool) {
	var limited *graphQLError
	for i := range errs {
		if errs[i].rateLimited() {
			limited = &errs[i]
			break
		}
	}
	if limited == nil && status != http.StatusTooManyRequests {
		return nil, false
	}

	now := c.config.Now()
	if limited != nil {
		if ms, ok := limited.num("extensions", "metadata", "retryAfter"); ok {
			if resume := time.UnixMilli(int64(ms)); resume.After(now) {
				return &domain.RateLimitedError{RetryAfter: resume}, true
			}
		}
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(header.Get("Retry-After"))); err == nil && secs > 0 {
		return &domain.RateLimitedError{RetryAfter: now.Add(time.Duration(secs) * time.Second)}, true
	}
	return &domain.RateLimitedError{RetryAfter: now.Add(c.config.RateLimitBackoff)}, true
}

// execute posts a GraphQL document and decodes the data member into out.
func (c *Client) execute(ctx context.Context, operation, query string, variables map[string]any, out any) (err error) {
	defer func() {
		c.requests.Add(ctx, 1, metric.WithAttributes(
			attribute.String("operation", operation),
			attribute.String("outcome", outcomeOf(err)),
		))
	}()

	if !ValidAPIKey(c.config.APIKey) {
		slog.ErrorContext(ctx, "Fireflies API key is not configured", "operation", operation)
		return domain.ErrMissingCredential
	}

	payload, err := json.Marshal(graphQLRequest{Query: query, Variables: variables})
	if err != nil {
		return fmt.Errorf("failed to marshal %s request: %w", operation, err)
	}

	resp, err := c.doRequest(ctx, operation, payload)
	if err != nil {
		return &domain.UpstreamError{Message: err.Error()}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return &domain.UpstreamError{Status: resp.StatusCode, Message: fmt.Sprintf("failed to read response: %v", err)}
	}

	return c.decodeResponse(ctx, operation, resp.StatusCode, resp.Header, body, out)
}

func (c *Client) decodeResponse(ctx context.Context, operation string, status int, header http.Header, body []byte, out any) error {
	var envelope graphQLResponse
	parseErr := json.Unmarshal(body, &envelope)

	if limited, ok := c.rateLimitError(status, header, envelope.Errors); ok {
		slog.WarnContext(ctx, "Fireflies API rate limit reached",
			"operation", operation,
			"status", status,
			"retry_after", limited.RetryAfter.UTC().Format(time.RFC3339))
		return limited
	}

	if parseErr != nil {
		slog.ErrorContext(ctx, "failed to decode Fireflies API response",
			"operation", operation,
			"status", status,
			"body", truncate(body),
			logging.ErrKey, parseErr)
		if status >= http.StatusBadRequest {
			return &domain.UpstreamError{Status: status, Message: truncate(body)}
		}
		return &domain.UpstreamError{Status: status, Message: "invalid response body"}
	}

	if len(envelope.Errors) > 0 {
		err := &domain.UpstreamError{Status: status, Message: envelope.Errors[0].message()}
		slog.ErrorContext(ctx, "Fireflies API returned errors",
			"operation", operation,
			"status", status,
			"error_count", len(envelope.Errors),
			logging.ErrKey, err)
		return err
	}

	if status >= http.StatusBadRequest {
		err := &domain.UpstreamError{Status: status, Message: truncate(body)}
		slog.ErrorContext(ctx, "Fireflies API error response", "operation", operation, logging.ErrKey, err)
		return err
	}

	if out == nil || len(envelope.Data) == 0 || bytes.Equal(bytes.TrimSpace(envelope.Data), []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		slog.ErrorContext(ctx, "unexpected Fireflies data shape", "operation", operation, logging.ErrKey, err)
		return &domain.UpstreamError{Status: status, Message: "unexpected response data"}
	}
	return nil
}

func outcomeOf(err error) string {
	switch domain.GetErrorType(err) {
	case domain.ErrorTypeRateLimited:
		return "rate_limited"
	case domain.ErrorTypeConfiguration:
		return "not_configured"
	}
	if err != nil {
		return "error"
	}
	return "success"
}

func truncate(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > maxLoggedBodyBytes {
		return s[:maxLoggedBodyBytes] + "..."
	}
	return s
}

// shouldRetry reports whether a failed attempt may be repeated. Rate limited
// responses are never retried inline.
func shouldRetry(statusCode int, err error) bool {
	if err != nil {
		return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
	}
	return statusCode >= 500 && statusCode < 600
}

// calculateBackoff calculates the backoff duration for a retry attempt with jitter
func (c *Client) calculateBackoff(attempt int) time.Duration {
	if attempt <= 0 {
		return c.config.InitialBackoff
	}

	backoff := float64(c.config.InitialBackoff) * math.Pow(c.config.BackoffMultiplier, float64(attempt))
	if time.Duration(backoff) > c.config.MaxBackoff {
		backoff = float64(c.config.MaxBackoff)
	}

	// ±25% jitter
	jitter := backoff * 0.25 * (rand.Float64()*2 - 1)
	backoffWithJitter := time.Duration(backoff + jitter)
	if backoffWithJitter < c.config.InitialBackoff {
		backoffWithJitter = c.config.InitialBackoff
	}
	return backoffWithJitter
}

// doRequest posts payload to the GraphQL endpoint, retrying transport failures
// and server errors. Any other response is returned to the caller as is.
func (c *Client) doRequest(ctx context.Context, operation string, payload []byte) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL, bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")

		if attempt > 0 {
			slog.DebugContext(ctx, "retrying Fireflies API request",
				"operation", operation,
				"attempt", attempt,
				"max_retries", c.config.MaxRetries)
		}

		startTime := time.Now()
		resp, err := c.httpClient.Do(req)
		duration := time.Since(startTime)

		statusCode := 0
		if resp != nil {
			statusCode = resp.StatusCode
		}

		if !shouldRetry(statusCode, err) {
			if err != nil {
				slog.ErrorContext(ctx, "Fireflies API request failed (not retryable)",
					"operation", operation,
					"duration", duration.String(),
					"attempt", attempt+1,
					logging.ErrKey, err)
				return nil, err
			}
			slog.DebugContext(ctx, "Fireflies API request completed",
				"operation", operation,
				"status", statusCode,
				"duration", duration.String(),
				"attempt", attempt+1)
			return resp, nil
		}

		if err != nil {
			lastErr = err
		} else {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, maxLoggedBodyBytes))
			_ = resp.Body.Close()
			lastErr = fmt.Errorf("status %d: %s", statusCode, strings.TrimSpace(string(body)))
		}

		if attempt == c.config.MaxRetries {
			slog.ErrorContext(ctx, "Fireflies API request failed after all retries",
				"operation", operation,
				"status", statusCode,
				"duration", duration.String(),
				"attempts", attempt+1,
				logging.ErrKey, lastErr,
				logging.PriorityCritical())
			break
		}

		backoff := c.calculateBackoff(attempt)
		slog.WarnContext(ctx, "Fireflies API request failed, retrying",
			"operation", operation,
			"status", statusCode,
			"duration", duration.String(),
			"attempt", attempt+1,
			"backoff", backoff.String(),
			logging.ErrKey, lastErr)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}

	return nil, fmt.Errorf("request failed after %d attempts: %w", c.config.MaxRetries+1, lastErr)
}
