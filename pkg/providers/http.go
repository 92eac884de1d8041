package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"
)

// HTTPProvider is a generic JSON-over-HTTP provider adapter. It POSTs the
// opaque request payload to the configured invoke path and treats any 2xx
// response body as the response payload. Health probes GET the health path.
//
// Provider-specific adapters can be built out-of-tree; the engine only
// depends on the Provider interface.
type HTTPProvider struct {
	config Config
	client *http.Client
	logger *slog.Logger
}

// NewHTTPProvider creates a generic HTTP provider adapter with connection
// pooling. Missing configuration fields receive defaults.
func NewHTTPProvider(config Config) (*HTTPProvider, error) {
	if config.Name == "" {
		return nil, fmt.Errorf("provider name is required")
	}
	if config.BaseURL == "" {
		return nil, fmt.Errorf("provider %q: base URL is required", config.Name)
	}
	if config.InvokePath == "" {
		config.InvokePath = "/v1/invoke"
	}
	if config.HealthPath == "" {
		config.HealthPath = "/healthz"
	}
	if config.Timeout <= 0 {
		config.Timeout = 60 * time.Second
	}
	if config.MaxIdleConns <= 0 {
		config.MaxIdleConns = 10
	}
	if config.IdleConnTimeout <= 0 {
		config.IdleConnTimeout = 90 * time.Second
	}

	transport := &http.Transport{
		MaxIdleConns:      config.MaxIdleConns,
		IdleConnTimeout:   config.IdleConnTimeout,
		ForceAttemptHTTP2: true,
	}

	return &HTTPProvider{
		config: config,
		client: &http.Client{
			Transport: transport,
			Timeout:   config.Timeout,
		},
		logger: slog.Default().With("component", "providers.http", "provider", config.Name),
	}, nil
}

// Invoke POSTs the request payload to the provider's invoke endpoint.
func (p *HTTPProvider) Invoke(ctx context.Context, req *Request) (*Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, &InvocationError{Provider: p.config.Name, Message: "encoding request", Cause: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.BaseURL+p.config.InvokePath, bytes.NewReader(body))
	if err != nil {
		return nil, &InvocationError{Provider: p.config.Name, Message: "building request", Cause: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if p.config.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.config.APIKey)
	}

	start := time.Now()
	resp, err := p.client.Do(httpReq)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, &TimeoutError{Provider: p.config.Name, Timeout: p.config.Timeout}
		}
		return nil, &InvocationError{Provider: p.config.Name, Message: "request failed", Cause: err}
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &InvocationError{Provider: p.config.Name, Message: "reading response", Cause: err}
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, &RateLimitError{Provider: p.config.Name, RetryAfter: parseRetryAfter(resp)}
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, &InvocationError{
			Provider:   p.config.Name,
			StatusCode: resp.StatusCode,
			Message:    string(truncate(payload, 200)),
		}
	}

	return &Response{
		ID:       req.ID,
		Provider: p.config.Name,
		Model:    req.Model,
		Payload:  payload,
		Latency:  time.Since(start),
	}, nil
}

// HealthCheck GETs the provider's health endpoint.
func (p *HTTPProvider) HealthCheck(ctx context.Context) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, p.config.BaseURL+p.config.HealthPath, nil)
	if err != nil {
		return fmt.Errorf("building health request: %w", err)
	}
	if p.config.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.config.APIKey)
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("health probe failed: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("health probe returned status %d", resp.StatusCode)
	}
	return nil
}

// Name returns the provider's configured name.
func (p *HTTPProvider) Name() string {
	return p.config.Name
}

// Close releases pooled connections.
func (p *HTTPProvider) Close() error {
	p.client.CloseIdleConnections()
	return nil
}

func parseRetryAfter(resp *http.Response) time.Duration {
	v := resp.Header.Get("Retry-After")
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	return 0
}

func truncate(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	return b[:n]
}
