package providers

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"
)

// InvocationError represents a single failed provider attempt. It wraps the
// underlying cause so callers can classify the failure with errors.As.
type InvocationError struct {
	// Provider is the name of the provider that failed.
	Provider string

	// StatusCode is the HTTP status code, 0 if not applicable.
	StatusCode int

	// Message is the error message.
	Message string

	// Cause is the underlying error, if any.
	Cause error
}

// Error implements the error interface.
func (e *InvocationError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("provider %q error (status %d): %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("provider %q error: %s", e.Provider, e.Message)
}

// Unwrap returns the underlying error for error chain support.
func (e *InvocationError) Unwrap() error {
	return e.Cause
}

// TimeoutError represents an attempt that exceeded its timeout budget.
type TimeoutError struct {
	// Provider is the name of the provider where the timeout occurred.
	Provider string

	// Timeout is the budget that was exceeded.
	Timeout time.Duration
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("provider %q request timed out after %s", e.Provider, e.Timeout)
}

// RateLimitError represents a provider-reported rate limit (HTTP 429).
type RateLimitError struct {
	// Provider is the name of the provider that rate limited the request.
	Provider string

	// RetryAfter is the wait duration suggested by the provider, if any.
	RetryAfter time.Duration
}

// Error implements the error interface.
func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("provider %q rate limit exceeded (retry after %s)", e.Provider, e.RetryAfter)
	}
	return fmt.Sprintf("provider %q rate limit exceeded", e.Provider)
}

// Failure reasons attached to failover events and used by declarative chain
// conditions. Derived from the error chain of a failed attempt.
const (
	ReasonTimeout       = "timeout"
	ReasonRateLimited   = "rate_limited"
	ReasonNetworkError  = "network_error"
	ReasonProviderError = "provider_error"
	ReasonUnhealthy     = "unhealthy"
)

// ClassifyError maps an attempt error to a failure reason string.
func ClassifyError(err error) string {
	var timeoutErr *TimeoutError
	var rateErr *RateLimitError
	var netErr net.Error

	switch {
	case err == nil:
		return ""
	case errors.As(err, &timeoutErr), errors.Is(err, context.DeadlineExceeded):
		return ReasonTimeout
	case errors.As(err, &rateErr):
		return ReasonRateLimited
	case errors.As(err, &netErr):
		if netErr.Timeout() {
			return ReasonTimeout
		}
		return ReasonNetworkError
	default:
		return ReasonProviderError
	}
}
