package providers

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

// fakeNetError satisfies net.Error for classification tests.
type fakeNetError struct {
	timeout bool
}

func (e *fakeNetError) Error() string   { return "connection refused" }
func (e *fakeNetError) Timeout() bool   { return e.timeout }
func (e *fakeNetError) Temporary() bool { return false }

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "nil error",
			err:  nil,
			want: "",
		},
		{
			name: "timeout error",
			err:  &TimeoutError{Provider: "openai-primary", Timeout: 5 * time.Second},
			want: ReasonTimeout,
		},
		{
			name: "wrapped timeout error",
			err:  fmt.Errorf("invoking: %w", &TimeoutError{Provider: "openai-primary"}),
			want: ReasonTimeout,
		},
		{
			name: "deadline exceeded",
			err:  context.DeadlineExceeded,
			want: ReasonTimeout,
		},
		{
			name: "rate limit",
			err:  &RateLimitError{Provider: "openai-primary", RetryAfter: time.Second},
			want: ReasonRateLimited,
		},
		{
			name: "network error",
			err:  &fakeNetError{},
			want: ReasonNetworkError,
		},
		{
			name: "network timeout",
			err:  &fakeNetError{timeout: true},
			want: ReasonTimeout,
		},
		{
			name: "provider error",
			err:  &InvocationError{Provider: "openai-primary", StatusCode: 500, Message: "internal"},
			want: ReasonProviderError,
		},
		{
			name: "plain error",
			err:  errors.New("boom"),
			want: ReasonProviderError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyError(tt.err); got != tt.want {
				t.Errorf("Expected reason %q, got %q", tt.want, got)
			}
		})
	}
}

func TestInvocationError_Message(t *testing.T) {
	withStatus := &InvocationError{Provider: "openai-primary", StatusCode: 503, Message: "unavailable"}
	if got := withStatus.Error(); got != `provider "openai-primary" error (status 503): unavailable` {
		t.Errorf("Unexpected message: %q", got)
	}

	noStatus := &InvocationError{Provider: "openai-primary", Message: "boom"}
	if got := noStatus.Error(); got != `provider "openai-primary" error: boom` {
		t.Errorf("Unexpected message: %q", got)
	}
}

func TestInvocationError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &InvocationError{Provider: "openai-primary", Message: "boom", Cause: cause}
	if !errors.Is(err, cause) {
		t.Error("Expected cause reachable through the error chain")
	}
}

func TestRateLimitError_Message(t *testing.T) {
	withRetry := &RateLimitError{Provider: "openai-primary", RetryAfter: 2 * time.Second}
	if got := withRetry.Error(); got != `provider "openai-primary" rate limit exceeded (retry after 2s)` {
		t.Errorf("Unexpected message: %q", got)
	}
}
