package providers

import "context"

// Provider is the capability surface the failover engine requires from a
// backend provider adapter. Adapters wrap the actual transport (HTTP API,
// local runtime, etc.); the engine treats them as opaque invocation targets.
//
// All methods accept a context.Context for cancellation and timeout control.
// Implementations must respect context cancellation and return immediately
// when the context is cancelled.
type Provider interface {
	// Invoke performs a single logical service call against the provider.
	// The request payload is opaque to the engine; adapters are free to
	// interpret or forward it. Returns the provider response or an error
	// describing the failure (timeout, transport error, provider-reported
	// error).
	Invoke(ctx context.Context, req *Request) (*Response, error)

	// HealthCheck performs a lightweight probe against the provider.
	// Returns nil if the provider is reachable and responding, or an error
	// describing the health issue. Called periodically by the health
	// monitor, independent of live traffic.
	HealthCheck(ctx context.Context) error

	// Name returns the provider's configured identifier.
	Name() string

	// Close releases any resources held by the adapter (HTTP connections,
	// file handles). After Close the provider must not be used.
	Close() error
}
