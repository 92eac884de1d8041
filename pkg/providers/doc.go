// Package providers defines the provider adapter abstraction consumed by the
// failover engine and a generic JSON-over-HTTP adapter implementation.
//
// The engine resolves adapters by name through a Registry, invokes them via
// the Provider interface, and probes them with HealthCheck. Adapters own
// their transport details (connection pooling, authentication); the engine
// owns retries, timeouts, and failover.
package providers
