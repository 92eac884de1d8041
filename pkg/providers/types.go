package providers

import (
	"encoding/json"
	"time"
)

// Request is the provider-agnostic invocation envelope. The engine never
// inspects Payload; it is carried through to the selected provider adapter.
type Request struct {
	// ID is the unique identifier for this logical call.
	ID string `json:"id"`

	// Model is an optional model identifier. When the fallback chain entry
	// pins a model, the orchestrator overwrites this field before invoking
	// the adapter.
	Model string `json:"model,omitempty"`

	// Payload is the opaque request body forwarded to the provider.
	Payload json.RawMessage `json:"payload,omitempty"`

	// Metadata carries additional request context (user id, session id).
	// It is not sent to the provider.
	Metadata map[string]string `json:"-"`
}

// Response is the provider-agnostic invocation result.
type Response struct {
	// ID echoes the request identifier.
	ID string `json:"id"`

	// Provider is the name of the provider that served the call.
	Provider string `json:"provider"`

	// Model is the model that actually served the call, if reported.
	Model string `json:"model,omitempty"`

	// Payload is the opaque response body from the provider.
	Payload json.RawMessage `json:"payload,omitempty"`

	// Latency is the provider round-trip time measured by the adapter
	// or the orchestrator.
	Latency time.Duration `json:"latency"`
}

// Config contains the transport configuration for a single provider adapter.
type Config struct {
	// Name is the provider identifier (e.g., "openai-primary").
	Name string `yaml:"name"`

	// BaseURL is the API endpoint base URL.
	BaseURL string `yaml:"base_url"`

	// APIKey is the authentication key. Optional for local providers.
	APIKey string `yaml:"api_key"`

	// InvokePath is the request path for invocations.
	// Default: "/v1/invoke"
	InvokePath string `yaml:"invoke_path"`

	// HealthPath is the request path for health probes.
	// Default: "/healthz"
	HealthPath string `yaml:"health_path"`

	// Timeout is the adapter-level request timeout. The orchestrator
	// applies its own per-hop timeout on top of this.
	// Default: 60s
	Timeout time.Duration `yaml:"timeout"`

	// MaxIdleConns is the maximum number of idle connections in the pool.
	// Default: 10
	MaxIdleConns int `yaml:"max_idle_conns"`

	// IdleConnTimeout is how long an idle connection remains in the pool.
	// Default: 90s
	IdleConnTimeout time.Duration `yaml:"idle_conn_timeout"`
}
