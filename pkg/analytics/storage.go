package analytics

import (
	"context"
	"time"
)

// Storage is the durable event store backing the recorder. Implementations
// live in the storage subpackage; events are keyed by (chain id, timestamp)
// for bounded retrieval by recency.
//
// Implementations must be safe for concurrent use.
type Storage interface {
	// Append persists one event.
	Append(ctx context.Context, event *Event) error

	// List returns the most recent events for a chain, newest first,
	// up to limit. A non-positive limit applies a backend default.
	List(ctx context.Context, chainID string, limit int) ([]*Event, error)

	// Prune deletes events older than the cutoff and returns the number
	// deleted.
	Prune(ctx context.Context, cutoff time.Time) (int64, error)

	// Close releases backend resources.
	Close() error
}
