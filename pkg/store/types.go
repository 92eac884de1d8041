// Package store persists fallback configurations across restarts. Configs
// are stored as JSON blobs keyed by id, with memory and SQLite backends.
package store

import (
	"context"
	"errors"

	"github.com/Zeus-Eternal/kari-failover/pkg/config"
)

// ErrNotFound is returned when a fallback configuration does not exist.
var ErrNotFound = errors.New("fallback config not found")

// ConfigStore is the persistence layer for fallback configurations.
// The engine loads all stored configs at startup and writes through on
// every admin mutation.
//
// Implementations must be safe for concurrent use.
type ConfigStore interface {
	// Get returns the config with the given id, or ErrNotFound.
	Get(ctx context.Context, id string) (*config.FallbackConfig, error)

	// Put creates or replaces a config, keyed by its ID field.
	Put(ctx context.Context, fc *config.FallbackConfig) error

	// Delete removes a config. Deleting a missing config returns
	// ErrNotFound.
	Delete(ctx context.Context, id string) error

	// List returns all stored configs in unspecified order.
	List(ctx context.Context) ([]*config.FallbackConfig, error)

	// Close releases backend resources.
	Close() error
}
