// Package storage provides the in-memory and SQLite implementations of the
// analytics event store. Events are keyed by (chain id, timestamp) for
// bounded retrieval by recency.
package storage

import "fmt"

// defaultListLimit bounds List results when the caller passes no limit.
const defaultListLimit = 100

// StorageError wraps a backend failure with the backend name and operation.
type StorageError struct {
	Backend string
	Op      string
	Err     error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("%s storage %s failed: %v", e.Backend, e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *StorageError) Unwrap() error {
	return e.Err
}
