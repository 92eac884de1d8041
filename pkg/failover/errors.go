package failover

import (
	"errors"
	"fmt"
)

// Common engine errors that can be checked with errors.Is().
var (
	// ErrChainNotFound is returned when a request references an unknown or
	// unloaded chain.
	ErrChainNotFound = errors.New("chain not found")

	// ErrConfigDisabled is returned when the chain's owning configuration
	// is disabled.
	ErrConfigDisabled = errors.New("fallback configuration disabled")

	// ErrChainExhausted is returned when no eligible provider remains.
	// The engine does not retry; exhaustion is the caller's to handle.
	ErrChainExhausted = errors.New("fallback chain exhausted")

	// ErrTestInProgress is returned when a synthetic chain test is already
	// running for the chain.
	ErrTestInProgress = errors.New("chain test already in progress")

	// ErrRecoveryFrozen signals that the recovery attempt cap was exceeded
	// and auto-recovery is frozen until a manual reset or a configuration
	// reload. Carried in the freeze log and alert; never surfaced to
	// Invoke callers.
	ErrRecoveryFrozen = errors.New("auto-recovery frozen")
)

// ChainExhaustedError is returned by Invoke when every provider in the chain
// has been tried or is ineligible.
type ChainExhaustedError struct {
	// ChainID is the exhausted chain.
	ChainID string

	// LastError is the error from the last attempted provider.
	LastError error
}

// Error implements the error interface.
func (e *ChainExhaustedError) Error() string {
	if e.LastError != nil {
		return fmt.Sprintf("chain %q exhausted: no eligible provider remains (last error: %v)", e.ChainID, e.LastError)
	}
	return fmt.Sprintf("chain %q exhausted: no eligible provider remains", e.ChainID)
}

// Is implements error matching for errors.Is().
func (e *ChainExhaustedError) Is(target error) bool {
	return target == ErrChainExhausted
}

// Unwrap returns the wrapped error for error chain traversal.
func (e *ChainExhaustedError) Unwrap() error {
	return e.LastError
}
