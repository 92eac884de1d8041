// Package failover contains the orchestration core: per-chain runtime state,
// rolling outcome windows, failover rule evaluation, and the orchestrator
// that routes logical calls across ordered provider chains.
//
// A chain is an ordered list of providers; index 0 is the nominal provider.
// The orchestrator retries the active provider within its hop budget, and
// when the budget is exhausted consults the chain's declarative conditions
// and windowed rules. A tripped trigger, gated by cooldown and a firing cap,
// advances the chain to the next eligible provider; when none remains the
// chain is exhausted and calls fail fast with ChainExhaustedError.
//
// Each chain's transitions are linearized through its own lock, so chains
// never contend with each other and concurrent calls against one chain
// synchronize only on reading the active index.
package failover
