// Failoverd is a provider fallback and failover orchestration daemon.
//
// It routes logical calls across ordered provider chains, detects provider
// degradation through rolling outcome windows and active health probes,
// fails over to the next eligible provider when a trigger rule trips, and
// automatically recovers toward the nominal provider once health returns.
//
// Usage:
//
//	# Start the daemon with default configuration
//	failoverd run
//
//	# Start with a custom configuration file
//	failoverd run --config /etc/failoverd/config.yaml
//
//	# Validate a configuration file
//	failoverd validate --config config.yaml
//
//	# Show version information
//	failoverd version
package main

func main() {
	Execute()
}
