package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "failoverd",
	Short: "Provider fallback and failover orchestration daemon",
	Long: `Failoverd routes logical calls across ordered provider chains.

It detects provider degradation through rolling outcome windows and active
health probes, fails over to the next eligible provider when a trigger rule
trips, and automatically recovers toward the nominal provider once health
is restored. An admin HTTP API manages fallback configurations, runs
sandboxed chain tests, and exposes events, analytics, and alerts.`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
}
