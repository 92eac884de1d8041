package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Zeus-Eternal/kari-failover/pkg/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Long: `Validate a configuration file without starting the daemon.

All validation errors are collected and reported together, including
per-field paths into the fallback configurations.

Examples:
  # Validate the default config
  failoverd validate

  # Validate a specific file
  failoverd validate --config /etc/failoverd/config.yaml`,
	RunE: validateConfig,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func validateConfig(cmd *cobra.Command, args []string) error {
	_, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		var valErr config.ValidationError
		if errors.As(err, &valErr) {
			fmt.Printf("✗ %s is invalid:\n", cfgFile)
			for _, fieldErr := range valErr.Errors {
				fmt.Printf("  - %s\n", fieldErr.Error())
			}
			return fmt.Errorf("%d validation errors", len(valErr.Errors))
		}
		return err
	}

	fmt.Printf("✓ %s is valid\n", cfgFile)
	return nil
}
