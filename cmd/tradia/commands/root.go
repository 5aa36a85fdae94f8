// Package commands implements the tradia CLI.
package commands

import (
	"github.com/spf13/cobra"
)

var verbose bool

// rootCmd is the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "tradia",
	Short: "Equity signal scanning and outcome tracking pipeline",
	Long: `Tradia scans a diversified equity universe for technical reversal
setups, scores them with a trained model, promotes the strongest picks
and tracks whether each pick hits its target before its deadline.

Usage:
  go run ./cmd/tradia [command]

Examples:
  go run ./cmd/tradia api
  go run ./cmd/tradia scan
  go run ./cmd/tradia outcomes
  go run ./cmd/tradia scheduler start`,
}

// Execute runs the root command. Called once from main.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
