package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run one scan cycle now",
	Long: `Runs a single scan cycle: selects a diversified batch, computes
indicators, scores candidates and promotes top picks. A no-op outside
the configured trading window.

Example:
  go run ./cmd/tradia scan`,
	RunE: runScanOnce,
}

func init() {
	rootCmd.AddCommand(scanCmd)
}

func runScanOnce(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.orchestrator.RunCycle(context.Background()); err != nil {
		return fmt.Errorf("scan cycle: %w", err)
	}

	a.log.Info("scan cycle finished")
	return nil
}
