package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var outcomesCmd = &cobra.Command{
	Use:   "outcomes",
	Short: "Check pending outcomes now",
	Long: `Sweeps all pending outcomes once: fetches the latest price for each
promoted signal, records a price check and applies any MET / NOT_MET
transition.

Example:
  go run ./cmd/tradia outcomes`,
	RunE: runOutcomeCheck,
}

func init() {
	rootCmd.AddCommand(outcomesCmd)
}

func runOutcomeCheck(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.tracker.CheckPending(context.Background()); err != nil {
		return fmt.Errorf("outcome check: %w", err)
	}

	a.log.Info("outcome check finished")
	return nil
}
