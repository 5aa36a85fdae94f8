package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tradia/signals/internal/scheduler"
	"github.com/tradia/signals/internal/scheduler/jobs"
)

var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Manage the job scheduler",
	Long: `Runs the pipeline on its schedules.

Registered jobs:
  scan           - every scan interval on weekdays, gated by the trading window
  outcome-check  - hourly sweep of pending outcomes

Use the scan and outcomes commands to trigger either job once by hand.

Example:
  go run ./cmd/tradia scheduler start`,
}

var schedulerStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the scheduler daemon",
	RunE:  runScheduler,
}

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
}

func buildScheduler(a *app) (*scheduler.Scheduler, error) {
	sched := scheduler.New(a.log)

	if err := sched.Register(jobs.NewScanJob(a.orchestrator, a.cfg.Scan.Interval)); err != nil {
		return nil, fmt.Errorf("register scan job: %w", err)
	}
	if err := sched.Register(jobs.NewOutcomeJob(a.tracker, a.cfg.Outcome.CheckInterval)); err != nil {
		return nil, fmt.Errorf("register outcome job: %w", err)
	}

	return sched, nil
}

func runScheduler(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	sched, err := buildScheduler(a)
	if err != nil {
		return err
	}

	sched.Start()
	a.log.Info("scheduler running, press Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	sched.Stop()
	return nil
}
