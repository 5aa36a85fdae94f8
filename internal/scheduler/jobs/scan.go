// Package jobs adapts pipeline components to the scheduler's Job
// interface.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/tradia/signals/internal/scan"
)

// ScanJob runs the scan orchestrator every cycle interval on weekdays.
// The orchestrator's own trading-window gate decides whether a fired
// cycle actually scans.
type ScanJob struct {
	orchestrator *scan.Orchestrator
	interval     time.Duration
}

// NewScanJob creates the scan job.
func NewScanJob(orchestrator *scan.Orchestrator, interval time.Duration) *ScanJob {
	return &ScanJob{orchestrator: orchestrator, interval: interval}
}

func (j *ScanJob) Name() string { return "scan" }

func (j *ScanJob) Schedule() string {
	minutes := int(j.interval.Minutes())
	if minutes < 1 || minutes > 59 {
		minutes = 30
	}
	return fmt.Sprintf("*/%d * * * 1-5", minutes)
}

func (j *ScanJob) Run(ctx context.Context) error {
	return j.orchestrator.RunCycle(ctx)
}
