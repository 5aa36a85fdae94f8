package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/tradia/signals/internal/outcomes"
)

// OutcomeJob sweeps pending outcomes on a fixed interval, independent
// of the scan cadence.
type OutcomeJob struct {
	tracker  *outcomes.Tracker
	interval time.Duration
}

// NewOutcomeJob creates the outcome-check job.
func NewOutcomeJob(tracker *outcomes.Tracker, interval time.Duration) *OutcomeJob {
	return &OutcomeJob{tracker: tracker, interval: interval}
}

func (j *OutcomeJob) Name() string { return "outcome-check" }

func (j *OutcomeJob) Schedule() string {
	if j.interval <= 0 {
		return "@hourly"
	}
	return fmt.Sprintf("@every %s", j.interval)
}

func (j *OutcomeJob) Run(ctx context.Context) error {
	return j.tracker.CheckPending(ctx)
}
