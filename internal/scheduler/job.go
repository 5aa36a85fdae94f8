package scheduler

import (
	"context"
	"sync"
	"time"
)

// Job is a unit of scheduled work.
type Job interface {
	// Name identifies the job in logs and history.
	Name() string

	// Schedule returns the cron expression the job runs on, e.g.
	// "*/30 * * * *" or "@hourly".
	Schedule() string

	// Run executes one iteration.
	Run(ctx context.Context) error
}

// Result records one job execution.
type Result struct {
	JobName   string        `json:"job_name"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
}

// historyLimit caps per-job history retention.
const historyLimit = 100

// History is a bounded record of a job's recent executions. Safe for
// concurrent use.
type History struct {
	mu      sync.Mutex
	results []Result
}

func (h *History) add(r Result) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.results = append(h.results, r)
	if len(h.results) > historyLimit {
		h.results = h.results[len(h.results)-historyLimit:]
	}
}

// Latest returns up to n most recent results, oldest first.
func (h *History) Latest(n int) []Result {
	h.mu.Lock()
	defer h.mu.Unlock()

	if n > len(h.results) {
		n = len(h.results)
	}
	out := make([]Result, n)
	copy(out, h.results[len(h.results)-n:])
	return out
}

// SuccessRate returns the fraction of recorded runs that succeeded.
func (h *History) SuccessRate() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.results) == 0 {
		return 0
	}
	ok := 0
	for _, r := range h.results {
		if r.Success {
			ok++
		}
	}
	return float64(ok) / float64(len(h.results))
}
