// Package scheduler hosts the pipeline's recurring jobs on cron
// schedules with retry and bounded execution history.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/tradia/signals/pkg/logger"
)

// Scheduler runs registered jobs on their cron schedules.
type Scheduler struct {
	cron *cron.Cron
	log  *logger.Logger

	mu      sync.RWMutex
	jobs    map[string]Job
	history map[string]*History

	maxRetries int
	retryDelay time.Duration
}

// New creates a scheduler. Schedules use standard five-field cron
// expressions.
func New(log *logger.Logger) *Scheduler {
	return &Scheduler{
		cron:       cron.New(),
		log:        log,
		jobs:       make(map[string]Job),
		history:    make(map[string]*History),
		maxRetries: 2,
		retryDelay: 30 * time.Second,
	}
}

// Register adds a job. Registering the same name twice is an error.
func (s *Scheduler) Register(job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := job.Name()
	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("job %s already registered", name)
	}

	if _, err := s.cron.AddFunc(job.Schedule(), func() { s.execute(job) }); err != nil {
		return fmt.Errorf("schedule job %s: %w", name, err)
	}

	s.jobs[name] = job
	s.history[name] = &History{}

	s.log.WithFields(map[string]interface{}{
		"job":      name,
		"schedule": job.Schedule(),
	}).Info("job registered")

	return nil
}

// Start begins running schedules in the background.
func (s *Scheduler) Start() {
	s.log.Info("scheduler starting")
	s.cron.Start()
}

// Stop halts scheduling and waits for in-flight jobs.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info("scheduler stopped")
}

// TriggerNow runs a registered job immediately, off-schedule.
func (s *Scheduler) TriggerNow(name string) error {
	s.mu.RLock()
	job, exists := s.jobs[name]
	s.mu.RUnlock()

	if !exists {
		return fmt.Errorf("job %s not registered", name)
	}

	go s.execute(job)
	return nil
}

// History returns a job's execution history.
func (s *Scheduler) History(name string) (*History, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h, exists := s.history[name]
	if !exists {
		return nil, fmt.Errorf("job %s not registered", name)
	}
	return h, nil
}

// execute runs one job iteration with retries and records the result.
func (s *Scheduler) execute(job Job) {
	name := job.Name()
	start := time.Now()

	var lastErr error
	for attempt := 0; ; attempt++ {
		lastErr = job.Run(context.Background())
		if lastErr == nil {
			break
		}

		if attempt >= s.maxRetries {
			break
		}
		s.log.WithError(lastErr).WithFields(map[string]interface{}{
			"job":     name,
			"attempt": attempt + 1,
		}).Warn("job failed, retrying")
		time.Sleep(s.retryDelay)
	}

	result := Result{
		JobName:   name,
		StartedAt: start,
		Duration:  time.Since(start),
		Success:   lastErr == nil,
	}
	if lastErr != nil {
		result.Error = lastErr.Error()
	}

	s.mu.Lock()
	if h, exists := s.history[name]; exists {
		h.add(result)
	}
	s.mu.Unlock()

	if lastErr != nil {
		s.log.WithError(lastErr).WithFields(map[string]interface{}{
			"job":      name,
			"duration": result.Duration,
		}).Error("job failed after retries")
		return
	}

	s.log.WithFields(map[string]interface{}{
		"job":      name,
		"duration": result.Duration,
	}).Info("job completed")
}
