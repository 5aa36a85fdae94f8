package scheduler

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/tradia/signals/pkg/logger"
)

type fakeJob struct {
	name     string
	schedule string
	err      error
	runs     int
}

func (j *fakeJob) Name() string     { return j.name }
func (j *fakeJob) Schedule() string { return j.schedule }
func (j *fakeJob) Run(context.Context) error {
	j.runs++
	return j.err
}

func TestRegister_Duplicate(t *testing.T) {
	s := New(logger.NewNop())

	if err := s.Register(&fakeJob{name: "scan", schedule: "@hourly"}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := s.Register(&fakeJob{name: "scan", schedule: "@hourly"}); err == nil {
		t.Error("duplicate registration should fail")
	}
}

func TestRegister_BadSchedule(t *testing.T) {
	s := New(logger.NewNop())

	if err := s.Register(&fakeJob{name: "scan", schedule: "not a cron expression"}); err == nil {
		t.Error("invalid schedule should fail")
	}
}

func TestExecute_RecordsHistory(t *testing.T) {
	s := New(logger.NewNop())
	s.retryDelay = time.Millisecond

	job := &fakeJob{name: "scan", schedule: "@hourly"}
	if err := s.Register(job); err != nil {
		t.Fatal(err)
	}

	s.execute(job)

	h, err := s.History("scan")
	if err != nil {
		t.Fatal(err)
	}
	latest := h.Latest(1)
	if len(latest) != 1 || !latest[0].Success {
		t.Errorf("history = %+v, want one successful run", latest)
	}
}

func TestExecute_RetriesOnFailure(t *testing.T) {
	s := New(logger.NewNop())
	s.retryDelay = time.Millisecond

	job := &fakeJob{name: "scan", schedule: "@hourly", err: fmt.Errorf("boom")}
	if err := s.Register(job); err != nil {
		t.Fatal(err)
	}

	s.execute(job)

	if want := s.maxRetries + 1; job.runs != want {
		t.Errorf("runs = %d, want %d", job.runs, want)
	}

	h, _ := s.History("scan")
	latest := h.Latest(1)
	if latest[0].Success || latest[0].Error == "" {
		t.Errorf("result = %+v, want recorded failure", latest[0])
	}
	if h.SuccessRate() != 0 {
		t.Errorf("success rate = %v, want 0", h.SuccessRate())
	}
}

func TestHistory_Bounded(t *testing.T) {
	h := &History{}
	for i := 0; i < historyLimit+20; i++ {
		h.add(Result{JobName: "scan", Success: true})
	}

	if got := len(h.results); got != historyLimit {
		t.Errorf("history length = %d, want %d", got, historyLimit)
	}
}
