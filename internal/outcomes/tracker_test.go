package outcomes

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/tradia/signals/internal/contracts"
	"github.com/tradia/signals/pkg/logger"
)

var checkTime = time.Date(2026, 3, 4, 16, 0, 0, 0, time.UTC)

func TestEvaluate(t *testing.T) {
	deadline := checkTime.Add(48 * time.Hour)
	lapsed := checkTime.Add(-time.Minute)

	tests := []struct {
		name      string
		direction contracts.Direction
		target    float64
		price     float64
		deadline  time.Time
		want      contracts.OutcomeStatus
	}{
		{"long target reached", contracts.DirectionLong, 110, 112, deadline, contracts.OutcomeMet},
		{"long target exact", contracts.DirectionLong, 110, 110, deadline, contracts.OutcomeMet},
		{"long below target stays pending", contracts.DirectionLong, 110, 105, deadline, contracts.OutcomePending},
		{"stop breach is not a transition", contracts.DirectionLong, 110, 90, deadline, contracts.OutcomePending},
		{"deadline lapsed", contracts.DirectionLong, 110, 105, lapsed, contracts.OutcomeNotMet},
		{"met beats lapsed deadline", contracts.DirectionLong, 110, 112, lapsed, contracts.OutcomeMet},
		{"deadline boundary is lapsed", contracts.DirectionLong, 110, 105, checkTime, contracts.OutcomeNotMet},
		{"short target reached", contracts.DirectionShort, 90, 88, deadline, contracts.OutcomeMet},
		{"short above target stays pending", contracts.DirectionShort, 90, 95, deadline, contracts.OutcomePending},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Evaluate(tt.direction, tt.target, tt.price, checkTime, tt.deadline)
			if got != tt.want {
				t.Errorf("Evaluate() = %v, want %v", got, tt.want)
			}
		})
	}
}

type fakeSignalRepo struct {
	signals map[string]*contracts.Signal
}

func (r *fakeSignalRepo) Create(_ context.Context, s *contracts.Signal) error {
	r.signals[s.ID] = s
	return nil
}

func (r *fakeSignalRepo) GetByID(_ context.Context, id string) (*contracts.Signal, error) {
	s, ok := r.signals[id]
	if !ok {
		return nil, fmt.Errorf("signal %s not found", id)
	}
	return s, nil
}

func (r *fakeSignalRepo) List(context.Context, int, bool) ([]*contracts.Signal, error) {
	return nil, nil
}

func (r *fakeSignalRepo) ListByTicker(context.Context, string, int, bool) ([]*contracts.Signal, error) {
	return nil, nil
}

func (r *fakeSignalRepo) ListByWindowPrefix(context.Context, string, int, bool) ([]*contracts.Signal, error) {
	return nil, nil
}

func (r *fakeSignalRepo) DistinctTickersInWindow(context.Context, string) (map[string]bool, error) {
	return nil, nil
}

func (r *fakeSignalRepo) PromoteWithOutcome(context.Context, string, contracts.Promotion, time.Time) error {
	return nil
}

type fakeOutcomeRepo struct {
	pending []*contracts.Outcome
	met     map[int64]time.Time
	notMet  map[int64]bool
	checks  []*contracts.PriceCheck
}

func newFakeOutcomeRepo(pending ...*contracts.Outcome) *fakeOutcomeRepo {
	return &fakeOutcomeRepo{
		pending: pending,
		met:     make(map[int64]time.Time),
		notMet:  make(map[int64]bool),
	}
}

func (r *fakeOutcomeRepo) LatestForSignal(context.Context, string) (*contracts.Outcome, error) {
	return nil, nil
}

func (r *fakeOutcomeRepo) ListPending(context.Context) ([]*contracts.Outcome, error) {
	return r.pending, nil
}

func (r *fakeOutcomeRepo) MarkMet(_ context.Context, id int64, metAt time.Time) error {
	r.met[id] = metAt
	return nil
}

func (r *fakeOutcomeRepo) MarkNotMet(_ context.Context, id int64) error {
	r.notMet[id] = true
	return nil
}

func (r *fakeOutcomeRepo) AddPriceCheck(_ context.Context, c *contracts.PriceCheck) error {
	r.checks = append(r.checks, c)
	return nil
}

type priceProvider struct {
	prices map[string]float64
	errs   map[string]bool
}

func (p *priceProvider) GetOHLCV(_ context.Context, ticker string, _ int) ([]contracts.Bar, error) {
	if p.errs[ticker] {
		return nil, fmt.Errorf("feed down")
	}
	price, ok := p.prices[ticker]
	if !ok {
		return nil, nil
	}
	return []contracts.Bar{{Time: checkTime, Close: price}}, nil
}

func (p *priceProvider) GetGroupedDaily(context.Context, time.Time) ([]contracts.GroupedBar, error) {
	return nil, nil
}

func (p *priceProvider) GetReferenceTickers(context.Context) ([]contracts.ReferenceTicker, error) {
	return nil, nil
}

func (p *priceProvider) GetCompanyName(context.Context, string) (string, error) {
	return "", nil
}

func promotedSignal(ticker string, target, stop float64, direction contracts.Direction) *contracts.Signal {
	sig := contracts.NewSignal(ticker, 100, contracts.IndicatorSnapshot{}, 5, "2026-03-02/15:00", checkTime.Add(-48*time.Hour))
	sig.Promote(contracts.Promotion{TargetPrice: target, StopLoss: stop, Direction: direction})
	return sig
}

func newTestTracker(sig *contracts.Signal, outcome *contracts.Outcome, price float64) (*Tracker, *fakeOutcomeRepo) {
	signals := &fakeSignalRepo{signals: map[string]*contracts.Signal{sig.ID: sig}}
	outcomes := newFakeOutcomeRepo(outcome)
	provider := &priceProvider{prices: map[string]float64{sig.Ticker: price}}

	tr := NewTracker(signals, outcomes, provider, logger.NewNop())
	tr.now = func() time.Time { return checkTime }
	return tr, outcomes
}

func TestCheckPending_TargetMet(t *testing.T) {
	sig := promotedSignal("AAPL", 110, 95, contracts.DirectionLong)
	outcome := &contracts.Outcome{ID: 1, SignalID: sig.ID, Status: contracts.OutcomePending, Deadline: checkTime.Add(24 * time.Hour)}
	tr, repo := newTestTracker(sig, outcome, 112)

	if err := tr.CheckPending(context.Background()); err != nil {
		t.Fatalf("CheckPending() error = %v", err)
	}

	metAt, ok := repo.met[1]
	if !ok {
		t.Fatal("outcome should be MET")
	}
	if !metAt.Equal(checkTime) {
		t.Errorf("target_met_at = %v, want %v", metAt, checkTime)
	}
	if len(repo.checks) != 1 || repo.checks[0].Price != 112 {
		t.Errorf("price checks = %+v, want one at 112", repo.checks)
	}
}

func TestCheckPending_StopBreachStaysPending(t *testing.T) {
	sig := promotedSignal("AAPL", 110, 95, contracts.DirectionLong)
	outcome := &contracts.Outcome{ID: 1, SignalID: sig.ID, Status: contracts.OutcomePending, Deadline: checkTime.Add(24 * time.Hour)}
	tr, repo := newTestTracker(sig, outcome, 90)

	if err := tr.CheckPending(context.Background()); err != nil {
		t.Fatalf("CheckPending() error = %v", err)
	}

	if len(repo.met) != 0 || len(repo.notMet) != 0 {
		t.Error("a price below the stop must not transition the outcome")
	}
	if len(repo.checks) != 1 {
		t.Errorf("price checks = %d, want 1 even without a transition", len(repo.checks))
	}
}

func TestCheckPending_DeadlineLapsed(t *testing.T) {
	sig := promotedSignal("AAPL", 110, 95, contracts.DirectionLong)
	outcome := &contracts.Outcome{ID: 1, SignalID: sig.ID, Status: contracts.OutcomePending, Deadline: checkTime.Add(-time.Hour)}
	tr, repo := newTestTracker(sig, outcome, 105)

	if err := tr.CheckPending(context.Background()); err != nil {
		t.Fatalf("CheckPending() error = %v", err)
	}

	if !repo.notMet[1] {
		t.Error("outcome should be NOT_MET after the deadline")
	}
	if len(repo.met) != 0 {
		t.Error("outcome must not also be MET")
	}
}

func TestCheckPending_MetBeatsDeadline(t *testing.T) {
	sig := promotedSignal("AAPL", 110, 95, contracts.DirectionLong)
	outcome := &contracts.Outcome{ID: 1, SignalID: sig.ID, Status: contracts.OutcomePending, Deadline: checkTime.Add(-time.Hour)}
	tr, repo := newTestTracker(sig, outcome, 112)

	if err := tr.CheckPending(context.Background()); err != nil {
		t.Fatalf("CheckPending() error = %v", err)
	}

	if _, ok := repo.met[1]; !ok {
		t.Error("target-reached must take precedence over the lapsed deadline")
	}
	if repo.notMet[1] {
		t.Error("outcome must not be NOT_MET when the target was reached")
	}
}

func TestCheckPending_ShortDirection(t *testing.T) {
	sig := promotedSignal("XOM", 90, 105, contracts.DirectionShort)
	outcome := &contracts.Outcome{ID: 7, SignalID: sig.ID, Status: contracts.OutcomePending, Deadline: checkTime.Add(24 * time.Hour)}
	tr, repo := newTestTracker(sig, outcome, 88)

	if err := tr.CheckPending(context.Background()); err != nil {
		t.Fatalf("CheckPending() error = %v", err)
	}

	if _, ok := repo.met[7]; !ok {
		t.Error("short outcome should be MET at a price below target")
	}
}

func TestCheckPending_PriceFetchFailureSkips(t *testing.T) {
	sigOK := promotedSignal("AAPL", 110, 95, contracts.DirectionLong)
	sigBad := promotedSignal("FAIL", 50, 40, contracts.DirectionLong)

	signals := &fakeSignalRepo{signals: map[string]*contracts.Signal{
		sigOK.ID:  sigOK,
		sigBad.ID: sigBad,
	}}
	repo := newFakeOutcomeRepo(
		&contracts.Outcome{ID: 1, SignalID: sigBad.ID, Status: contracts.OutcomePending, Deadline: checkTime.Add(24 * time.Hour)},
		&contracts.Outcome{ID: 2, SignalID: sigOK.ID, Status: contracts.OutcomePending, Deadline: checkTime.Add(24 * time.Hour)},
	)
	provider := &priceProvider{
		prices: map[string]float64{"AAPL": 112},
		errs:   map[string]bool{"FAIL": true},
	}

	tr := NewTracker(signals, repo, provider, logger.NewNop())
	tr.now = func() time.Time { return checkTime }

	if err := tr.CheckPending(context.Background()); err != nil {
		t.Fatalf("CheckPending() error = %v", err)
	}

	// The failed ticker is skipped; the healthy one still transitions.
	if _, ok := repo.met[2]; !ok {
		t.Error("healthy outcome should still be MET")
	}
	if len(repo.checks) != 1 {
		t.Errorf("price checks = %d, want 1 (no sample for the failed ticker)", len(repo.checks))
	}
}
