package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"github.com/tradia/signals/internal/contracts"
	"github.com/tradia/signals/internal/store"
	"github.com/tradia/signals/pkg/logger"
)

type fakeSignalReader struct {
	byID    map[string]*contracts.Signal
	listed  []*contracts.Signal
	listErr error

	lastTicker string
	lastPrefix string
	lastLimit  int
	lastTop    bool
}

func (f *fakeSignalReader) GetByID(_ context.Context, id string) (*contracts.Signal, error) {
	s, ok := f.byID[id]
	if !ok {
		return nil, fmt.Errorf("signal %s: %w", id, store.ErrNotFound)
	}
	return s, nil
}

func (f *fakeSignalReader) List(_ context.Context, limit int, topOnly bool) ([]*contracts.Signal, error) {
	f.lastLimit, f.lastTop = limit, topOnly
	return f.listed, f.listErr
}

func (f *fakeSignalReader) ListByTicker(_ context.Context, ticker string, limit int, topOnly bool) ([]*contracts.Signal, error) {
	f.lastTicker, f.lastLimit, f.lastTop = ticker, limit, topOnly
	return f.listed, f.listErr
}

func (f *fakeSignalReader) ListByWindowPrefix(_ context.Context, prefix string, limit int, topOnly bool) ([]*contracts.Signal, error) {
	f.lastPrefix, f.lastLimit, f.lastTop = prefix, limit, topOnly
	return f.listed, f.listErr
}

type fakeOutcomeReader struct {
	outcomes map[string]*contracts.Outcome
	pending  []*contracts.Outcome
	checks   []*contracts.PriceCheck
}

func (f *fakeOutcomeReader) LatestForSignal(_ context.Context, signalID string) (*contracts.Outcome, error) {
	return f.outcomes[signalID], nil
}

func (f *fakeOutcomeReader) ListPending(context.Context) ([]*contracts.Outcome, error) {
	return f.pending, nil
}

func (f *fakeOutcomeReader) ListPriceChecks(_ context.Context, signalID string, limit int) ([]*contracts.PriceCheck, error) {
	return f.checks, nil
}

func newTestHandler(signals *fakeSignalReader, outcomes *fakeOutcomeReader) *SignalHandler {
	return NewSignalHandler(signals, outcomes, logger.NewNop())
}

func promotedSignal(id, ticker string, entry, target, stop float64) *contracts.Signal {
	sig := contracts.NewSignal(ticker, entry, contracts.IndicatorSnapshot{
		StrategyTags: []string{"RSI Oversold"},
		CandleTags:   []string{"Hammer"},
	}, 5, "2026-03-02/15:00", time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC))
	sig.ID = id
	sig.Promote(contracts.Promotion{TargetPrice: target, StopLoss: stop, Direction: contracts.DirectionLong})
	return sig
}

func decodeViews(t *testing.T, rec *httptest.ResponseRecorder) []SignalView {
	t.Helper()
	var out []SignalView
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func TestLatest_DerivesDisplayFields(t *testing.T) {
	promoted := promotedSignal("sig-1", "AAPL", 100, 110, 95)
	plain := contracts.NewSignal("MSFT", 50, contracts.IndicatorSnapshot{}, 5, "2026-03-02/15:00", time.Now())

	signals := &fakeSignalReader{listed: []*contracts.Signal{promoted, plain}}
	outcomes := &fakeOutcomeReader{outcomes: map[string]*contracts.Outcome{
		"sig-1": {ID: 1, SignalID: "sig-1", Status: contracts.OutcomePending},
	}}
	h := newTestHandler(signals, outcomes)

	rec := httptest.NewRecorder()
	h.Latest(rec, httptest.NewRequest("GET", "/api/signals/latest", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	views := decodeViews(t, rec)
	if len(views) != 2 {
		t.Fatalf("got %d views, want 2", len(views))
	}

	v := views[0]
	if v.RiskReward == nil || *v.RiskReward != 2 {
		t.Errorf("risk_reward = %v, want 2", v.RiskReward)
	}
	if v.RewardPct == nil || *v.RewardPct != 10 {
		t.Errorf("reward_pct = %v, want 10", v.RewardPct)
	}
	if v.RiskPct == nil || *v.RiskPct != 5 {
		t.Errorf("risk_pct = %v, want 5", v.RiskPct)
	}
	if v.Outcome == nil || v.Outcome.Status != contracts.OutcomePending {
		t.Errorf("outcome = %+v, want pending", v.Outcome)
	}
	if want := []string{"RSI Oversold", "Hammer"}; len(v.AllTags) != 2 || v.AllTags[0] != want[0] || v.AllTags[1] != want[1] {
		t.Errorf("all_tags = %v, want %v", v.AllTags, want)
	}

	if views[1].RiskReward != nil || views[1].Outcome != nil {
		t.Errorf("unpromoted view should carry no derived fields, got %+v", views[1])
	}
}

func TestLatest_LimitAndTopOnly(t *testing.T) {
	signals := &fakeSignalReader{}
	h := newTestHandler(signals, &fakeOutcomeReader{})

	rec := httptest.NewRecorder()
	h.Latest(rec, httptest.NewRequest("GET", "/api/signals/latest?limit=9999&only_top=true", nil))

	if signals.lastLimit != 500 {
		t.Errorf("limit = %d, want clamped to 500", signals.lastLimit)
	}
	if !signals.lastTop {
		t.Error("only_top=true not forwarded")
	}
}

func TestGetByID_NotFound(t *testing.T) {
	h := newTestHandler(&fakeSignalReader{}, &fakeOutcomeReader{})

	req := mux.SetURLVars(httptest.NewRequest("GET", "/api/signals/nope", nil), map[string]string{"id": "nope"})
	rec := httptest.NewRecorder()
	h.GetByID(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestByDay_RequiresValidDate(t *testing.T) {
	signals := &fakeSignalReader{}
	h := newTestHandler(signals, &fakeOutcomeReader{})

	for _, date := range []string{"", "02-03-2026", "not-a-date"} {
		rec := httptest.NewRecorder()
		h.ByDay(rec, httptest.NewRequest("GET", "/api/signals/day?date="+date, nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("date %q: status = %d, want 400", date, rec.Code)
		}
	}

	rec := httptest.NewRecorder()
	h.ByDay(rec, httptest.NewRequest("GET", "/api/signals/day?date=2026-03-02", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if signals.lastPrefix != "2026-03-02" {
		t.Errorf("prefix = %q, want the date", signals.lastPrefix)
	}
	if !signals.lastTop {
		t.Error("only_top should default to true for day queries")
	}
}

func TestSearch_NormalizesTicker(t *testing.T) {
	signals := &fakeSignalReader{}
	h := newTestHandler(signals, &fakeOutcomeReader{})

	rec := httptest.NewRecorder()
	h.Search(rec, httptest.NewRequest("GET", "/api/signals/search?ticker=+aapl+", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if signals.lastTicker != "AAPL" {
		t.Errorf("ticker = %q, want AAPL", signals.lastTicker)
	}

	rec = httptest.NewRecorder()
	h.Search(rec, httptest.NewRequest("GET", "/api/signals/search", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing ticker: status = %d, want 400", rec.Code)
	}
}

func TestOpenOutcomes_SkipsOrphans(t *testing.T) {
	sig := promotedSignal("sig-1", "AAPL", 100, 110, 95)
	outcome := &contracts.Outcome{ID: 1, SignalID: "sig-1", Status: contracts.OutcomePending}
	orphan := &contracts.Outcome{ID: 2, SignalID: "gone", Status: contracts.OutcomePending}

	signals := &fakeSignalReader{byID: map[string]*contracts.Signal{"sig-1": sig}}
	outcomes := &fakeOutcomeReader{pending: []*contracts.Outcome{outcome, orphan}}
	h := newTestHandler(signals, outcomes)

	rec := httptest.NewRecorder()
	h.OpenOutcomes(rec, httptest.NewRequest("GET", "/api/outcomes/open", nil))

	views := decodeViews(t, rec)
	if len(views) != 1 || views[0].Ticker != "AAPL" {
		t.Errorf("views = %+v, want only AAPL", views)
	}
	if views[0].Outcome == nil || views[0].Outcome.ID != 1 {
		t.Errorf("outcome not joined: %+v", views[0].Outcome)
	}
}

func TestPriceChecks_EmptyIsArray(t *testing.T) {
	h := newTestHandler(&fakeSignalReader{}, &fakeOutcomeReader{})

	req := mux.SetURLVars(httptest.NewRequest("GET", "/api/signals/sig-1/checks", nil), map[string]string{"id": "sig-1"})
	rec := httptest.NewRecorder()
	h.PriceChecks(rec, req)

	if got := rec.Body.String(); got != "[]\n" {
		t.Errorf("body = %q, want empty JSON array", got)
	}
}

func TestRiskReward(t *testing.T) {
	long := contracts.DirectionLong
	short := contracts.DirectionShort

	tests := []struct {
		name                string
		entry, target, stop float64
		direction           contracts.Direction
		wantRR              *float64
		wantReward          *float64
		wantRisk            *float64
	}{
		{"long 2:1", 100, 110, 95, long, f(2), f(10), f(5)},
		{"short", 100, 90, 104, short, f(2.5), f(10), f(4)},
		{"zero risk omits ratio", 100, 110, 100, long, nil, f(10), nil},
		{"inverted levels clamp to zero reward", 100, 90, 95, long, f(0), f(0), f(5)},
		{"bad entry", 0, 110, 95, long, nil, nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr, reward, risk := riskReward(tt.entry, tt.target, tt.stop, tt.direction)
			checkPtr(t, "rr", rr, tt.wantRR)
			checkPtr(t, "reward_pct", reward, tt.wantReward)
			checkPtr(t, "risk_pct", risk, tt.wantRisk)
		})
	}
}

func f(v float64) *float64 { return &v }

func checkPtr(t *testing.T, name string, got, want *float64) {
	t.Helper()
	switch {
	case want == nil && got != nil:
		t.Errorf("%s = %v, want nil", name, *got)
	case want != nil && got == nil:
		t.Errorf("%s = nil, want %v", name, *want)
	case want != nil && *got != *want:
		t.Errorf("%s = %v, want %v", name, *got, *want)
	}
}
