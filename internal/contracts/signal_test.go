package contracts

import (
	"testing"
	"time"
)

func TestNewSignal(t *testing.T) {
	now := time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)
	snapshot := IndicatorSnapshot{
		Features:   map[string]float64{"rsi": 32.5},
		CandleTags: []string{"Hammer"},
		Sector:     "Technology",
	}

	sig := NewSignal("AAPL", 187.4, snapshot, 5, "2026-03-02/15:00", now)

	if sig.ID == "" {
		t.Error("expected generated ID")
	}
	if sig.IsTopPick {
		t.Error("new signal must not be a top pick")
	}
	if sig.Promoted() {
		t.Error("new signal must not report promoted")
	}
	if sig.TargetPrice != nil || sig.StopLoss != nil || sig.Rank != nil || sig.Stars != nil {
		t.Error("promotion fields must be unset at creation")
	}

	other := NewSignal("AAPL", 187.4, snapshot, 5, "2026-03-02/15:00", now)
	if other.ID == sig.ID {
		t.Error("signal IDs must be unique")
	}
}

func TestSignal_Promote(t *testing.T) {
	now := time.Now()
	sig := NewSignal("NVDA", 100, IndicatorSnapshot{Sector: "Technology"}, 5, "2026-03-02/15:00", now)

	rank, stars := 1, 4
	sig.Promote(Promotion{
		Rank:        &rank,
		Stars:       &stars,
		TargetPrice: 110,
		StopLoss:    95,
		Direction:   DirectionLong,
		Reasoning:   "momentum continuation",
	})

	if !sig.Promoted() {
		t.Fatal("signal should report promoted")
	}
	if *sig.TargetPrice != 110 || *sig.StopLoss != 95 {
		t.Errorf("target/stop = %v/%v, want 110/95", *sig.TargetPrice, *sig.StopLoss)
	}

	// Pre-promotion fields unchanged
	if sig.Ticker != "NVDA" || sig.PriceAtSignal != 100 || sig.WindowTag != "2026-03-02/15:00" {
		t.Error("promotion must not change pre-promotion fields")
	}
	if sig.Indicators.Sector != "Technology" {
		t.Error("promotion must not change the indicator snapshot")
	}
}

func TestSignal_PromoteDefaultsDirection(t *testing.T) {
	sig := NewSignal("TSLA", 200, IndicatorSnapshot{}, 5, "w", time.Now())
	sig.Promote(Promotion{TargetPrice: 220, StopLoss: 190})

	if sig.Direction != DirectionLong {
		t.Errorf("direction = %q, want long default", sig.Direction)
	}
}

func TestSignal_TrackingDirection(t *testing.T) {
	tests := []struct {
		direction Direction
		want      Direction
	}{
		{DirectionLong, DirectionLong},
		{DirectionShort, DirectionShort},
		{"", DirectionLong},
		{"sideways", DirectionLong},
	}

	for _, tt := range tests {
		sig := &Signal{Direction: tt.direction}
		if got := sig.TrackingDirection(); got != tt.want {
			t.Errorf("TrackingDirection(%q) = %q, want %q", tt.direction, got, tt.want)
		}
	}
}

func TestIndicatorSnapshot_AllTags(t *testing.T) {
	snap := IndicatorSnapshot{
		StrategyTags: []string{"RSI Oversold", "BB Lower Touch", "RSI Oversold"},
		CandleTags:   []string{"Hammer", "BB Lower Touch"},
	}

	got := snap.AllTags()
	want := []string{"RSI Oversold", "BB Lower Touch", "Hammer"}

	if len(got) != len(want) {
		t.Fatalf("AllTags() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("AllTags()[%d] = %q, want %q (order must be first-seen)", i, got[i], want[i])
		}
	}
}

func TestOutcomeStatus_Terminal(t *testing.T) {
	if OutcomePending.Terminal() {
		t.Error("PENDING must not be terminal")
	}
	if !OutcomeMet.Terminal() || !OutcomeNotMet.Terminal() {
		t.Error("MET and NOT_MET must be terminal")
	}
}
