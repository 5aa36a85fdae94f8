package indicators

import (
	"math"
	"testing"
	"time"

	"github.com/tradia/signals/internal/contracts"
)

// flatBars builds n bars with the given closes; open/high/low are derived
// so candle shapes stay neutral unless a test overrides them.
func barsFromCloses(closes []float64) []contracts.Bar {
	bars := make([]contracts.Bar, len(closes))
	t0 := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	for i, c := range closes {
		bars[i] = contracts.Bar{
			Time:   t0.AddDate(0, 0, i),
			Open:   c,
			High:   c + 0.5,
			Low:    c - 0.5,
			Close:  c,
			Volume: 1_000_000,
		}
	}
	return bars
}

func TestEnrich_EmptySeries(t *testing.T) {
	if _, err := Enrich(nil); err == nil {
		t.Error("Enrich(nil) expected error")
	}
}

func TestEnrich_GapFill(t *testing.T) {
	// 30 bars is enough to put every indicator past warm-up; the fill
	// pass back-fills the warm-up rows, so even row 0 is usable.
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 100 + float64(i%7)
	}

	e, err := Enrich(barsFromCloses(closes))
	if err != nil {
		t.Fatalf("Enrich() error = %v", err)
	}

	for _, idx := range []int{0, e.Len() - 1} {
		row := e.Row(idx)
		for name, v := range map[string]float64{
			"rsi":         row.RSI,
			"ema5":        row.EMA5,
			"ema20":       row.EMA20,
			"macd":        row.MACD,
			"macd_signal": row.MACDSignal,
			"bb_upper":    row.BBUpper,
			"bb_lower":    row.BBLower,
		} {
			if math.IsNaN(v) {
				t.Errorf("row %d: %s is NaN after gap fill", idx, name)
			}
		}
	}
}

func TestRSI_Bounds(t *testing.T) {
	closes := make([]float64, 60)
	for i := range closes {
		// Alternating moves keep RSI strictly inside (0, 100)
		closes[i] = 50 + float64(i%5)
	}

	e, err := Enrich(barsFromCloses(closes))
	if err != nil {
		t.Fatalf("Enrich() error = %v", err)
	}

	for i, v := range e.RSI {
		if math.IsNaN(v) {
			continue
		}
		if v < 0 || v > 100 {
			t.Fatalf("RSI[%d] = %v, out of [0,100]", i, v)
		}
	}
}

func TestRSI_AllGainsSaturates(t *testing.T) {
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}

	e, err := Enrich(barsFromCloses(closes))
	if err != nil {
		t.Fatalf("Enrich() error = %v", err)
	}

	if got := e.Latest().RSI; got != 100 {
		t.Errorf("RSI on monotone gains = %v, want 100", got)
	}
}

func TestBollinger_BandOrdering(t *testing.T) {
	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 100 + math.Sin(float64(i))*3
	}

	e, err := Enrich(barsFromCloses(closes))
	if err != nil {
		t.Fatalf("Enrich() error = %v", err)
	}

	row := e.Latest()
	if !(row.BBLower <= row.BBMid && row.BBMid <= row.BBUpper) {
		t.Errorf("band ordering violated: lower=%v mid=%v upper=%v", row.BBLower, row.BBMid, row.BBUpper)
	}
}

func TestSupportResistance_MonotonicSeries(t *testing.T) {
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	bars := barsFromCloses(closes)

	support, resistance := SupportResistance(bars)

	if resistance < support {
		t.Errorf("resistance %v < support %v", resistance, support)
	}

	// Resistance equals the max high in the 14-bar lookback
	wantResistance := bars[len(bars)-1].High
	if resistance != round2(wantResistance) {
		t.Errorf("resistance = %v, want %v", resistance, round2(wantResistance))
	}

	wantSupport := bars[len(bars)-srLookback].Low
	if support != round2(wantSupport) {
		t.Errorf("support = %v, want %v", support, round2(wantSupport))
	}
}

func TestSupportResistance_ShortSeries(t *testing.T) {
	bars := barsFromCloses([]float64{50})
	support, resistance := SupportResistance(bars)

	if support != 49.5 || resistance != 50.5 {
		t.Errorf("single-bar S/R = %v/%v, want 49.5/50.5", support, resistance)
	}
}

func TestSupportResistance_Empty(t *testing.T) {
	s, r := SupportResistance(nil)
	if s != 0 || r != 0 {
		t.Errorf("empty series S/R = %v/%v, want 0/0", s, r)
	}
}
