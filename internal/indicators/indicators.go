// Package indicators computes technical indicators, strategy tags and
// candlestick tags over OHLCV series. Everything here is a pure function
// of its input; nothing touches the network or the clock.
package indicators

import (
	"fmt"
	"math"

	"github.com/tradia/signals/internal/contracts"
)

// Standard parameter set. Tunables live in one place so the feature
// vector stays aligned with the scoring model.
const (
	rsiPeriod      = 14
	emaFastPeriod  = 5
	emaSlowPeriod  = 20
	macdFastPeriod = 12
	macdSlowPeriod = 26
	macdSignalSpan = 9
	bbPeriod       = 20
	bbStdDev       = 2.0
)

// Enriched is an OHLCV series with indicator columns. Warm-up gaps are
// back-filled then forward-filled, so the latest row is always usable.
type Enriched struct {
	Bars       []contracts.Bar
	RSI        []float64
	EMA5       []float64
	EMA20      []float64
	MACD       []float64
	MACDSignal []float64
	BBMid      []float64
	BBUpper    []float64
	BBLower    []float64
}

// Row is one enriched bar.
type Row struct {
	Bar        contracts.Bar
	RSI        float64
	EMA5       float64
	EMA20      float64
	MACD       float64
	MACDSignal float64
	BBMid      float64
	BBUpper    float64
	BBLower    float64
}

// Enrich computes indicator columns for a bar series. The input is not
// modified. Returns an error for an empty series.
func Enrich(bars []contracts.Bar) (*Enriched, error) {
	if len(bars) == 0 {
		return nil, fmt.Errorf("cannot enrich empty series")
	}

	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}

	e := &Enriched{
		Bars:  bars,
		RSI:   rsi(closes, rsiPeriod),
		EMA5:  ema(closes, emaFastPeriod),
		EMA20: ema(closes, emaSlowPeriod),
	}

	macdLine := subtract(ema(closes, macdFastPeriod), ema(closes, macdSlowPeriod))
	e.MACD = macdLine
	e.MACDSignal = ema(macdLine, macdSignalSpan)

	e.BBMid, e.BBUpper, e.BBLower = bollinger(closes, bbPeriod, bbStdDev)

	for _, col := range [][]float64{e.RSI, e.EMA5, e.EMA20, e.MACD, e.MACDSignal, e.BBMid, e.BBUpper, e.BBLower} {
		fillGaps(col)
	}

	return e, nil
}

// Len returns the number of rows.
func (e *Enriched) Len() int {
	return len(e.Bars)
}

// Row returns the enriched row at index i.
func (e *Enriched) Row(i int) Row {
	return Row{
		Bar:        e.Bars[i],
		RSI:        e.RSI[i],
		EMA5:       e.EMA5[i],
		EMA20:      e.EMA20[i],
		MACD:       e.MACD[i],
		MACDSignal: e.MACDSignal[i],
		BBMid:      e.BBMid[i],
		BBUpper:    e.BBUpper[i],
		BBLower:    e.BBLower[i],
	}
}

// Latest returns the most recent row.
func (e *Enriched) Latest() Row {
	return e.Row(len(e.Bars) - 1)
}

// Previous returns the row before the latest, when one exists.
func (e *Enriched) Previous() (Row, bool) {
	if len(e.Bars) < 2 {
		return Row{}, false
	}
	return e.Row(len(e.Bars) - 2), true
}

// rsi computes the Wilder-smoothed relative strength index. Values
// before the warm-up window are NaN.
func rsi(closes []float64, period int) []float64 {
	out := nanSlice(len(closes))
	if len(closes) <= period {
		return out
	}

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss += -change
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)
	out[period] = rsiValue(avgGain, avgLoss)

	for i := period + 1; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		out[i] = rsiValue(avgGain, avgLoss)
	}

	return out
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100.0
	}
	rs := avgGain / avgLoss
	return 100.0 - 100.0/(1.0+rs)
}

// ema computes an exponential moving average seeded from the first value.
// NaN inputs propagate until the first real value.
func ema(values []float64, period int) []float64 {
	out := nanSlice(len(values))
	if len(values) == 0 {
		return out
	}

	alpha := 2.0 / (float64(period) + 1.0)
	prev := math.NaN()
	for i, v := range values {
		if math.IsNaN(v) {
			continue
		}
		if math.IsNaN(prev) {
			prev = v
		} else {
			prev = alpha*v + (1-alpha)*prev
		}
		out[i] = prev
	}

	return out
}

// bollinger computes the moving average band with a population standard
// deviation, matching the conventional 20/2 parameterization.
func bollinger(closes []float64, period int, stdDev float64) (mid, upper, lower []float64) {
	mid = nanSlice(len(closes))
	upper = nanSlice(len(closes))
	lower = nanSlice(len(closes))

	for i := period - 1; i < len(closes); i++ {
		window := closes[i-period+1 : i+1]

		var sum float64
		for _, v := range window {
			sum += v
		}
		mean := sum / float64(period)

		var variance float64
		for _, v := range window {
			d := v - mean
			variance += d * d
		}
		sd := math.Sqrt(variance / float64(period))

		mid[i] = mean
		upper[i] = mean + stdDev*sd
		lower[i] = mean - stdDev*sd
	}

	return mid, upper, lower
}

func subtract(a, b []float64) []float64 {
	out := make([]float64, len(a))
	for i := range a {
		out[i] = a[i] - b[i]
	}
	return out
}

// fillGaps back-fills leading NaNs from the first real value, then
// forward-fills any remaining gaps.
func fillGaps(col []float64) {
	first := math.NaN()
	for _, v := range col {
		if !math.IsNaN(v) {
			first = v
			break
		}
	}
	if math.IsNaN(first) {
		return
	}

	prev := first
	for i, v := range col {
		if math.IsNaN(v) {
			col[i] = prev
		} else {
			prev = v
		}
	}
}

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
