package indicators

import (
	"math"

	"github.com/tradia/signals/internal/contracts"
)

const srLookback = 14

// SupportResistance derives basic support and resistance from recent
// price action: the rolling 14-bar minimum of lows and maximum of highs,
// evaluated at the latest bar. Minimum one period of warm-up; values are
// rounded to 2 decimal places.
func SupportResistance(bars []contracts.Bar) (support, resistance float64) {
	if len(bars) == 0 {
		return 0, 0
	}

	start := len(bars) - srLookback
	if start < 0 {
		start = 0
	}

	support = bars[start].Low
	resistance = bars[start].High
	for _, b := range bars[start:] {
		if b.Low < support {
			support = b.Low
		}
		if b.High > resistance {
			resistance = b.High
		}
	}

	return round2(support), round2(resistance)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
