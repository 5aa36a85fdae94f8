package indicators

import "github.com/tradia/signals/internal/contracts"

// Canonical tag vocabulary. Tag strings are stored verbatim in signal
// snapshots, so renaming one is a data migration.
const (
	TagRSIOversold      = "RSI Oversold"
	TagRSIOverbought    = "RSI Overbought"
	TagBBLowerTouch     = "BB Lower Touch"
	TagBBUpperTouch     = "BB Upper Touch"
	TagBBLowerRSI       = "BB Lower + RSI Oversold"
	TagBBUpperRSI       = "BB Upper + RSI Overbought"
	TagEMACrossover     = "EMA Bullish Crossover"
	TagMACDCrossover    = "MACD Bullish Crossover"
	TagBullishEngulfing = "Bullish Engulfing"
	TagHammer           = "Hammer"
)

const (
	rsiOversoldLevel   = 35.0
	rsiOverboughtLevel = 65.0
)

// StrategyTags detects strategy tags for the latest bar of an enriched
// series. EMA and MACD crossover tags need a true previous-bar
// comparison; with a single row of context they are skipped rather than
// approximated.
func StrategyTags(e *Enriched) []string {
	var tags []string

	row := e.Latest()

	if row.RSI < rsiOversoldLevel {
		tags = append(tags, TagRSIOversold)
	}
	if row.RSI > rsiOverboughtLevel {
		tags = append(tags, TagRSIOverbought)
	}

	if prev, ok := e.Previous(); ok {
		if row.EMA5 > row.EMA20 && prev.EMA5 <= prev.EMA20 {
			tags = append(tags, TagEMACrossover)
		}
		if row.MACD > row.MACDSignal && prev.MACD <= prev.MACDSignal {
			tags = append(tags, TagMACDCrossover)
		}
	}

	// Bollinger touch cues need no previous bar
	if row.Bar.Close <= row.BBLower {
		tags = append(tags, TagBBLowerTouch)
		if row.RSI < rsiOversoldLevel {
			tags = append(tags, TagBBLowerRSI)
		}
	}
	if row.Bar.Close >= row.BBUpper {
		tags = append(tags, TagBBUpperTouch)
		if row.RSI > rsiOverboughtLevel {
			tags = append(tags, TagBBUpperRSI)
		}
	}

	return dedupe(tags)
}

// CandleTags detects bullish candlestick patterns on the latest candle.
// Returns empty for fewer than 2 bars.
func CandleTags(bars []contracts.Bar) []string {
	var tags []string
	if len(bars) < 2 {
		return tags
	}

	latest := bars[len(bars)-1]
	prev := bars[len(bars)-2]

	// Bullish engulfing: previous bearish body fully engulfed by the
	// current bullish body.
	if prev.Close < prev.Open &&
		latest.Close > latest.Open &&
		latest.Close > prev.Open &&
		latest.Open < prev.Close {
		tags = append(tags, TagBullishEngulfing)
	}

	body := abs(latest.Close - latest.Open)
	if body == 0 {
		return dedupe(tags)
	}

	lowerShadow := min2(latest.Open, latest.Close) - latest.Low
	upperShadow := latest.High - max2(latest.Open, latest.Close)
	if lowerShadow > 2*body && upperShadow < body {
		tags = append(tags, TagHammer)
	}

	return dedupe(tags)
}

// dedupe removes duplicates preserving first-seen order.
func dedupe(tags []string) []string {
	if len(tags) < 2 {
		return tags
	}
	seen := make(map[string]bool, len(tags))
	out := tags[:0]
	for _, t := range tags {
		if seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func min2(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func max2(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
