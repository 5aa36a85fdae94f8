package contracts

import (
	"time"

	"github.com/google/uuid"
)

// Direction is the trade direction a promoted signal is tracked against.
type Direction string

const (
	DirectionLong  Direction = "long"
	DirectionShort Direction = "short"
)

// IndicatorSnapshot is the structured indicator payload captured at signal
// time. The schema is fixed; Extra carries forward-compatible additions.
type IndicatorSnapshot struct {
	Features     map[string]float64 `json:"features"`
	StrategyTags []string           `json:"strategy_tags"`
	CandleTags   []string           `json:"candle_tags"`
	Support      float64            `json:"support"`
	Resistance   float64            `json:"resistance"`
	Timeframe    string             `json:"timeframe"`
	Sector       string             `json:"sector"`
	Probability  float64            `json:"probability"`
	CompanyName  string             `json:"company_name,omitempty"`
	Extra        map[string]string  `json:"extra,omitempty"`
}

// AllTags returns strategy tags followed by candle tags, de-duplicated
// preserving first-seen order.
func (s IndicatorSnapshot) AllTags() []string {
	seen := make(map[string]bool, len(s.StrategyTags)+len(s.CandleTags))
	out := make([]string, 0, len(s.StrategyTags)+len(s.CandleTags))
	for _, tags := range [][]string{s.StrategyTags, s.CandleTags} {
		for _, t := range tags {
			if seen[t] {
				continue
			}
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}

// Signal is one detected trading opportunity at scan time. A signal is
// created once per (ticker, window) pair and mutated at most once, in
// place, when promoted to top pick.
type Signal struct {
	ID            string            `json:"id"`
	Ticker        string            `json:"ticker"`
	CreatedAt     time.Time         `json:"created_at"`
	PriceAtSignal float64           `json:"price_at_signal"`
	Indicators    IndicatorSnapshot `json:"indicators"`
	HorizonDays   int               `json:"horizon_days"`
	WindowTag     string            `json:"window_tag"`

	// Promotion fields. target and stop are either both set or both nil;
	// rank and stars may independently be nil if the ranker omitted them.
	IsTopPick   bool      `json:"is_top_pick"`
	Rank        *int      `json:"rank,omitempty"`
	Stars       *int      `json:"stars,omitempty"`
	TargetPrice *float64  `json:"target_price,omitempty"`
	StopLoss    *float64  `json:"stop_loss,omitempty"`
	Direction   Direction `json:"direction,omitempty"`
	Reasoning   string    `json:"reasoning,omitempty"`
}

// NewSignal creates an unpromoted signal with a fresh identifier.
func NewSignal(ticker string, price float64, snapshot IndicatorSnapshot, horizonDays int, windowTag string, now time.Time) *Signal {
	return &Signal{
		ID:            uuid.NewString(),
		Ticker:        ticker,
		CreatedAt:     now,
		PriceAtSignal: price,
		Indicators:    snapshot,
		HorizonDays:   horizonDays,
		WindowTag:     windowTag,
	}
}

// Promotion is the field set applied when a signal becomes a top pick.
type Promotion struct {
	Rank        *int
	Stars       *int
	TargetPrice float64
	StopLoss    float64
	Direction   Direction
	Reasoning   string
}

// Promote applies the promotion fields in place. Pre-promotion fields are
// untouched.
func (s *Signal) Promote(p Promotion) {
	s.IsTopPick = true
	s.Rank = p.Rank
	s.Stars = p.Stars
	target := p.TargetPrice
	stop := p.StopLoss
	s.TargetPrice = &target
	s.StopLoss = &stop
	s.Direction = p.Direction
	if s.Direction == "" {
		s.Direction = DirectionLong
	}
	s.Reasoning = p.Reasoning
}

// Promoted reports whether the promotion invariant holds and the signal is
// a top pick: target and stop are both set.
func (s *Signal) Promoted() bool {
	return s.IsTopPick && s.TargetPrice != nil && s.StopLoss != nil
}

// TrackingDirection returns the direction used for outcome evaluation,
// defaulting to long when unset.
func (s *Signal) TrackingDirection() Direction {
	if s.Direction == DirectionShort {
		return DirectionShort
	}
	return DirectionLong
}
