package handlers

import (
	"math"

	"github.com/tradia/signals/internal/contracts"
)

// SignalView is the API representation of a signal: the stored record
// plus its outcome and display fields derived from the promotion
// levels.
type SignalView struct {
	*contracts.Signal
	AllTags []string           `json:"all_tags"`
	Outcome *contracts.Outcome `json:"outcome,omitempty"`

	// Derived from entry, target and stop. Nil when the signal is not
	// promoted or the levels make the math invalid.
	RiskReward *float64 `json:"risk_reward,omitempty"`
	RewardPct  *float64 `json:"reward_pct,omitempty"`
	RiskPct    *float64 `json:"risk_pct,omitempty"`
}

func newSignalView(s *contracts.Signal, o *contracts.Outcome) *SignalView {
	v := &SignalView{
		Signal:  s,
		AllTags: s.Indicators.AllTags(),
		Outcome: o,
	}
	if s.Promoted() {
		v.RiskReward, v.RewardPct, v.RiskPct = riskReward(
			s.PriceAtSignal, *s.TargetPrice, *s.StopLoss, s.TrackingDirection())
	}
	return v
}

// riskReward returns (reward/risk multiple, % to target, % to stop)
// relative to the entry price. Degenerate levels yield nil rather than
// negative or infinite ratios.
func riskReward(entry, target, stop float64, direction contracts.Direction) (rr, rewardPct, riskPct *float64) {
	if entry <= 0 {
		return nil, nil, nil
	}

	var reward, risk float64
	if direction == contracts.DirectionShort {
		reward = math.Max(entry-target, 0)
		risk = math.Max(stop-entry, 0)
	} else {
		reward = math.Max(target-entry, 0)
		risk = math.Max(entry-stop, 0)
	}

	rewardPct = roundPtr(reward/entry*100, 2)
	if risk > 0 {
		riskPct = roundPtr(risk/entry*100, 2)
		rr = roundPtr(reward/risk, 3)
	}
	return rr, rewardPct, riskPct
}

func roundPtr(v float64, places int) *float64 {
	scale := math.Pow(10, float64(places))
	r := math.Round(v*scale) / scale
	return &r
}
