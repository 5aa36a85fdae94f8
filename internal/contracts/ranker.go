package contracts

import "context"

// RankedPick is one pick returned by the ranker collaborator. Price
// fields arrive as raw strings and are parsed by the scan
// orchestrator; a pick whose target or stop cannot be parsed is simply
// not promoted.
type RankedPick struct {
	Ticker      string `json:"ticker"`
	Rank        int    `json:"rank"`
	Stars       string `json:"stars"`
	TargetPrice string `json:"target_price"`
	StopLoss    string `json:"stop_loss"`
	Direction   string `json:"direction"`
	Rationale   string `json:"rationale"`
}

// RankerCandidate is the subset of signal data submitted for ranking.
type RankerCandidate struct {
	Ticker      string   `json:"ticker"`
	Price       float64  `json:"price"`
	Probability float64  `json:"probability"`
	Tags        []string `json:"tags"`
	Support     float64  `json:"support"`
	Resistance  float64  `json:"resistance"`
	Sector      string   `json:"sector"`
}

// Ranker is the external ranking collaborator. Best effort: it may
// return fewer picks than requested, or none at all, and that is a
// success case.
type Ranker interface {
	RankTop(ctx context.Context, candidates []RankerCandidate, horizonDays int) ([]RankedPick, error)
}
