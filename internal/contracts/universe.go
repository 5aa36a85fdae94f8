package contracts

// Candidate is one scan candidate produced by the universe selector,
// ordered by selection priority.
type Candidate struct {
	Ticker string  `json:"ticker"`
	Sector string  `json:"sector"`
	Score  float64 `json:"score"`
}

// UniverseRow is one scored row of the daily universe before batch
// selection. Rows are cached per calendar day.
type UniverseRow struct {
	Ticker    string  `json:"ticker"`
	Sector    string  `json:"sector"`
	MarketCap float64 `json:"market_cap"`
	Open      float64 `json:"open"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
	PrevClose float64 `json:"prev_close"`
	AvgVol30  float64 `json:"avg_vol_30"`
	RelVolume float64 `json:"rel_volume"`
	Gap       float64 `json:"gap"`
	Move      float64 `json:"move"`
	Score     float64 `json:"score"`
}
