package contracts

import (
	"context"
	"time"
)

// Bar is a single OHLCV bar.
type Bar struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// GroupedBar is one row of a whole-market daily snapshot.
type GroupedBar struct {
	Ticker string  `json:"ticker"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

// ReferenceTicker is exchange reference metadata for one symbol.
type ReferenceTicker struct {
	Ticker    string  `json:"ticker"`
	Type      string  `json:"type"`   // "CS", "ETF", ...
	MarketCap float64 `json:"market_cap"`
	Sector    string  `json:"sector"`
	Exchange  string  `json:"exchange"`
}

// MarketDataProvider is the market data collaborator. All methods are
// fallible with network errors; callers degrade to skip-and-continue.
type MarketDataProvider interface {
	// GetOHLCV returns daily bars for a ticker over the trailing window,
	// oldest first.
	GetOHLCV(ctx context.Context, ticker string, days int) ([]Bar, error)

	// GetGroupedDaily returns one bar per ticker for the whole market on
	// the given date. An empty slice means the market was closed.
	GetGroupedDaily(ctx context.Context, date time.Time) ([]GroupedBar, error)

	// GetReferenceTickers returns reference metadata for active symbols.
	GetReferenceTickers(ctx context.Context) ([]ReferenceTicker, error)

	// GetCompanyName resolves a ticker to a display name. Returns ""
	// without error when the name is unknown.
	GetCompanyName(ctx context.Context, ticker string) (string, error)
}
