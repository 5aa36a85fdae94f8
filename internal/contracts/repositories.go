package contracts

import (
	"context"
	"time"
)

// SignalRepository manages durable signal storage.
type SignalRepository interface {
	Create(ctx context.Context, signal *Signal) error
	GetByID(ctx context.Context, id string) (*Signal, error)

	// List returns signals ordered by recency, optionally restricted to
	// top picks.
	List(ctx context.Context, limit int, topOnly bool) ([]*Signal, error)

	// ListByTicker returns a ticker's signal history, newest first.
	ListByTicker(ctx context.Context, ticker string, limit int, topOnly bool) ([]*Signal, error)

	// ListByWindowPrefix returns signals whose window tag starts with the
	// given prefix (typically a calendar day).
	ListByWindowPrefix(ctx context.Context, prefix string, limit int, topOnly bool) ([]*Signal, error)

	// DistinctTickersInWindow returns tickers already signaled in windows
	// matching the prefix. Used for same-day de-duplication.
	DistinctTickersInWindow(ctx context.Context, prefix string) (map[string]bool, error)

	// PromoteWithOutcome applies the promotion and creates the paired
	// PENDING outcome in a single transaction. A signal is never marked
	// top pick without its outcome existing, and vice versa.
	PromoteWithOutcome(ctx context.Context, signalID string, promotion Promotion, deadline time.Time) error
}

// OutcomeRepository manages outcome tracking records.
type OutcomeRepository interface {
	// LatestForSignal returns the outcome for a signal, or nil if the
	// signal was never promoted.
	LatestForSignal(ctx context.Context, signalID string) (*Outcome, error)

	// ListPending returns all outcomes still awaiting a terminal status.
	ListPending(ctx context.Context) ([]*Outcome, error)

	// MarkMet transitions PENDING -> MET and records the timestamp.
	MarkMet(ctx context.Context, outcomeID int64, metAt time.Time) error

	// MarkNotMet transitions PENDING -> NOT_MET.
	MarkNotMet(ctx context.Context, outcomeID int64) error

	// AddPriceCheck appends a price observation for the signal.
	AddPriceCheck(ctx context.Context, check *PriceCheck) error
}
