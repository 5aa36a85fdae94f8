// Package outcomes drives the outcome state machine for promoted
// signals: PENDING until the target is reached (MET) or the deadline
// lapses (NOT_MET), both terminal.
package outcomes

import (
	"context"
	"fmt"
	"time"

	"github.com/tradia/signals/internal/contracts"
	"github.com/tradia/signals/pkg/logger"
)

// priceLookbackDays bounds the history fetch used to sample the latest
// price for a ticker.
const priceLookbackDays = 5

// Evaluate decides the next status for a pending outcome given one
// price sample. Target-reached wins over deadline-lapsed when both hold
// in the same check. A stop-loss breach never transitions the outcome;
// only target-reached and deadline-lapsed do.
func Evaluate(direction contracts.Direction, target, price float64, now, deadline time.Time) contracts.OutcomeStatus {
	if targetReached(direction, target, price) {
		return contracts.OutcomeMet
	}
	if !now.Before(deadline) {
		return contracts.OutcomeNotMet
	}
	return contracts.OutcomePending
}

func targetReached(direction contracts.Direction, target, price float64) bool {
	if direction == contracts.DirectionShort {
		return price <= target
	}
	return price >= target
}

// Tracker evaluates pending outcomes on a schedule.
type Tracker struct {
	signals  contracts.SignalRepository
	outcomes contracts.OutcomeRepository
	provider contracts.MarketDataProvider
	log      *logger.Logger

	now func() time.Time
}

// NewTracker creates an outcome tracker.
func NewTracker(signals contracts.SignalRepository, outcomes contracts.OutcomeRepository, provider contracts.MarketDataProvider, log *logger.Logger) *Tracker {
	return &Tracker{
		signals:  signals,
		outcomes: outcomes,
		provider: provider,
		log:      log,
		now:      time.Now,
	}
}

// CheckPending samples the current price for every pending outcome,
// appends a PriceCheck, and applies at most one transition per outcome.
// Per-outcome failures are logged and skipped; the sweep continues.
func (t *Tracker) CheckPending(ctx context.Context) error {
	pending, err := t.outcomes.ListPending(ctx)
	if err != nil {
		return fmt.Errorf("list pending outcomes: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	t.log.WithField("pending", len(pending)).Info("checking pending outcomes")

	checked, transitioned := 0, 0
	for _, o := range pending {
		ok, err := t.checkOne(ctx, o)
		if err != nil {
			t.log.WithError(err).WithField("signal_id", o.SignalID).Warn("outcome check failed")
			continue
		}
		checked++
		if ok {
			transitioned++
		}
	}

	t.log.WithFields(map[string]interface{}{
		"checked":      checked,
		"transitioned": transitioned,
	}).Info("outcome sweep complete")

	return nil
}

// checkOne evaluates a single pending outcome. Returns true when the
// outcome reached a terminal status this check.
func (t *Tracker) checkOne(ctx context.Context, o *contracts.Outcome) (bool, error) {
	sig, err := t.signals.GetByID(ctx, o.SignalID)
	if err != nil {
		return false, fmt.Errorf("load signal: %w", err)
	}
	if sig.TargetPrice == nil {
		return false, fmt.Errorf("signal %s has an outcome but no target price", sig.ID)
	}

	price, err := t.latestPrice(ctx, sig.Ticker)
	if err != nil {
		return false, fmt.Errorf("sample price: %w", err)
	}

	now := t.now()

	// The audit trail is unconditional: every check leaves a record even
	// when no transition fires.
	if err := t.outcomes.AddPriceCheck(ctx, &contracts.PriceCheck{
		SignalID:  sig.ID,
		CheckedAt: now,
		Price:     price,
	}); err != nil {
		return false, fmt.Errorf("record price check: %w", err)
	}

	switch Evaluate(sig.TrackingDirection(), *sig.TargetPrice, price, now, o.Deadline) {
	case contracts.OutcomeMet:
		if err := t.outcomes.MarkMet(ctx, o.ID, now); err != nil {
			return false, fmt.Errorf("mark met: %w", err)
		}
		t.log.WithFields(map[string]interface{}{
			"ticker": sig.Ticker,
			"target": *sig.TargetPrice,
			"price":  price,
		}).Info("outcome target met")
		return true, nil

	case contracts.OutcomeNotMet:
		if err := t.outcomes.MarkNotMet(ctx, o.ID); err != nil {
			return false, fmt.Errorf("mark not met: %w", err)
		}
		t.log.WithFields(map[string]interface{}{
			"ticker":   sig.Ticker,
			"deadline": o.Deadline,
		}).Info("outcome deadline lapsed")
		return true, nil
	}

	return false, nil
}

func (t *Tracker) latestPrice(ctx context.Context, ticker string) (float64, error) {
	bars, err := t.provider.GetOHLCV(ctx, ticker, priceLookbackDays)
	if err != nil {
		return 0, err
	}
	if len(bars) == 0 {
		return 0, fmt.Errorf("no recent bars for %s", ticker)
	}
	return bars[len(bars)-1].Close, nil
}
