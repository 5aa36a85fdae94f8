// Package scan drives one scan cycle: pull a batch from the universe,
// enrich and score each ticker, persist signals, and promote the
// ranker's picks to top picks with paired outcomes.
package scan

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tradia/signals/internal/contracts"
	"github.com/tradia/signals/internal/indicators"
	"github.com/tradia/signals/pkg/config"
	"github.com/tradia/signals/pkg/logger"
)

const (
	starsDefault = 3
	starsMin     = 1
	starsMax     = 5
)

// BatchSelector produces the candidate batch for a cycle.
type BatchSelector interface {
	SelectBatch(ctx context.Context, alreadyScanned map[string]bool, batchSize, minPerSector, maxPerSector int) ([]contracts.Candidate, error)
}

// Scorer maps a feature vector to a bullish probability.
type Scorer interface {
	Score(features map[string]float64) (float64, error)
}

// Screener is an optional supplemental candidate source (candlestick
// reversal screens). Best effort; a failure only costs the extra names.
type Screener interface {
	ReversalTickers(ctx context.Context) ([]string, error)
}

// Orchestrator runs scan cycles.
type Orchestrator struct {
	selector BatchSelector
	provider contracts.MarketDataProvider
	scorer   Scorer
	ranker   contracts.Ranker
	signals  contracts.SignalRepository
	screener Screener // may be nil
	window   *TradingWindow
	cfg      config.ScanConfig
	log      *logger.Logger

	now func() time.Time
}

// NewOrchestrator wires a scan orchestrator. screener may be nil.
func NewOrchestrator(
	selector BatchSelector,
	provider contracts.MarketDataProvider,
	sc Scorer,
	ranker contracts.Ranker,
	signals contracts.SignalRepository,
	screener Screener,
	window *TradingWindow,
	cfg config.ScanConfig,
	log *logger.Logger,
) *Orchestrator {
	return &Orchestrator{
		selector: selector,
		provider: provider,
		scorer:   sc,
		ranker:   ranker,
		signals:  signals,
		screener: screener,
		window:   window,
		cfg:      cfg,
		log:      log,
		now:      time.Now,
	}
}

// RunCycle executes one scan cycle. Outside the trading window it is a
// no-op. Per-ticker failures are logged and skipped; only failures that
// invalidate the whole cycle (batch selection, de-dup snapshot) return
// an error.
func (o *Orchestrator) RunCycle(ctx context.Context) error {
	now := o.now()
	if !o.window.Contains(now) {
		o.log.Debug("outside trading window, skipping cycle")
		return nil
	}

	windowTag := o.window.Tag(now)
	dayPrefix := o.window.DayPrefix(now)

	alreadyScanned, err := o.signals.DistinctTickersInWindow(ctx, dayPrefix)
	if err != nil {
		return fmt.Errorf("load scanned tickers: %w", err)
	}

	batch, err := o.selector.SelectBatch(ctx, alreadyScanned, o.cfg.BatchSize, o.cfg.MinPerSector, o.cfg.MaxPerSector)
	if err != nil {
		return fmt.Errorf("select batch: %w", err)
	}
	batch = o.mergeScreener(ctx, batch, alreadyScanned)

	if len(batch) == 0 {
		o.log.WithField("window", windowTag).Info("no candidates this cycle")
		return nil
	}

	o.log.WithFields(map[string]interface{}{
		"window": windowTag,
		"batch":  len(batch),
	}).Info("scan cycle started")

	byTicker := make(map[string]*contracts.Signal)
	var rankerInput []contracts.RankerCandidate

	for _, cand := range batch {
		sig, err := o.scanTicker(ctx, cand, windowTag, now)
		if err != nil {
			o.log.WithError(err).WithField("ticker", cand.Ticker).Warn("ticker scan failed")
			continue
		}
		if sig == nil {
			continue // candle-tag gate
		}

		byTicker[sig.Ticker] = sig
		if sig.Indicators.Probability >= o.cfg.PromoteThreshold {
			rankerInput = append(rankerInput, contracts.RankerCandidate{
				Ticker:      sig.Ticker,
				Price:       sig.PriceAtSignal,
				Probability: sig.Indicators.Probability,
				Tags:        sig.Indicators.AllTags(),
				Support:     sig.Indicators.Support,
				Resistance:  sig.Indicators.Resistance,
				Sector:      sig.Indicators.Sector,
			})
		}
	}

	promoted := 0
	if len(rankerInput) > 0 {
		promoted = o.promoteTopPicks(ctx, rankerInput, byTicker, now)
	}

	o.log.WithFields(map[string]interface{}{
		"window":     windowTag,
		"signals":    len(byTicker),
		"candidates": len(rankerInput),
		"promoted":   promoted,
	}).Info("scan cycle complete")

	return nil
}

// scanTicker fetches, enriches and scores one candidate. Returns
// (nil, nil) when the candle-tag gate drops the ticker before scoring.
func (o *Orchestrator) scanTicker(ctx context.Context, cand contracts.Candidate, windowTag string, now time.Time) (*contracts.Signal, error) {
	bars, err := o.provider.GetOHLCV(ctx, cand.Ticker, o.cfg.LookbackDays)
	if err != nil {
		return nil, fmt.Errorf("fetch ohlcv: %w", err)
	}
	if len(bars) < o.cfg.MinBars {
		return nil, fmt.Errorf("only %d bars, need %d", len(bars), o.cfg.MinBars)
	}

	// Gate on candle patterns before any model work: tickers with no
	// reversal shape are not worth a scoring call.
	candleTags := indicators.CandleTags(bars)
	if len(candleTags) == 0 {
		return nil, nil
	}

	enriched, err := indicators.Enrich(bars)
	if err != nil {
		return nil, fmt.Errorf("enrich: %w", err)
	}
	latest := enriched.Latest()

	features := map[string]float64{
		"rsi":         latest.RSI,
		"macd":        latest.MACD,
		"macd_signal": latest.MACDSignal,
		"ema5":        latest.EMA5,
		"ema20":       latest.EMA20,
		"volume":      latest.Bar.Volume,
	}

	prob, err := o.scorer.Score(features)
	if err != nil {
		return nil, fmt.Errorf("score: %w", err)
	}

	support, resistance := indicators.SupportResistance(bars)

	name, err := o.provider.GetCompanyName(ctx, cand.Ticker)
	if err != nil {
		o.log.WithError(err).WithField("ticker", cand.Ticker).Debug("name lookup failed")
	}

	sig := contracts.NewSignal(cand.Ticker, latest.Bar.Close, contracts.IndicatorSnapshot{
		Features:     features,
		StrategyTags: indicators.StrategyTags(enriched),
		CandleTags:   candleTags,
		Support:      support,
		Resistance:   resistance,
		Timeframe:    o.cfg.Timeframe,
		Sector:       cand.Sector,
		Probability:  prob,
		CompanyName:  name,
	}, o.cfg.HorizonDays, windowTag, now)

	if err := o.signals.Create(ctx, sig); err != nil {
		return nil, fmt.Errorf("persist signal: %w", err)
	}

	return sig, nil
}

// promoteTopPicks submits candidates to the ranker and promotes the
// returned picks. Returns the number of promotions applied. A ranker
// failure or an empty pick list leaves the cycle's signals unpromoted,
// which is a success case.
func (o *Orchestrator) promoteTopPicks(ctx context.Context, candidates []contracts.RankerCandidate, byTicker map[string]*contracts.Signal, now time.Time) int {
	picks, err := o.ranker.RankTop(ctx, candidates, o.cfg.HorizonDays)
	if err != nil {
		o.log.WithError(err).Warn("ranker call failed, no promotions this cycle")
		return 0
	}

	deadline := now.Add(time.Duration(o.cfg.HorizonDays) * 24 * time.Hour)

	promoted := 0
	for _, pick := range picks {
		sig, ok := byTicker[pick.Ticker]
		if !ok {
			o.log.WithField("ticker", pick.Ticker).Warn("ranker returned an unknown ticker")
			continue
		}

		target, err := parsePrice(pick.TargetPrice)
		if err != nil {
			o.log.WithError(err).WithField("ticker", pick.Ticker).Warn("unparseable target, not promoting")
			continue
		}
		stop, err := parsePrice(pick.StopLoss)
		if err != nil {
			o.log.WithError(err).WithField("ticker", pick.Ticker).Warn("unparseable stop, not promoting")
			continue
		}

		promotion := contracts.Promotion{
			Stars:       parseStars(pick.Stars),
			TargetPrice: target,
			StopLoss:    stop,
			Direction:   parseDirection(pick.Direction),
			Reasoning:   pick.Rationale,
		}
		if pick.Rank > 0 {
			rank := pick.Rank
			promotion.Rank = &rank
		}

		if err := o.signals.PromoteWithOutcome(ctx, sig.ID, promotion, deadline); err != nil {
			o.log.WithError(err).WithField("ticker", pick.Ticker).Error("promotion failed")
			continue
		}
		sig.Promote(promotion)
		promoted++
	}

	return promoted
}

// mergeScreener appends supplemental screener names to the batch.
func (o *Orchestrator) mergeScreener(ctx context.Context, batch []contracts.Candidate, alreadyScanned map[string]bool) []contracts.Candidate {
	if o.screener == nil {
		return batch
	}

	extra, err := o.screener.ReversalTickers(ctx)
	if err != nil {
		o.log.WithError(err).Warn("screener fetch failed")
		return batch
	}

	inBatch := make(map[string]bool, len(batch))
	for _, c := range batch {
		inBatch[c.Ticker] = true
	}

	for _, t := range extra {
		if t == "" || inBatch[t] || alreadyScanned[t] {
			continue
		}
		inBatch[t] = true
		batch = append(batch, contracts.Candidate{Ticker: t, Sector: "Unknown"})
	}

	return batch
}

// parsePrice parses a price string from the ranker, tolerating currency
// symbols, thousands separators and surrounding noise.
func parsePrice(raw string) (float64, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= '0' && r <= '9', r == '.', r == '-':
			return r
		default:
			return -1
		}
	}, strings.TrimSpace(raw))

	if cleaned == "" {
		return 0, fmt.Errorf("no numeric content in %q", raw)
	}

	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %q: %w", raw, err)
	}
	if v <= 0 {
		return 0, fmt.Errorf("non-positive price %q", raw)
	}
	return v, nil
}

// parseStars parses a star rating, clamping to [1,5] and defaulting to
// 3 when the value is missing or malformed.
func parseStars(raw string) *int {
	stars := starsDefault

	cleaned := strings.TrimSpace(raw)
	if i := strings.IndexAny(cleaned, "/ "); i > 0 {
		cleaned = cleaned[:i]
	}
	if v, err := strconv.Atoi(cleaned); err == nil {
		stars = v
	}

	if stars < starsMin {
		stars = starsMin
	}
	if stars > starsMax {
		stars = starsMax
	}
	return &stars
}

func parseDirection(raw string) contracts.Direction {
	if strings.EqualFold(strings.TrimSpace(raw), string(contracts.DirectionShort)) {
		return contracts.DirectionShort
	}
	return contracts.DirectionLong
}
