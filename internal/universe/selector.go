// Package universe builds the daily candidate pool the scan cycle draws
// from: liquid, sector-diversified US stocks scored by intraday move,
// true relative volume and gap versus the previous session.
package universe

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/tradia/signals/internal/contracts"
	"github.com/tradia/signals/pkg/config"
	"github.com/tradia/signals/pkg/logger"
	"github.com/tradia/signals/pkg/redis"
)

const (
	avgVolSessions  = 30
	avgVolFetchDays = 45
	prevDayLookback = 9
)

// Cache is the day-keyed cache the selector persists universe state in.
// *redis.Cache satisfies it; tests inject an in-memory map.
type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// Selector builds score-ranked, deduplicated scan batches.
type Selector struct {
	provider contracts.MarketDataProvider
	cache    Cache
	cfg      config.UniverseConfig
	log      *logger.Logger

	now func() time.Time
}

// NewSelector creates a universe selector.
func NewSelector(provider contracts.MarketDataProvider, cache Cache, cfg config.UniverseConfig, log *logger.Logger) *Selector {
	return &Selector{
		provider: provider,
		cache:    cache,
		cfg:      cfg,
		log:      log,
		now:      time.Now,
	}
}

// SelectBatch returns up to batchSize candidates for the current cycle,
// excluding tickers already scanned today. Every sector contributes up
// to minPerSector of its top-scored names before the rest of the batch
// is filled by global score rank. The result is deterministic for a
// fixed universe snapshot: score descending, ticker ascending tie-break.
func (s *Selector) SelectBatch(ctx context.Context, alreadyScanned map[string]bool, batchSize, minPerSector, maxPerSector int) ([]contracts.Candidate, error) {
	if batchSize <= 0 {
		return nil, nil
	}

	today := s.now()
	rows, err := s.universeForDay(ctx, today, maxPerSector)
	if err != nil {
		return nil, err
	}

	eligible := make([]contracts.UniverseRow, 0, len(rows))
	for _, r := range rows {
		if alreadyScanned[r.Ticker] {
			continue
		}
		eligible = append(eligible, r)
	}
	sortByScore(eligible)

	picked := pickDiversified(eligible, batchSize, minPerSector)

	out := make([]contracts.Candidate, len(picked))
	for i, r := range picked {
		out[i] = contracts.Candidate{Ticker: r.Ticker, Sector: r.Sector, Score: r.Score}
	}

	s.log.WithFields(map[string]interface{}{
		"universe":   len(rows),
		"eligible":   len(eligible),
		"batch_size": len(out),
	}).Info("scan batch selected")

	return out, nil
}

// pickDiversified takes every sector's best names round-robin up to
// minPerSector each, then fills remaining capacity by global score.
// Input must already be sorted by score.
func pickDiversified(rows []contracts.UniverseRow, batchSize, minPerSector int) []contracts.UniverseRow {
	bySector := make(map[string][]contracts.UniverseRow)
	var sectors []string
	for _, r := range rows {
		if _, seen := bySector[r.Sector]; !seen {
			sectors = append(sectors, r.Sector)
		}
		bySector[r.Sector] = append(bySector[r.Sector], r)
	}
	// Sector order follows each sector's best score, which is the order
	// sectors first appear in the score-sorted input.

	taken := make(map[string]bool)
	var out []contracts.UniverseRow

	for round := 0; round < minPerSector && len(out) < batchSize; round++ {
		for _, sector := range sectors {
			if len(out) >= batchSize {
				break
			}
			names := bySector[sector]
			if round >= len(names) {
				continue
			}
			r := names[round]
			out = append(out, r)
			taken[r.Ticker] = true
		}
	}

	for _, r := range rows {
		if len(out) >= batchSize {
			break
		}
		if taken[r.Ticker] {
			continue
		}
		out = append(out, r)
		taken[r.Ticker] = true
	}

	sortByScore(out)
	return out
}

// universeForDay returns the scored universe for the given day, cached
// for minutes so every cycle in a window shares one snapshot.
func (s *Selector) universeForDay(ctx context.Context, today time.Time, maxPerSector int) ([]contracts.UniverseRow, error) {
	key := redis.UniverseKey(today.Format("2006-01-02"))

	var cached []contracts.UniverseRow
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit && len(cached) > 0 {
		return cached, nil
	}

	rows, err := s.buildUniverse(ctx, today, maxPerSector)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, key, rows, s.cfg.UniverseTTL); err != nil {
		s.log.WithError(err).Warn("universe cache write failed")
	}

	return rows, nil
}

func (s *Selector) buildUniverse(ctx context.Context, today time.Time, maxPerSector int) ([]contracts.UniverseRow, error) {
	refs, err := s.provider.GetReferenceTickers(ctx)
	if err != nil {
		return nil, fmt.Errorf("reference tickers: %w", err)
	}

	meta := make(map[string]contracts.ReferenceTicker, len(refs))
	for _, r := range refs {
		if r.Ticker == "" {
			continue
		}
		if strings.Contains(strings.ToUpper(r.Type), "ETF") {
			continue
		}
		if r.MarketCap <= 0 || r.MarketCap < s.cfg.MinMarketCap {
			continue
		}
		if strings.Contains(strings.ToUpper(r.Exchange), "OTC") {
			continue
		}
		meta[r.Ticker] = r
	}

	grouped, err := s.provider.GetGroupedDaily(ctx, today)
	if err != nil {
		return nil, fmt.Errorf("grouped daily: %w", err)
	}
	if len(grouped) == 0 {
		return nil, nil
	}

	rows := make([]contracts.UniverseRow, 0, len(grouped))
	for _, g := range grouped {
		ref, ok := meta[g.Ticker]
		if !ok {
			continue
		}
		if g.Close < s.cfg.MinPrice || g.Close > s.cfg.MaxPrice {
			continue
		}
		sector := ref.Sector
		if sector == "" {
			sector = "Unknown"
		}
		rows = append(rows, contracts.UniverseRow{
			Ticker:    g.Ticker,
			Sector:    sector,
			MarketCap: ref.MarketCap,
			Open:      g.Open,
			Close:     g.Close,
			Volume:    g.Volume,
		})
	}
	if len(rows) == 0 {
		return nil, nil
	}

	prevClose := s.prevCloseMap(ctx, today)
	avgVol := s.avgVolMap(ctx, today, topByVolume(rows, s.cfg.HistoryLimit))

	kept := rows[:0]
	for _, r := range rows {
		r.AvgVol30 = avgVol[r.Ticker]
		if r.AvgVol30 < s.cfg.AvgVolFloor {
			continue
		}
		if r.AvgVol30 > 0 {
			r.RelVolume = r.Volume / r.AvgVol30
		}
		if prev, ok := prevClose[r.Ticker]; ok && prev > 0 {
			r.PrevClose = prev
			r.Gap = abs(r.Open-prev) / prev
		}
		if r.Open > 0 {
			r.Move = abs(r.Close-r.Open) / r.Open
		}
		kept = append(kept, r)
	}

	kept = capPerSector(kept, maxPerSector)

	for i := range kept {
		kept[i].Score = s.score(kept[i])
	}
	sortByScore(kept)

	s.log.WithFields(map[string]interface{}{
		"day":      today.Format("2006-01-02"),
		"universe": len(kept),
	}).Info("universe built")

	return kept, nil
}

// score blends intraday move, relative volume and gap. Relative volume
// is clipped to [0,10] then rescaled so a 10x day saturates the term.
func (s *Selector) score(r contracts.UniverseRow) float64 {
	relVol := clip(r.RelVolume, 0, 10) / 10.0
	return s.cfg.WeightMove*clipLow(r.Move, 0) +
		s.cfg.WeightRelVol*relVol +
		s.cfg.WeightGap*clipLow(r.Gap, 0)
}

// prevCloseMap returns the previous session's closes for the whole
// market, walking back over weekends and holidays. Best-effort: an
// empty map just means gap terms stay zero this cycle.
func (s *Selector) prevCloseMap(ctx context.Context, today time.Time) map[string]float64 {
	key := redis.PrevCloseKey(today.Format("2006-01-02"))

	cached := map[string]float64{}
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit && len(cached) > 0 {
		return cached
	}

	out := map[string]float64{}
	for i := 1; i <= prevDayLookback; i++ {
		grouped, err := s.provider.GetGroupedDaily(ctx, today.AddDate(0, 0, -i))
		if err != nil {
			s.log.WithError(err).Warn("previous-session lookup failed")
			return out
		}
		if len(grouped) == 0 {
			continue
		}
		for _, g := range grouped {
			out[g.Ticker] = g.Close
		}
		break
	}

	if len(out) > 0 {
		if err := s.cache.Set(ctx, key, out, s.cfg.PrevCloseTTL); err != nil {
			s.log.WithError(err).Warn("prev-close cache write failed")
		}
	}

	return out
}

// avgVolMap resolves 30-session average volumes for the given tickers,
// fetching only the ones missing from the day cache. The refreshed
// cache entry is the merged map, so concurrent partial computations
// never erase entries another cycle already resolved.
func (s *Selector) avgVolMap(ctx context.Context, today time.Time, tickers []string) map[string]float64 {
	key := redis.AvgVolKey(today.Format("2006-01-02"))

	existing := map[string]float64{}
	if _, err := s.cache.Get(ctx, key, &existing); err != nil {
		existing = map[string]float64{}
	}

	out := make(map[string]float64, len(tickers))
	fetched := 0
	for _, t := range tickers {
		if v, ok := existing[t]; ok {
			out[t] = v
			continue
		}
		v, err := s.avgVolume30(ctx, t)
		if err != nil {
			s.log.WithError(err).WithField("ticker", t).Debug("avg volume fetch failed")
			continue
		}
		out[t] = v
		existing[t] = v
		fetched++
	}

	if fetched > 0 {
		if err := s.cache.Set(ctx, key, existing, s.cfg.AvgVolTTL); err != nil {
			s.log.WithError(err).Warn("avg-volume cache write failed")
		}
	}

	return out
}

func (s *Selector) avgVolume30(ctx context.Context, ticker string) (float64, error) {
	bars, err := s.provider.GetOHLCV(ctx, ticker, avgVolFetchDays)
	if err != nil {
		return 0, err
	}
	if len(bars) == 0 {
		return 0, fmt.Errorf("no history for %s", ticker)
	}

	start := len(bars) - avgVolSessions
	if start < 0 {
		start = 0
	}
	window := bars[start:]

	var sum float64
	for _, b := range window {
		sum += b.Volume
	}
	return sum / float64(len(window)), nil
}

// topByVolume returns up to limit tickers by raw volume descending.
// Bounds the per-day number of history fetches.
func topByVolume(rows []contracts.UniverseRow, limit int) []string {
	sorted := make([]contracts.UniverseRow, len(rows))
	copy(sorted, rows)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Volume != sorted[j].Volume {
			return sorted[i].Volume > sorted[j].Volume
		}
		return sorted[i].Ticker < sorted[j].Ticker
	})

	if limit > 0 && len(sorted) > limit {
		sorted = sorted[:limit]
	}

	out := make([]string, len(sorted))
	for i, r := range sorted {
		out[i] = r.Ticker
	}
	return out
}

// capPerSector keeps at most limit rows per sector, favoring raw
// volume, so a single hot sector cannot crowd out the rest of the
// universe before selection.
func capPerSector(rows []contracts.UniverseRow, limit int) []contracts.UniverseRow {
	if limit <= 0 {
		return rows
	}

	sorted := make([]contracts.UniverseRow, len(rows))
	copy(sorted, rows)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Volume != sorted[j].Volume {
			return sorted[i].Volume > sorted[j].Volume
		}
		return sorted[i].Ticker < sorted[j].Ticker
	})

	counts := make(map[string]int)
	out := make([]contracts.UniverseRow, 0, len(sorted))
	for _, r := range sorted {
		if counts[r.Sector] >= limit {
			continue
		}
		counts[r.Sector]++
		out = append(out, r)
	}
	return out
}

func sortByScore(rows []contracts.UniverseRow) {
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Score != rows[j].Score {
			return rows[i].Score > rows[j].Score
		}
		return rows[i].Ticker < rows[j].Ticker
	})
}

func clip(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clipLow(v, lo float64) float64 {
	if v < lo {
		return lo
	}
	return v
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
