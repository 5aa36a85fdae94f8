package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tradia/signals/internal/contracts"
)

// Summary is the aggregate view served by the stats endpoint.
type Summary struct {
	TotalSignals    int64   `json:"total_signals"`
	TopPicks        int64   `json:"top_picks"`
	OutcomesPending int64   `json:"outcomes_pending"`
	OutcomesMet     int64   `json:"outcomes_met"`
	OutcomesNotMet  int64   `json:"outcomes_not_met"`
	HitRate         float64 `json:"hit_rate"` // met / (met + not met), 0 when nothing resolved

	// AvgDaysToTarget averages signal creation to target hit over MET
	// outcomes. Nil until something has resolved MET.
	AvgDaysToTarget *float64 `json:"avg_days_to_target,omitempty"`
}

// StatsRepository computes aggregate pipeline statistics.
type StatsRepository struct {
	db *pgxpool.Pool
}

// NewStatsRepository creates a stats repository.
func NewStatsRepository(db *pgxpool.Pool) *StatsRepository {
	return &StatsRepository{db: db}
}

// Summary aggregates signal and outcome counts in one round trip.
func (r *StatsRepository) Summary(ctx context.Context) (*Summary, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM signals),
			(SELECT COUNT(*) FROM signals WHERE is_top_pick),
			(SELECT COUNT(*) FROM outcomes WHERE status = $1),
			(SELECT COUNT(*) FROM outcomes WHERE status = $2),
			(SELECT COUNT(*) FROM outcomes WHERE status = $3),
			(SELECT AVG(EXTRACT(EPOCH FROM (o.target_met_at - s.created_at)) / 86400.0)
				FROM outcomes o
				JOIN signals s ON s.id = o.signal_id
				WHERE o.status = $2 AND o.target_met_at IS NOT NULL)
	`

	var s Summary
	err := r.db.QueryRow(ctx, query,
		string(contracts.OutcomePending),
		string(contracts.OutcomeMet),
		string(contracts.OutcomeNotMet),
	).Scan(
		&s.TotalSignals,
		&s.TopPicks,
		&s.OutcomesPending,
		&s.OutcomesMet,
		&s.OutcomesNotMet,
		&s.AvgDaysToTarget,
	)
	if err != nil {
		return nil, fmt.Errorf("query summary: %w", err)
	}

	if resolved := s.OutcomesMet + s.OutcomesNotMet; resolved > 0 {
		s.HitRate = float64(s.OutcomesMet) / float64(resolved)
	}

	return &s, nil
}
