// Package store implements PostgreSQL persistence for signals,
// outcomes and price checks.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tradia/signals/internal/contracts"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

const signalColumns = `
	id, ticker, created_at, price_at_signal, indicators, horizon_days,
	window_tag, is_top_pick, rank, stars, target_price, stop_loss,
	direction, reasoning
`

// SignalRepository persists signals.
type SignalRepository struct {
	db *pgxpool.Pool
}

// NewSignalRepository creates a signal repository.
func NewSignalRepository(db *pgxpool.Pool) *SignalRepository {
	return &SignalRepository{db: db}
}

// Create inserts a new signal. The indicator snapshot is stored as
// JSONB.
func (r *SignalRepository) Create(ctx context.Context, s *contracts.Signal) error {
	indicators, err := json.Marshal(s.Indicators)
	if err != nil {
		return fmt.Errorf("marshal indicators: %w", err)
	}

	query := `
		INSERT INTO signals (
			id, ticker, created_at, price_at_signal, indicators,
			horizon_days, window_tag, is_top_pick, rank, stars,
			target_price, stop_loss, direction, reasoning
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err = r.db.Exec(ctx, query,
		s.ID,
		s.Ticker,
		s.CreatedAt,
		s.PriceAtSignal,
		indicators,
		s.HorizonDays,
		s.WindowTag,
		s.IsTopPick,
		s.Rank,
		s.Stars,
		s.TargetPrice,
		s.StopLoss,
		nullIfEmpty(string(s.Direction)),
		nullIfEmpty(s.Reasoning),
	)
	if err != nil {
		return fmt.Errorf("insert signal: %w", err)
	}

	return nil
}

// GetByID loads one signal.
func (r *SignalRepository) GetByID(ctx context.Context, id string) (*contracts.Signal, error) {
	query := `SELECT ` + signalColumns + ` FROM signals WHERE id = $1`

	s, err := scanSignal(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("signal %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("query signal: %w", err)
	}

	return s, nil
}

// List returns signals newest first, optionally only top picks.
func (r *SignalRepository) List(ctx context.Context, limit int, topOnly bool) ([]*contracts.Signal, error) {
	query := `SELECT ` + signalColumns + `
		FROM signals
		WHERE ($2 = false OR is_top_pick)
		ORDER BY created_at DESC
		LIMIT $1`

	return r.queryList(ctx, query, limit, topOnly)
}

// ListByTicker returns a ticker's signal history, newest first.
func (r *SignalRepository) ListByTicker(ctx context.Context, ticker string, limit int, topOnly bool) ([]*contracts.Signal, error) {
	query := `SELECT ` + signalColumns + `
		FROM signals
		WHERE ticker = $3 AND ($2 = false OR is_top_pick)
		ORDER BY created_at DESC
		LIMIT $1`

	return r.queryList(ctx, query, limit, topOnly, ticker)
}

// ListByWindowPrefix returns signals whose window tag starts with the
// prefix, typically a calendar day.
func (r *SignalRepository) ListByWindowPrefix(ctx context.Context, prefix string, limit int, topOnly bool) ([]*contracts.Signal, error) {
	query := `SELECT ` + signalColumns + `
		FROM signals
		WHERE window_tag LIKE $3 || '%' AND ($2 = false OR is_top_pick)
		ORDER BY created_at DESC
		LIMIT $1`

	return r.queryList(ctx, query, limit, topOnly, prefix)
}

// DistinctTickersInWindow returns tickers already signaled in windows
// matching the prefix.
func (r *SignalRepository) DistinctTickersInWindow(ctx context.Context, prefix string) (map[string]bool, error) {
	query := `SELECT DISTINCT ticker FROM signals WHERE window_tag LIKE $1 || '%'`

	rows, err := r.db.Query(ctx, query, prefix)
	if err != nil {
		return nil, fmt.Errorf("query scanned tickers: %w", err)
	}
	defer rows.Close()

	out := make(map[string]bool)
	for rows.Next() {
		var ticker string
		if err := rows.Scan(&ticker); err != nil {
			return nil, fmt.Errorf("scan ticker: %w", err)
		}
		out[ticker] = true
	}

	return out, rows.Err()
}

// PromoteWithOutcome marks the signal a top pick and creates its
// PENDING outcome in one transaction. The signals_outcomes pairing is
// all-or-nothing: a top pick without an outcome (or the reverse) can
// never be observed.
func (r *SignalRepository) PromoteWithOutcome(ctx context.Context, signalID string, p contracts.Promotion, deadline time.Time) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin promotion: %w", err)
	}
	defer tx.Rollback(ctx)

	direction := p.Direction
	if direction == "" {
		direction = contracts.DirectionLong
	}

	update := `
		UPDATE signals
		SET is_top_pick = true,
			rank = $2,
			stars = $3,
			target_price = $4,
			stop_loss = $5,
			direction = $6,
			reasoning = $7
		WHERE id = $1 AND is_top_pick = false
	`

	tag, err := tx.Exec(ctx, update,
		signalID,
		p.Rank,
		p.Stars,
		p.TargetPrice,
		p.StopLoss,
		string(direction),
		nullIfEmpty(p.Reasoning),
	)
	if err != nil {
		return fmt.Errorf("promote signal: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("signal %s missing or already promoted", signalID)
	}

	insert := `
		INSERT INTO outcomes (signal_id, status, deadline, created_at)
		VALUES ($1, $2, $3, NOW())
	`
	if _, err := tx.Exec(ctx, insert, signalID, string(contracts.OutcomePending), deadline); err != nil {
		return fmt.Errorf("create outcome: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit promotion: %w", err)
	}

	return nil
}

func (r *SignalRepository) queryList(ctx context.Context, query string, limit int, topOnly bool, extra ...interface{}) ([]*contracts.Signal, error) {
	args := append([]interface{}{limit, topOnly}, extra...)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query signals: %w", err)
	}
	defer rows.Close()

	var out []*contracts.Signal
	for rows.Next() {
		s, err := scanSignal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan signal: %w", err)
		}
		out = append(out, s)
	}

	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSignal(row rowScanner) (*contracts.Signal, error) {
	var (
		s          contracts.Signal
		indicators []byte
		direction  *string
		reasoning  *string
	)

	err := row.Scan(
		&s.ID,
		&s.Ticker,
		&s.CreatedAt,
		&s.PriceAtSignal,
		&indicators,
		&s.HorizonDays,
		&s.WindowTag,
		&s.IsTopPick,
		&s.Rank,
		&s.Stars,
		&s.TargetPrice,
		&s.StopLoss,
		&direction,
		&reasoning,
	)
	if err != nil {
		return nil, err
	}

	if len(indicators) > 0 {
		if err := json.Unmarshal(indicators, &s.Indicators); err != nil {
			return nil, fmt.Errorf("unmarshal indicators: %w", err)
		}
	}
	if direction != nil {
		s.Direction = contracts.Direction(*direction)
	}
	if reasoning != nil {
		s.Reasoning = *reasoning
	}

	return &s, nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
