package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tradia/signals/internal/contracts"
)

// OutcomeRepository persists outcomes and their price-check audit
// trail.
type OutcomeRepository struct {
	db *pgxpool.Pool
}

// NewOutcomeRepository creates an outcome repository.
func NewOutcomeRepository(db *pgxpool.Pool) *OutcomeRepository {
	return &OutcomeRepository{db: db}
}

const outcomeColumns = `id, signal_id, status, deadline, target_met_at, created_at`

// LatestForSignal returns the signal's outcome, or nil when the signal
// was never promoted.
func (r *OutcomeRepository) LatestForSignal(ctx context.Context, signalID string) (*contracts.Outcome, error) {
	query := `SELECT ` + outcomeColumns + `
		FROM outcomes
		WHERE signal_id = $1
		ORDER BY created_at DESC
		LIMIT 1`

	o, err := scanOutcome(r.db.QueryRow(ctx, query, signalID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("query outcome: %w", err)
	}

	return o, nil
}

// ListPending returns outcomes awaiting a terminal status, oldest
// deadline first.
func (r *OutcomeRepository) ListPending(ctx context.Context) ([]*contracts.Outcome, error) {
	query := `SELECT ` + outcomeColumns + `
		FROM outcomes
		WHERE status = $1
		ORDER BY deadline ASC`

	rows, err := r.db.Query(ctx, query, string(contracts.OutcomePending))
	if err != nil {
		return nil, fmt.Errorf("query pending outcomes: %w", err)
	}
	defer rows.Close()

	var out []*contracts.Outcome
	for rows.Next() {
		o, err := scanOutcome(rows)
		if err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		out = append(out, o)
	}

	return out, rows.Err()
}

// MarkMet transitions PENDING -> MET. The status guard in the WHERE
// clause enforces monotonicity at the database level.
func (r *OutcomeRepository) MarkMet(ctx context.Context, outcomeID int64, metAt time.Time) error {
	query := `
		UPDATE outcomes
		SET status = $2, target_met_at = $3
		WHERE id = $1 AND status = $4
	`

	tag, err := r.db.Exec(ctx, query,
		outcomeID,
		string(contracts.OutcomeMet),
		metAt,
		string(contracts.OutcomePending),
	)
	if err != nil {
		return fmt.Errorf("mark outcome met: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("outcome %d is not pending", outcomeID)
	}

	return nil
}

// MarkNotMet transitions PENDING -> NOT_MET.
func (r *OutcomeRepository) MarkNotMet(ctx context.Context, outcomeID int64) error {
	query := `
		UPDATE outcomes
		SET status = $2
		WHERE id = $1 AND status = $3
	`

	tag, err := r.db.Exec(ctx, query,
		outcomeID,
		string(contracts.OutcomeNotMet),
		string(contracts.OutcomePending),
	)
	if err != nil {
		return fmt.Errorf("mark outcome not met: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("outcome %d is not pending", outcomeID)
	}

	return nil
}

// AddPriceCheck appends one price observation. Price checks are
// append-only.
func (r *OutcomeRepository) AddPriceCheck(ctx context.Context, c *contracts.PriceCheck) error {
	query := `
		INSERT INTO price_checks (signal_id, checked_at, price)
		VALUES ($1, $2, $3)
	`

	if _, err := r.db.Exec(ctx, query, c.SignalID, c.CheckedAt, c.Price); err != nil {
		return fmt.Errorf("insert price check: %w", err)
	}

	return nil
}

// ListPriceChecks returns a signal's price observations, newest first.
func (r *OutcomeRepository) ListPriceChecks(ctx context.Context, signalID string, limit int) ([]*contracts.PriceCheck, error) {
	query := `
		SELECT id, signal_id, checked_at, price
		FROM price_checks
		WHERE signal_id = $1
		ORDER BY checked_at DESC
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, signalID, limit)
	if err != nil {
		return nil, fmt.Errorf("query price checks: %w", err)
	}
	defer rows.Close()

	var out []*contracts.PriceCheck
	for rows.Next() {
		var c contracts.PriceCheck
		if err := rows.Scan(&c.ID, &c.SignalID, &c.CheckedAt, &c.Price); err != nil {
			return nil, fmt.Errorf("scan price check: %w", err)
		}
		out = append(out, &c)
	}

	return out, rows.Err()
}

func scanOutcome(row rowScanner) (*contracts.Outcome, error) {
	var (
		o      contracts.Outcome
		status string
	)

	err := row.Scan(
		&o.ID,
		&o.SignalID,
		&status,
		&o.Deadline,
		&o.TargetMetAt,
		&o.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	o.Status = contracts.OutcomeStatus(status)
	return &o, nil
}
