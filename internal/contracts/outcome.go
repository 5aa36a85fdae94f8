package contracts

import "time"

// OutcomeStatus is the tracking state of a promoted signal's target.
// Transitions are monotone: PENDING -> MET or PENDING -> NOT_MET, never
// reversed.
type OutcomeStatus string

const (
	OutcomePending OutcomeStatus = "PENDING"
	OutcomeMet     OutcomeStatus = "MET"
	OutcomeNotMet  OutcomeStatus = "NOT_MET"
)

// Terminal reports whether the status admits no further transitions.
func (s OutcomeStatus) Terminal() bool {
	return s == OutcomeMet || s == OutcomeNotMet
}

// Outcome tracks whether a promoted signal's target was reached before its
// deadline. Exactly one outcome exists per promoted signal; it is created
// atomically with the promotion.
type Outcome struct {
	ID          int64         `json:"id"`
	SignalID    string        `json:"signal_id"`
	Status      OutcomeStatus `json:"status"`
	Deadline    time.Time     `json:"deadline"`
	TargetMetAt *time.Time    `json:"target_met_at,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
}

// PriceCheck is a timestamped price observation appended each time a
// pending outcome is evaluated. It is an append-only audit trail; the
// status decision itself only needs the latest sample.
type PriceCheck struct {
	ID        int64     `json:"id"`
	SignalID  string    `json:"signal_id"`
	CheckedAt time.Time `json:"checked_at"`
	Price     float64   `json:"price"`
}
