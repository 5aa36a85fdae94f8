package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/tradia/signals/internal/contracts"
	"github.com/tradia/signals/internal/store"
	"github.com/tradia/signals/pkg/logger"
)

// SignalReader is the signal query surface the handlers need.
type SignalReader interface {
	GetByID(ctx context.Context, id string) (*contracts.Signal, error)
	List(ctx context.Context, limit int, topOnly bool) ([]*contracts.Signal, error)
	ListByTicker(ctx context.Context, ticker string, limit int, topOnly bool) ([]*contracts.Signal, error)
	ListByWindowPrefix(ctx context.Context, prefix string, limit int, topOnly bool) ([]*contracts.Signal, error)
}

// OutcomeReader is the outcome query surface the handlers need.
type OutcomeReader interface {
	LatestForSignal(ctx context.Context, signalID string) (*contracts.Outcome, error)
	ListPending(ctx context.Context) ([]*contracts.Outcome, error)
	ListPriceChecks(ctx context.Context, signalID string, limit int) ([]*contracts.PriceCheck, error)
}

// SignalHandler serves signal and outcome endpoints.
type SignalHandler struct {
	signals  SignalReader
	outcomes OutcomeReader
	logger   *logger.Logger
}

// NewSignalHandler creates a signal handler.
func NewSignalHandler(signals SignalReader, outcomes OutcomeReader, log *logger.Logger) *SignalHandler {
	return &SignalHandler{signals: signals, outcomes: outcomes, logger: log}
}

// Latest returns recent signals, newest first.
// GET /api/signals/latest?limit=50&only_top=false
func (h *SignalHandler) Latest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	limit := limitParam(r, 50, 500)
	onlyTop := boolParam(r, "only_top", false)

	rows, err := h.signals.List(ctx, limit, onlyTop)
	if err != nil {
		h.logger.WithError(err).Error("failed to list signals")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve signals")
		return
	}

	respondJSON(w, http.StatusOK, h.views(ctx, rows))
}

// TopPicks returns the five most recent top picks.
// GET /api/signals/top5
func (h *SignalHandler) TopPicks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	rows, err := h.signals.List(ctx, 5, true)
	if err != nil {
		h.logger.WithError(err).Error("failed to list top picks")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve top picks")
		return
	}

	respondJSON(w, http.StatusOK, h.views(ctx, rows))
}

// ByDay returns signals from one calendar day's scan windows.
// GET /api/signals/day?date=2026-03-02&only_top=true
func (h *SignalHandler) ByDay(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	date := r.URL.Query().Get("date")
	if _, err := time.Parse("2006-01-02", date); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid 'date' (expected YYYY-MM-DD)")
		return
	}
	onlyTop := boolParam(r, "only_top", true)
	limit := limitParam(r, 600, 2000)

	rows, err := h.signals.ListByWindowPrefix(ctx, date, limit, onlyTop)
	if err != nil {
		h.logger.WithError(err).Error("failed to list signals by day")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve signals")
		return
	}

	respondJSON(w, http.StatusOK, h.views(ctx, rows))
}

// Search returns a ticker's signal history, newest first.
// GET /api/signals/search?ticker=AAPL&top_only=false
func (h *SignalHandler) Search(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ticker := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("ticker")))
	if ticker == "" {
		respondError(w, http.StatusBadRequest, "Missing 'ticker'")
		return
	}
	limit := limitParam(r, 100, 2000)
	topOnly := boolParam(r, "top_only", false)

	rows, err := h.signals.ListByTicker(ctx, ticker, limit, topOnly)
	if err != nil {
		h.logger.WithError(err).Error("failed to search signals")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve signals")
		return
	}

	respondJSON(w, http.StatusOK, h.views(ctx, rows))
}

// GetByID returns one signal with its outcome.
// GET /api/signals/{id}
func (h *SignalHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := mux.Vars(r)["id"]

	sig, err := h.signals.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(w, http.StatusNotFound, "Signal not found")
			return
		}
		h.logger.WithError(err).Error("failed to get signal")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve signal")
		return
	}

	respondJSON(w, http.StatusOK, newSignalView(sig, h.outcome(ctx, sig.ID)))
}

// PriceChecks returns a signal's price observation trail, newest first.
// GET /api/signals/{id}/checks?limit=100
func (h *SignalHandler) PriceChecks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := mux.Vars(r)["id"]
	limit := limitParam(r, 100, 1000)

	checks, err := h.outcomes.ListPriceChecks(ctx, id, limit)
	if err != nil {
		h.logger.WithError(err).Error("failed to list price checks")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve price checks")
		return
	}
	if checks == nil {
		checks = []*contracts.PriceCheck{}
	}

	respondJSON(w, http.StatusOK, checks)
}

// OpenOutcomes returns all pending outcomes joined with their signals,
// nearest deadline first.
// GET /api/outcomes/open
func (h *SignalHandler) OpenOutcomes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	pending, err := h.outcomes.ListPending(ctx)
	if err != nil {
		h.logger.WithError(err).Error("failed to list pending outcomes")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve outcomes")
		return
	}

	out := make([]*SignalView, 0, len(pending))
	for _, o := range pending {
		sig, err := h.signals.GetByID(ctx, o.SignalID)
		if err != nil {
			h.logger.WithError(err).WithField("signal_id", o.SignalID).Warn("pending outcome without signal")
			continue
		}
		out = append(out, newSignalView(sig, o))
	}

	respondJSON(w, http.StatusOK, out)
}

// views joins signals with their outcomes for serialization.
func (h *SignalHandler) views(ctx context.Context, rows []*contracts.Signal) []*SignalView {
	out := make([]*SignalView, 0, len(rows))
	for _, s := range rows {
		out = append(out, newSignalView(s, h.outcome(ctx, s.ID)))
	}
	return out
}

func (h *SignalHandler) outcome(ctx context.Context, signalID string) *contracts.Outcome {
	o, err := h.outcomes.LatestForSignal(ctx, signalID)
	if err != nil {
		h.logger.WithError(err).WithField("signal_id", signalID).Warn("failed to load outcome")
		return nil
	}
	return o
}
