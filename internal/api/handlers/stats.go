package handlers

import (
	"context"
	"net/http"

	"github.com/tradia/signals/internal/store"
	"github.com/tradia/signals/pkg/logger"
)

// StatsReader computes the aggregate summary.
type StatsReader interface {
	Summary(ctx context.Context) (*store.Summary, error)
}

// StatsHandler serves aggregate pipeline statistics.
type StatsHandler struct {
	stats  StatsReader
	logger *logger.Logger
}

// NewStatsHandler creates a stats handler.
func NewStatsHandler(stats StatsReader, log *logger.Logger) *StatsHandler {
	return &StatsHandler{stats: stats, logger: log}
}

// Summary returns signal and outcome totals with the hit rate.
// GET /api/stats/summary
func (h *StatsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.stats.Summary(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("failed to compute summary")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve summary")
		return
	}

	respondJSON(w, http.StatusOK, summary)
}
