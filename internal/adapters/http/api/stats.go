package api

import (
	"context"
	"net/http"

	"github.com/okian/guestrank/internal/domain/model"
)

// StatsProvider reports service state.
type StatsProvider interface {
	GetStats(ctx context.Context) (model.ServiceStats, error)
	Ready(ctx context.Context) error
}

// StatsHandler handles stats requests.
type StatsHandler struct {
	provider StatsProvider
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(provider StatsProvider) *StatsHandler {
	return &StatsHandler{provider: provider}
}

// HandleStats handles GET /stats.
func (h *StatsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.provider.GetStats(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
