package handlers

import (
	"net/http"

	"github.com/isdelr/impact-be/internal/services"
)

// LeaderboardHandler serves the points leaderboard.
type LeaderboardHandler struct {
	service services.LeaderboardServiceProvider
}

// NewLeaderboardHandler creates a new LeaderboardHandler.
func NewLeaderboardHandler(service services.LeaderboardServiceProvider) *LeaderboardHandler {
	return &LeaderboardHandler{service: service}
}

// Get returns the top ?limit= entries (default 10, at most 100).
func (h *LeaderboardHandler) Get(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 10)
	if limit == 0 || limit > 100 {
		limit = 10
	}
	entries, err := h.service.Top(r.Context(), limit)
	if err != nil {
		writeError(w, err, "Failed to retrieve leaderboard", nil)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}
