package handlers

import (
	"net/http"

	"github.com/isdelr/impact-be/internal/services"
)

// MeHandler serves the caller's coins, streak and participation history.
type MeHandler struct {
	coins   services.CoinServiceProvider
	streaks services.StreakServiceProvider
	logs    services.ParticipantLogServiceProvider
	board   services.LeaderboardServiceProvider
}

// NewMeHandler creates a new MeHandler.
func NewMeHandler(coins services.CoinServiceProvider, streaks services.StreakServiceProvider,
	logs services.ParticipantLogServiceProvider, board services.LeaderboardServiceProvider) *MeHandler {
	return &MeHandler{coins: coins, streaks: streaks, logs: logs, board: board}
}

func historyLimit(r *http.Request) int {
	limit := queryInt(r, "limit", 50)
	if limit == 0 || limit > 500 {
		limit = 50
	}
	return limit
}

// Coins returns the caller's coin balance.
func (h *MeHandler) Coins(w http.ResponseWriter, r *http.Request) {
	actor, ok := mustActor(w, r)
	if !ok {
		return
	}
	balance, err := h.coins.Balance(r.Context(), actor.UserID)
	if err != nil {
		writeError(w, err, "Failed to read coin balance", map[string]interface{}{"user_id": actor.UserID})
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"coins": balance})
}

// CoinHistory returns the caller's most recent ledger entries.
func (h *MeHandler) CoinHistory(w http.ResponseWriter, r *http.Request) {
	actor, ok := mustActor(w, r)
	if !ok {
		return
	}
	history, err := h.coins.History(r.Context(), actor.UserID, historyLimit(r))
	if err != nil {
		writeError(w, err, "Failed to read coin history", map[string]interface{}{"user_id": actor.UserID})
		return
	}
	writeJSON(w, http.StatusOK, history)
}

// CheckIn records today's activity towards the caller's streak.
func (h *MeHandler) CheckIn(w http.ResponseWriter, r *http.Request) {
	actor, ok := mustActor(w, r)
	if !ok {
		return
	}
	status, err := h.streaks.CheckIn(r.Context(), actor.UserID)
	if err != nil {
		writeError(w, err, "Failed to check in", map[string]interface{}{"user_id": actor.UserID})
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// History returns the caller's participation log.
func (h *MeHandler) History(w http.ResponseWriter, r *http.Request) {
	actor, ok := mustActor(w, r)
	if !ok {
		return
	}
	history, err := h.logs.GetUserHistory(r.Context(), actor.UserID, historyLimit(r))
	if err != nil {
		writeError(w, err, "Failed to read participation history", map[string]interface{}{"user_id": actor.UserID})
		return
	}
	writeJSON(w, http.StatusOK, history)
}

// Rank returns the caller's leaderboard position.
func (h *MeHandler) Rank(w http.ResponseWriter, r *http.Request) {
	actor, ok := mustActor(w, r)
	if !ok {
		return
	}
	entry, err := h.board.RankOf(r.Context(), actor.UserID)
	if err != nil {
		writeError(w, err, "Failed to read rank", map[string]interface{}{"user_id": actor.UserID})
		return
	}
	writeJSON(w, http.StatusOK, entry)
}
