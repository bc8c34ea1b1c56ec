package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/isdelr/impact-be/internal/services"
)

// RewardHandler handles HTTP requests for the rewards catalog.
type RewardHandler struct {
	service services.RewardServiceProvider
}

// NewRewardHandler creates a new RewardHandler.
func NewRewardHandler(service services.RewardServiceProvider) *RewardHandler {
	return &RewardHandler{service: service}
}

// GetAll lists rewards. Pass ?all=true to include withdrawn and sold-out items.
func (h *RewardHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	rewards, err := h.service.ListRewards(r.Context(), r.URL.Query().Get("all") != "true")
	if err != nil {
		writeError(w, err, "Failed to retrieve rewards", nil)
		return
	}
	writeJSON(w, http.StatusOK, rewards)
}

// Create adds a reward sponsored by the caller.
func (h *RewardHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := mustActor(w, r)
	if !ok {
		return
	}
	var in services.RewardInput
	if !decodeJSON(w, r, &in) {
		return
	}
	reward, err := h.service.CreateReward(r.Context(), actor.UserID, in)
	if err != nil {
		writeError(w, err, "Failed to create reward", map[string]interface{}{"sponsor_id": actor.UserID})
		return
	}
	writeJSON(w, http.StatusCreated, reward)
}

// SetActive enables or withdraws a reward.
func (h *RewardHandler) SetActive(w http.ResponseWriter, r *http.Request) {
	actor, ok := mustActor(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	var payload struct {
		Active bool `json:"active"`
	}
	if !decodeJSON(w, r, &payload) {
		return
	}
	reward, err := h.service.SetActive(r.Context(), actor, id, payload.Active)
	if err != nil {
		writeError(w, err, "Failed to update reward", map[string]interface{}{"reward_id": id})
		return
	}
	writeJSON(w, http.StatusOK, reward)
}

// Redeem spends the caller's coins on a reward.
func (h *RewardHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	actor, ok := mustActor(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	redemption, err := h.service.Redeem(r.Context(), actor.UserID, id)
	if err != nil {
		writeError(w, err, "Failed to redeem reward", map[string]interface{}{"reward_id": id, "user_id": actor.UserID})
		return
	}
	writeJSON(w, http.StatusOK, redemption)
}
