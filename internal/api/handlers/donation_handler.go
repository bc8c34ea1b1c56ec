package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/isdelr/impact-be/internal/services"
)

// DonationHandler handles HTTP requests for donations.
type DonationHandler struct {
	service services.DonationServiceProvider
}

// NewDonationHandler creates a new DonationHandler.
func NewDonationHandler(service services.DonationServiceProvider) *DonationHandler {
	return &DonationHandler{service: service}
}

// Create records a donation from the caller.
func (h *DonationHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := mustActor(w, r)
	if !ok {
		return
	}
	var in services.DonationInput
	if !decodeJSON(w, r, &in) {
		return
	}
	donation, err := h.service.Donate(r.Context(), actor.UserID, in)
	if err != nil {
		writeError(w, err, "Failed to donate", map[string]interface{}{"donor_id": actor.UserID, "ngo_id": in.NGOID})
		return
	}
	writeJSON(w, http.StatusCreated, donation)
}

// Mine lists the caller's donations.
func (h *DonationHandler) Mine(w http.ResponseWriter, r *http.Request) {
	actor, ok := mustActor(w, r)
	if !ok {
		return
	}
	donations, err := h.service.ListByDonor(r.Context(), actor.UserID)
	if err != nil {
		writeError(w, err, "Failed to list donations", map[string]interface{}{"donor_id": actor.UserID})
		return
	}
	writeJSON(w, http.StatusOK, donations)
}

// ForNGO lists the donations an NGO received together with their total.
// Only the NGO itself and admins may see them.
func (h *DonationHandler) ForNGO(w http.ResponseWriter, r *http.Request) {
	actor, ok := mustActor(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	if actor.UserID != id && !actor.IsAdmin() {
		writeError(w, services.ErrForbidden, "Donation list denied", map[string]interface{}{"ngo_id": id})
		return
	}

	donations, err := h.service.ListByNGO(r.Context(), id)
	if err != nil {
		writeError(w, err, "Failed to list donations", map[string]interface{}{"ngo_id": id})
		return
	}
	total, err := h.service.TotalForNGO(r.Context(), id)
	if err != nil {
		writeError(w, err, "Failed to total donations", map[string]interface{}{"ngo_id": id})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"donations":  donations,
		"totalCents": total,
	})
}
