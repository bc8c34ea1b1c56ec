package handlers

import (
	"net/http"

	"github.com/isdelr/impact-be/internal/services"
)

// AdminHandler serves the admin dashboard.
type AdminHandler struct {
	system services.SystemServiceProvider
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(system services.SystemServiceProvider) *AdminHandler {
	return &AdminHandler{system: system}
}

// System returns host statistics.
func (h *AdminHandler) System(w http.ResponseWriter, r *http.Request) {
	stats, err := h.system.Stats(r.Context())
	if err != nil {
		writeError(w, err, "Failed to read system stats", nil)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
