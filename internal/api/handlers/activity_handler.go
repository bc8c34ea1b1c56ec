package handlers

import (
	"net/http"

	"github.com/isdelr/impact-be/internal/services"
)

// ActivityHandler handles HTTP requests for the platform activity feed.
type ActivityHandler struct {
	service services.ActivityServiceProvider
}

// NewActivityHandler creates a new ActivityHandler.
func NewActivityHandler(service services.ActivityServiceProvider) *ActivityHandler {
	return &ActivityHandler{service: service}
}

// GetRecent handles the request to get recent activity.
func (h *ActivityHandler) GetRecent(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 20)
	if limit == 0 || limit > 200 {
		limit = 20
	}

	activities, err := h.service.GetRecentActivities(r.Context(), limit)
	if err != nil {
		writeError(w, err, "Failed to retrieve activities", nil)
		return
	}
	writeJSON(w, http.StatusOK, activities)
}
