package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/isdelr/impact-be/internal/services"
	"github.com/isdelr/impact-be/internal/storage"
	"github.com/rs/zerolog/log"
)

// EventHandler handles HTTP requests for volunteering events.
type EventHandler struct {
	service services.EventServiceProvider
	logs    services.ParticipantLogServiceProvider
	media   storage.MediaStore
}

// NewEventHandler creates a new EventHandler. media may be nil when no
// object store is configured.
func NewEventHandler(service services.EventServiceProvider, logs services.ParticipantLogServiceProvider, media storage.MediaStore) *EventHandler {
	return &EventHandler{service: service, logs: logs, media: media}
}

func eventFields(id string) map[string]interface{} {
	return map[string]interface{}{"event_id": id}
}

// GetAll handles listing events, filtered by query parameters.
func (h *EventHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := services.EventFilter{
		Status:      q.Get("status"),
		Category:    q.Get("category"),
		OrganizerID: q.Get("organizer"),
		Limit:       queryInt(r, "limit", 50),
		Offset:      queryInt(r, "offset", 0),
	}
	events, err := h.service.ListEvents(r.Context(), filter)
	if err != nil {
		writeError(w, err, "Failed to retrieve events", nil)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

// Get handles the request to get a single event by its ID.
func (h *EventHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	event, err := h.service.GetEventByID(r.Context(), id)
	if err != nil {
		writeError(w, err, "Failed to get event", eventFields(id))
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// Create handles the request to create a new event.
func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := mustActor(w, r)
	if !ok {
		return
	}
	var in services.EventInput
	if !decodeJSON(w, r, &in) {
		return
	}

	event, err := h.service.CreateEvent(r.Context(), actor.UserID, in)
	if err != nil {
		writeError(w, err, "Failed to create event", map[string]interface{}{"organizer_id": actor.UserID})
		return
	}
	writeJSON(w, http.StatusCreated, event)
}

// Update handles the request to update an existing event.
func (h *EventHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := mustActor(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	var in services.EventInput
	if !decodeJSON(w, r, &in) {
		return
	}

	event, err := h.service.UpdateEvent(r.Context(), actor, id, in)
	if err != nil {
		writeError(w, err, "Failed to update event", eventFields(id))
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// Delete handles the request to delete an event.
func (h *EventHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := mustActor(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	if err := h.service.DeleteEvent(r.Context(), actor, id); err != nil {
		writeError(w, err, "Failed to delete event", eventFields(id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CancelEvent marks the event as cancelled.
func (h *EventHandler) CancelEvent(w http.ResponseWriter, r *http.Request) {
	actor, ok := mustActor(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	event, err := h.service.CancelEvent(r.Context(), actor, id)
	if err != nil {
		writeError(w, err, "Failed to cancel event", eventFields(id))
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// Register signs the caller up for the event.
func (h *EventHandler) Register(w http.ResponseWriter, r *http.Request) {
	actor, ok := mustActor(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	participant, err := h.service.Register(r.Context(), id, actor.UserID)
	if err != nil {
		writeError(w, err, "Failed to register for event", map[string]interface{}{"event_id": id, "user_id": actor.UserID})
		return
	}
	writeJSON(w, http.StatusCreated, participant)
}

// CancelRegistration withdraws the caller from the event.
func (h *EventHandler) CancelRegistration(w http.ResponseWriter, r *http.Request) {
	actor, ok := mustActor(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	if err := h.service.CancelRegistration(r.Context(), id, actor.UserID); err != nil {
		writeError(w, err, "Failed to cancel registration", map[string]interface{}{"event_id": id, "user_id": actor.UserID})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Participants lists the participation rows of the event.
func (h *EventHandler) Participants(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	participants, err := h.service.ListParticipants(r.Context(), id)
	if err != nil {
		writeError(w, err, "Failed to list participants", eventFields(id))
		return
	}
	writeJSON(w, http.StatusOK, participants)
}

// AttendancePayload marks one participant as attended or absent.
type AttendancePayload struct {
	UserID   string `json:"userId" validate:"required"`
	Attended bool   `json:"attended"`
}

// MarkAttendance records attendance for one participant.
func (h *EventHandler) MarkAttendance(w http.ResponseWriter, r *http.Request) {
	actor, ok := mustActor(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	var payload AttendancePayload
	if !decodeJSON(w, r, &payload) {
		return
	}

	if err := h.service.MarkAttendance(r.Context(), actor, id, payload.UserID, payload.Attended); err != nil {
		writeError(w, err, "Failed to mark attendance", map[string]interface{}{"event_id": id, "user_id": payload.UserID})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Verify marks the event as verified.
func (h *EventHandler) Verify(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	event, err := h.service.Verify(r.Context(), id)
	if err != nil {
		writeError(w, err, "Failed to verify event", eventFields(id))
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// Complete closes the event and awards points to its attendees.
func (h *EventHandler) Complete(w http.ResponseWriter, r *http.Request) {
	actor, ok := mustActor(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	result, err := h.service.Complete(r.Context(), &actor, id)
	if err != nil {
		writeError(w, err, "Failed to complete event", eventFields(id))
		return
	}
	log.Info().Str("event_id", id).Int("points", result.Breakdown.Total).Int("awarded", len(result.Awards)).Msg("Event completed")
	writeJSON(w, http.StatusOK, result)
}

// PreviewPoints returns the score the event would award now.
func (h *EventHandler) PreviewPoints(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	breakdown, err := h.service.PreviewPoints(r.Context(), id)
	if err != nil {
		writeError(w, err, "Failed to preview points", eventFields(id))
		return
	}
	writeJSON(w, http.StatusOK, breakdown)
}

// History returns the participant log of the event.
func (h *EventHandler) History(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	history, err := h.logs.GetEventHistory(r.Context(), id)
	if err != nil {
		writeError(w, err, "Failed to retrieve event history", eventFields(id))
		return
	}
	writeJSON(w, http.StatusOK, history)
}

// Stats returns aggregates of the participant log of the event.
func (h *EventHandler) Stats(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	stats, err := h.logs.GetEventStats(r.Context(), id)
	if err != nil {
		writeError(w, err, "Failed to retrieve event stats", eventFields(id))
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// UploadBanner stores a banner image and attaches it to the event.
func (h *EventHandler) UploadBanner(w http.ResponseWriter, r *http.Request) {
	actor, ok := mustActor(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	if _, err := h.service.GetEventByID(r.Context(), id); err != nil {
		writeError(w, err, "Failed to get event", eventFields(id))
		return
	}

	url, ok := uploadImage(w, r, h.media, "events/"+id)
	if !ok {
		return
	}
	event, err := h.service.SetBanner(r.Context(), actor, id, url)
	if err != nil {
		if rmErr := h.media.Remove(r.Context(), url); rmErr != nil {
			log.Warn().Err(rmErr).Str("url", url).Msg("Failed to remove orphaned banner")
		}
		writeError(w, err, "Failed to set banner", eventFields(id))
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// uploadImage reads the "file" form field and stores it under prefix.
func uploadImage(w http.ResponseWriter, r *http.Request, media storage.MediaStore, prefix string) (string, bool) {
	if media == nil {
		http.Error(w, "Media storage is not configured", http.StatusServiceUnavailable)
		return "", false
	}

	r.Body = http.MaxBytesReader(w, r.Body, storage.MaxUploadSize+1024)
	if err := r.ParseMultipartForm(storage.MaxUploadSize); err != nil {
		http.Error(w, "File too large or invalid form", http.StatusBadRequest)
		return "", false
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "Missing file", http.StatusBadRequest)
		return "", false
	}
	defer file.Close()

	url, err := media.Upload(r.Context(), prefix, file, header.Size, header.Header.Get("Content-Type"))
	if err != nil {
		writeError(w, err, "Failed to upload file", map[string]interface{}{"prefix": prefix})
		return "", false
	}
	return url, true
}
