package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/isdelr/impact-be/internal/auth"
	"github.com/isdelr/impact-be/internal/services"
	"github.com/isdelr/impact-be/internal/storage"
	"github.com/isdelr/impact-be/internal/validation"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("Failed to encode response")
	}
}

// decodeJSON reads the request body into dst and validates it. On failure
// the response has been written and false is returned.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return false
	}
	if err := validation.Check(dst); err != nil {
		var fields validation.Errors
		if errors.As(err, &fields) {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{"errors": fields})
			return false
		}
		log.Error().Err(err).Msg("Validation failed unexpectedly")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

// actorFrom returns the authenticated caller. Routes behind JWTMiddleware
// always have one.
func actorFrom(r *http.Request) (services.Actor, bool) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		return services.Actor{}, false
	}
	return services.Actor{UserID: claims.UserID, Role: claims.Role}, true
}

func mustActor(w http.ResponseWriter, r *http.Request) (services.Actor, bool) {
	actor, ok := actorFrom(r)
	if !ok {
		log.Error().Msg("Could not retrieve user claims from context")
		http.Error(w, "Could not retrieve user from token", http.StatusUnauthorized)
	}
	return actor, ok
}

func queryInt(r *http.Request, name string, def int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil || v < 0 {
		return def
	}
	return v
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, services.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, services.ErrEmailTaken),
		errors.Is(err, services.ErrAlreadyRegistered),
		errors.Is(err, services.ErrNotRegistered),
		errors.Is(err, services.ErrEventFull),
		errors.Is(err, services.ErrEventAlreadyCompleted),
		errors.Is(err, services.ErrEventCancelled),
		errors.Is(err, services.ErrOutOfStock),
		errors.Is(err, services.ErrRewardInactive):
		return http.StatusConflict
	case errors.Is(err, services.ErrInsufficientCoins),
		errors.Is(err, services.ErrInvalidRecipient),
		errors.Is(err, services.ErrInvalidAmount),
		errors.Is(err, services.ErrInvalidRole),
		errors.Is(err, services.ErrInvalidTimeRange):
		return http.StatusUnprocessableEntity
	case errors.Is(err, storage.ErrUnsupportedType):
		return http.StatusUnsupportedMediaType
	}
	return http.StatusInternalServerError
}

// writeError logs err and writes the matching status. Domain errors are
// shown to the client; anything else is reported as msg.
func writeError(w http.ResponseWriter, err error, msg string, fields map[string]interface{}) {
	status := statusFor(err)
	var event *zerolog.Event
	if status == http.StatusInternalServerError {
		event = log.Error()
	} else {
		event = log.Warn()
	}
	event.Err(err).Fields(fields).Int("status", status).Msg(msg)

	if status == http.StatusInternalServerError {
		http.Error(w, msg, status)
		return
	}
	http.Error(w, err.Error(), status)
}
