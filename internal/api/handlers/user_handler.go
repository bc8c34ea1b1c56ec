package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/isdelr/impact-be/internal/auth"
	"github.com/isdelr/impact-be/internal/services"
	"github.com/rs/zerolog/log"
)

// UserHandler handles HTTP requests for accounts and authentication.
type UserHandler struct {
	service      services.UserServiceProvider
	secureCookie bool
}

// NewUserHandler creates a new UserHandler. secureCookie marks the auth
// cookie Secure, which production deployments need.
func NewUserHandler(service services.UserServiceProvider, secureCookie bool) *UserHandler {
	return &UserHandler{service: service, secureCookie: secureCookie}
}

// AuthPayload defines the structure for login requests.
type AuthPayload struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RegisterPayload defines the structure for registration requests. Admin
// accounts cannot be self-registered.
type RegisterPayload struct {
	Name     string `json:"name" validate:"required,notblank,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Role     string `json:"role" validate:"omitempty,oneof=volunteer ngo corporate"`
}

// Register handles new user registration.
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var payload RegisterPayload
	if !decodeJSON(w, r, &payload) {
		return
	}

	user, err := h.service.CreateUser(r.Context(), payload.Name, payload.Email, payload.Password, payload.Role)
	if err != nil {
		writeError(w, err, "Failed to register user", map[string]interface{}{"email": payload.Email})
		return
	}

	writeJSON(w, http.StatusCreated, user)
}

// Login handles user authentication and JWT generation.
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var payload AuthPayload
	if !decodeJSON(w, r, &payload) {
		return
	}

	user, err := h.service.AuthenticateUser(r.Context(), payload.Email, payload.Password)
	if err != nil {
		log.Warn().Err(err).Str("email", payload.Email).Msg("Failed authentication attempt")
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	token, err := auth.GenerateJWT(user)
	if err != nil {
		log.Error().Err(err).Str("user_id", user.ID).Msg("Failed to generate JWT")
		http.Error(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "token",
		Value:    token,
		Expires:  time.Now().Add(auth.TTL()),
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteStrictMode,
		Path:     "/",
	})

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"token": token,
		"user":  user,
	})
}

// Logout clears the auth cookie.
func (h *UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     "token",
		Value:    "",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteStrictMode,
		Path:     "/",
	})
	w.WriteHeader(http.StatusNoContent)
}

// GetMe retrieves the currently authenticated user from the token.
func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	actor, ok := mustActor(w, r)
	if !ok {
		return
	}

	user, err := h.service.GetUserByID(r.Context(), actor.UserID)
	if err != nil {
		writeError(w, err, "User from token not found", map[string]interface{}{"user_id": actor.UserID})
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// Get handles retrieving a user's public profile.
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	user, err := h.service.GetUserByID(r.Context(), id)
	if err != nil {
		writeError(w, err, "Failed to get user", map[string]interface{}{"user_id": id})
		return
	}
	user.Email = ""
	writeJSON(w, http.StatusOK, user)
}

// UpdateMe handles updating the caller's profile information.
func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	actor, ok := mustActor(w, r)
	if !ok {
		return
	}
	var payload struct {
		Name  string `json:"name" validate:"required,notblank,max=100"`
		Email string `json:"email" validate:"required,email"`
	}
	if !decodeJSON(w, r, &payload) {
		return
	}

	user, err := h.service.UpdateUser(r.Context(), actor.UserID, payload.Name, payload.Email)
	if err != nil {
		writeError(w, err, "Failed to update user", map[string]interface{}{"user_id": actor.UserID})
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// ChangePassword handles changing the caller's password.
func (h *UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	actor, ok := mustActor(w, r)
	if !ok {
		return
	}
	var payload struct {
		CurrentPassword string `json:"currentPassword" validate:"required"`
		NewPassword     string `json:"newPassword" validate:"required,min=8,max=72"`
	}
	if !decodeJSON(w, r, &payload) {
		return
	}

	if err := h.service.UpdatePassword(r.Context(), actor.UserID, payload.CurrentPassword, payload.NewPassword); err != nil {
		writeError(w, err, "Failed to change password", map[string]interface{}{"user_id": actor.UserID})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Password updated successfully"})
}

// DeleteMe handles the permanent deletion of the caller's account.
func (h *UserHandler) DeleteMe(w http.ResponseWriter, r *http.Request) {
	actor, ok := mustActor(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteUser(r.Context(), actor.UserID); err != nil {
		writeError(w, err, "Failed to delete user", map[string]interface{}{"user_id": actor.UserID})
		return
	}
	h.Logout(w, r)
}

// SetRole lets an admin change the role of any account.
func (h *UserHandler) SetRole(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var payload struct {
		Role string `json:"role" validate:"required,role"`
	}
	if !decodeJSON(w, r, &payload) {
		return
	}

	user, err := h.service.SetRole(r.Context(), id, payload.Role)
	if err != nil {
		writeError(w, err, "Failed to set role", map[string]interface{}{"user_id": id})
		return
	}
	log.Info().Str("user_id", id).Str("role", payload.Role).Msg("Role changed")
	writeJSON(w, http.StatusOK, user)
}
