package handlers

import (
	"errors"
	"net/http"

	"github.com/Prachi-Sharma23/creators-platform/internal/auth"
	"github.com/Prachi-Sharma23/creators-platform/internal/models"
	"github.com/Prachi-Sharma23/creators-platform/internal/services"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"
)

// UserHandler handles HTTP requests for user management.
type UserHandler struct {
	service services.UserServiceProvider
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(service services.UserServiceProvider) *UserHandler {
	return &UserHandler{service: service}
}

// LoginPayload defines the structure for login requests.
type LoginPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterPayload defines the structure for registration requests.
type RegisterPayload struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UpdatePayload carries the fields to change; absent fields stay as they are.
type UpdatePayload struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
}

// ChangePasswordPayload defines the structure for password changes.
type ChangePasswordPayload struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// UserResponse wraps a single user.
type UserResponse struct {
	Message string      `json:"message,omitempty"`
	User    models.User `json:"user"`
}

// LoginResponse is returned on successful login.
type LoginResponse struct {
	Message string      `json:"message"`
	Token   string      `json:"token"`
	User    models.User `json:"user"`
}

// Register handles new user registration.
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var payload RegisterPayload
	if !decodeJSON(w, r, &payload) {
		return
	}

	user, err := h.service.Register(r.Context(), payload.Name, payload.Email, payload.Password)
	if err != nil {
		writeServiceError(w, r, err, "register user")
		return
	}

	hlog.FromRequest(r).Info().Str("user_id", user.ID).Msg("User registered")
	writeJSON(w, http.StatusCreated, UserResponse{Message: "User registered successfully", User: user})
}

// Login handles user authentication and JWT generation.
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var payload LoginPayload
	if !decodeJSON(w, r, &payload) {
		return
	}

	res, err := h.service.Login(r.Context(), payload.Email, payload.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			hlog.FromRequest(r).Warn().Msg("Failed authentication attempt")
		}
		writeServiceError(w, r, err, "log in")
		return
	}

	writeJSON(w, http.StatusOK, LoginResponse{Message: "Login successful", Token: res.Token, User: res.User})
}

// Profile returns the user resolved by the auth gate.
func (h *UserHandler) Profile(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		hlog.FromRequest(r).Error().Msg("Could not retrieve user from context")
		writeError(w, http.StatusInternalServerError, "Server error")
		return
	}
	writeJSON(w, http.StatusOK, UserResponse{Message: "Profile accessed successfully", User: *user})
}

// List returns every user, oldest first.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListUsers(r.Context())
	if err != nil {
		writeServiceError(w, r, err, "list users")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// Get handles retrieving a user by their ID.
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	user, err := h.service.GetUserByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err, "get user")
		return
	}
	writeJSON(w, http.StatusOK, UserResponse{User: user})
}

// Update handles updating a user's profile information.
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var payload UpdatePayload
	if !decodeJSON(w, r, &payload) {
		return
	}

	user, err := h.service.UpdateUser(r.Context(), id, payload.Name, payload.Email)
	if err != nil {
		writeServiceError(w, r, err, "update user")
		return
	}
	writeJSON(w, http.StatusOK, UserResponse{Message: "User updated successfully", User: user})
}

// Delete handles the permanent deletion of a user account.
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.service.DeleteUser(r.Context(), id); err != nil {
		writeServiceError(w, r, err, "delete user")
		return
	}

	hlog.FromRequest(r).Info().Str("user_id", id).Msg("User deleted")
	writeJSON(w, http.StatusOK, MessageResponse{Message: "User deleted successfully"})
}

// ChangePassword handles changing a user's password.
func (h *UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var payload ChangePasswordPayload
	if !decodeJSON(w, r, &payload) {
		return
	}

	if err := h.service.UpdatePassword(r.Context(), id, payload.CurrentPassword, payload.NewPassword); err != nil {
		writeServiceError(w, r, err, "change password")
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Password updated successfully"})
}
