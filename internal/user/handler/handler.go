// Package handler serves the user endpoints: the public directory and the caller's own profile,
// password and account.
package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"markers-api/internal/platform/apperr"
	"markers-api/internal/platform/httpjson"
	"markers-api/internal/platform/pagination"
	"markers-api/internal/server/middleware"
	"markers-api/internal/user/domain"
	"markers-api/internal/user/service"
)

// ProfileService is the user service surface the handler needs.
type ProfileService interface {
	List(ctx context.Context, page pagination.Page) ([]*domain.User, pagination.Meta, error)
	Get(ctx context.Context, id string) (*domain.User, error)
	UpdateProfile(ctx context.Context, userID string, patch service.ProfilePatch) (*domain.User, error)
	ChangePassword(ctx context.Context, userID, current, next, confirm string) error
	DeleteAccount(ctx context.Context, userID string) error
}

// Handler serves the /users routes.
type Handler struct {
	svc ProfileService
}

// NewHandler returns a Handler backed by svc.
func NewHandler(svc ProfileService) *Handler {
	return &Handler{svc: svc}
}

// List serves GET /users.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	users, meta, err := h.svc.List(r.Context(), pagination.FromQuery(r.URL.Query()))
	if err != nil {
		httpjson.Error(w, r, err)
		return
	}
	httpjson.List(w, newUserResponses(users), meta)
}

// Get serves GET /users/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	u, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpjson.Error(w, r, err)
		return
	}
	httpjson.Data(w, http.StatusOK, NewUserResponse(u))
}

// Me serves GET /users/me with the caller's own profile.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	u, err := h.svc.Get(r.Context(), userID)
	if err != nil {
		httpjson.Error(w, r, err)
		return
	}
	httpjson.Data(w, http.StatusOK, NewUserResponse(u))
}

// UpdateProfile serves PUT /users/profile and PUT /users/me.
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	var req updateProfileRequest
	if err := httpjson.Decode(w, r, &req); err != nil {
		httpjson.Error(w, r, err)
		return
	}
	if err := req.validate(); err != nil {
		httpjson.Error(w, r, err)
		return
	}
	patch := service.ProfilePatch{Avatar: req.Avatar}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		patch.Name = &name
	}
	u, err := h.svc.UpdateProfile(r.Context(), userID, patch)
	if err != nil {
		httpjson.Error(w, r, err)
		return
	}
	httpjson.Data(w, http.StatusOK, NewUserResponse(u))
}

// ChangePassword serves PUT /users/password and PUT /users/me/password.
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	var req changePasswordRequest
	if err := httpjson.Decode(w, r, &req); err != nil {
		httpjson.Error(w, r, err)
		return
	}
	if err := req.validate(); err != nil {
		httpjson.Error(w, r, err)
		return
	}
	if err := h.svc.ChangePassword(r.Context(), userID, req.CurrentPassword, req.NewPassword, req.ConfirmPassword); err != nil {
		httpjson.Error(w, r, err)
		return
	}
	httpjson.Message(w, http.StatusOK, "Password updated successfully")
}

// DeleteAccount serves DELETE /users/account and DELETE /users/me.
func (h *Handler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeleteAccount(r.Context(), userID); err != nil {
		httpjson.Error(w, r, err)
		return
	}
	httpjson.Message(w, http.StatusOK, "User deleted successfully")
}

// callerID returns the authenticated user id, writing 401 when the route was mounted without
// RequireAuth and the request is anonymous.
func callerID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		httpjson.Error(w, r, apperr.Unauthorized("Unauthorized"))
		return "", false
	}
	return userID, true
}
