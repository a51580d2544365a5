// Package handler serves the /auth endpoints.
package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"markers-api/internal/identity/service"
	"markers-api/internal/platform/apperr"
	"markers-api/internal/platform/httpjson"
	"markers-api/internal/platform/validate"
	"markers-api/internal/server/middleware"
	userdomain "markers-api/internal/user/domain"
	userhandler "markers-api/internal/user/handler"
)

// AuthService is the auth surface the handler needs.
type AuthService interface {
	Register(ctx context.Context, in service.RegisterInput) (*service.AuthResult, error)
	Login(ctx context.Context, email, password string) (*service.AuthResult, error)
	Logout(ctx context.Context, token string) error
	GetUser(ctx context.Context, userID string) (*userdomain.User, error)
}

// Handler serves register, login, logout and the current-user lookup.
type Handler struct {
	auth AuthService
}

// NewHandler returns a Handler backed by auth.
func NewHandler(auth AuthService) *Handler {
	return &Handler{auth: auth}
}

type registerRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

func (r registerRequest) validate() error {
	return validate.First(
		userhandler.ValidateName(r.Name),
		validate.Email("email", r.Email),
		userhandler.ValidatePassword("password", r.Password),
		userhandler.ValidatePassword("confirmPassword", r.ConfirmPassword),
	)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r loginRequest) validate() error {
	return validate.First(
		validate.Email("email", r.Email),
		validate.Required("password", r.Password, "Password is required"),
		validate.RuneLength("password", r.Password, 1, 100, "Password must be at most 100 characters"),
	)
}

type authResponse struct {
	User      userhandler.UserResponse `json:"user"`
	Token     string                   `json:"token"`
	ExpiresAt time.Time                `json:"expiresAt"`
}

func newAuthResponse(res *service.AuthResult) authResponse {
	return authResponse{
		User:      userhandler.NewUserResponse(res.User),
		Token:     res.Token,
		ExpiresAt: res.ExpiresAt,
	}
}

// Register serves POST /auth/register.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := httpjson.Decode(w, r, &req); err != nil {
		httpjson.Error(w, r, err)
		return
	}
	if err := req.validate(); err != nil {
		httpjson.Error(w, r, err)
		return
	}
	res, err := h.auth.Register(r.Context(), service.RegisterInput{
		Name:            strings.TrimSpace(req.Name),
		Email:           req.Email,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		httpjson.Error(w, r, err)
		return
	}
	httpjson.Data(w, http.StatusCreated, newAuthResponse(res))
}

// Login serves POST /auth/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpjson.Decode(w, r, &req); err != nil {
		httpjson.Error(w, r, err)
		return
	}
	if err := req.validate(); err != nil {
		httpjson.Error(w, r, err)
		return
	}
	res, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		httpjson.Error(w, r, err)
		return
	}
	httpjson.Data(w, http.StatusOK, newAuthResponse(res))
}

// Logout serves POST /auth/logout. It revokes the token the request was authenticated with.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	token, ok := middleware.GetToken(r.Context())
	if !ok {
		httpjson.Error(w, r, apperr.Unauthorized("Unauthorized"))
		return
	}
	if err := h.auth.Logout(r.Context(), token); err != nil {
		httpjson.Error(w, r, err)
		return
	}
	httpjson.Message(w, http.StatusOK, "Logout successful")
}

// Me serves GET /auth/me. A valid session whose user has since been deleted is treated as unauthenticated.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		httpjson.Error(w, r, apperr.Unauthorized("Unauthorized"))
		return
	}
	u, err := h.auth.GetUser(r.Context(), userID)
	if err != nil {
		httpjson.Error(w, r, err)
		return
	}
	if u == nil {
		httpjson.Error(w, r, apperr.Unauthorized("Unauthorized"))
		return
	}
	httpjson.Data(w, http.StatusOK, userhandler.NewUserResponse(u))
}
