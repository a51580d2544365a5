// Package server wires the HTTP router and runs the HTTP server.
package server

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"

	"markers-api/internal/audit"
	healthhandler "markers-api/internal/health/handler"
	identityhandler "markers-api/internal/identity/handler"
	markerhandler "markers-api/internal/marker/handler"
	"markers-api/internal/observability"
	"markers-api/internal/platform/apperr"
	"markers-api/internal/platform/httpjson"
	"markers-api/internal/server/middleware"
	userhandler "markers-api/internal/user/handler"
)

// AuthService is the auth service as both the /auth handler and the token verifier see it.
type AuthService interface {
	identityhandler.AuthService
	middleware.Verifier
}

// Deps holds the services and infrastructure the router mounts.
type Deps struct {
	Auth     AuthService
	Profiles userhandler.ProfileService
	Markers  markerhandler.MarkerService
	// Audit records authenticated mutations. If nil, the audit middleware is not installed.
	Audit audit.AuditLogger
	// Metrics and Registry back the request metrics and /metrics. Either may be nil.
	Metrics  *observability.Metrics
	Registry *prometheus.Registry
	// HealthPinger and HealthPolicyChecker feed /health readiness. Nil checks are skipped.
	HealthPinger        healthhandler.Pinger
	HealthPolicyChecker healthhandler.PolicyChecker
	Logger              *slog.Logger
	// APIPrefix is where resource routes are mounted, e.g. /api/v1.
	APIPrefix      string
	AllowedOrigins []string
	Version        string
}

// NewRouter builds the chi router.
//
// Route map (under APIPrefix):
//   - /auth/register, /auth/login               public
//   - /auth/logout, /auth/me                    bearer
//   - /users, /users/{id}, /users/{id}/markers  public
//   - GET /users/me, /users/profile|me, /users/password|me/password, /users/account|me   bearer
//   - /markers, /markers/{id}                   public reads
//   - POST /markers, PUT|DELETE /markers/{id}, /markers/my|me             bearer
func NewRouter(deps Deps) http.Handler {
	prefix := deps.APIPrefix
	if prefix == "" {
		prefix = "/api/v1"
	}
	origins := deps.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(middleware.Tracing)
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.Metrics(deps.Metrics))
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))
	r.Use(middleware.ClientIP)
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpjson.Error(w, r, apperr.New(apperr.CodeNotFound, "", "Route not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httpjson.WriteJSON(w, http.StatusMethodNotAllowed, map[string]any{"success": false, "message": "Method not allowed"})
	})

	health := healthhandler.NewHandler(deps.HealthPinger, deps.HealthPolicyChecker, "Markers API", deps.Version)
	r.Get("/", health.Info)
	r.Get("/health", health.Health)
	if deps.Registry != nil {
		r.Method(http.MethodGet, "/metrics", observability.Handler(deps.Registry))
	}

	authH := identityhandler.NewHandler(deps.Auth)
	usersH := userhandler.NewHandler(deps.Profiles)
	markersH := markerhandler.NewHandler(deps.Markers)

	r.Route(prefix, func(r chi.Router) {
		r.Use(middleware.ResolveIdentity(deps.Auth))
		if deps.Audit != nil {
			r.Use(middleware.Audit(deps.Audit, selfAuditedRoutes(prefix)))
		}

		r.Post("/auth/register", authH.Register)
		r.Post("/auth/login", authH.Login)
		r.Get("/users", usersH.List)
		r.Get("/users/{id}", usersH.Get)
		r.Get("/users/{id}/markers", markersH.ListByUser)
		r.Get("/markers", markersH.List)
		r.Get("/markers/{id}", markersH.Get)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth)

			r.Post("/auth/logout", authH.Logout)
			r.Get("/auth/me", authH.Me)

			r.Get("/users/me", usersH.Me)
			r.Put("/users/profile", usersH.UpdateProfile)
			r.Put("/users/me", usersH.UpdateProfile)
			r.Put("/users/password", usersH.ChangePassword)
			r.Put("/users/me/password", usersH.ChangePassword)
			r.Delete("/users/account", usersH.DeleteAccount)
			r.Delete("/users/me", usersH.DeleteAccount)

			r.Get("/markers/my", markersH.ListMine)
			r.Get("/markers/me", markersH.ListMine)
			r.Post("/markers", markersH.Create)
			r.Put("/markers/{id}", markersH.Update)
			r.Delete("/markers/{id}", markersH.Delete)
		})
	})
	return r
}

// selfAuditedRoutes lists the routes whose services write their own audit entries.
func selfAuditedRoutes(prefix string) map[string]bool {
	routes := []string{
		"POST /auth/register",
		"POST /auth/login",
		"POST /auth/logout",
		"PUT /users/password",
		"PUT /users/me/password",
		"DELETE /users/account",
		"DELETE /users/me",
	}
	out := make(map[string]bool, len(routes))
	for _, rt := range routes {
		method, path, _ := strings.Cut(rt, " ")
		out[method+" "+prefix+path] = true
	}
	return out
}
