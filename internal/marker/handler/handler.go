// Package handler serves the /markers endpoints and the per-user marker listing.
package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"markers-api/internal/geo"
	"markers-api/internal/marker/domain"
	"markers-api/internal/marker/service"
	"markers-api/internal/platform/apperr"
	"markers-api/internal/platform/httpjson"
	"markers-api/internal/platform/pagination"
	"markers-api/internal/server/middleware"
)

// MarkerService is the marker surface the handler needs.
type MarkerService interface {
	List(ctx context.Context, box *geo.Box, page pagination.Page) ([]*domain.Marker, pagination.Meta, error)
	ListByUser(ctx context.Context, userID string, page pagination.Page) ([]*domain.Marker, pagination.Meta, error)
	ListMine(ctx context.Context, userID string, page pagination.Page) ([]*domain.Marker, pagination.Meta, error)
	Get(ctx context.Context, id string) (*domain.Marker, error)
	Create(ctx context.Context, userID string, in service.CreateInput) (*domain.Marker, error)
	Update(ctx context.Context, userID, id string, patch service.Patch) (*domain.Marker, error)
	Delete(ctx context.Context, userID, id string) error
}

// Handler serves the marker routes.
type Handler struct {
	svc MarkerService
}

// NewHandler returns a Handler backed by svc.
func NewHandler(svc MarkerService) *Handler {
	return &Handler{svc: svc}
}

// List serves GET /markers, optionally filtered by lat, lng and radius (km).
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	box, err := geo.FromQuery(q)
	if err != nil {
		httpjson.Error(w, r, err)
		return
	}
	markers, meta, err := h.svc.List(r.Context(), box, pagination.FromQuery(q))
	if err != nil {
		httpjson.Error(w, r, err)
		return
	}
	httpjson.List(w, newMarkerResponses(markers), meta)
}

// ListByUser serves GET /users/{id}/markers.
func (h *Handler) ListByUser(w http.ResponseWriter, r *http.Request) {
	markers, meta, err := h.svc.ListByUser(r.Context(), chi.URLParam(r, "id"), pagination.FromQuery(r.URL.Query()))
	if err != nil {
		httpjson.Error(w, r, err)
		return
	}
	httpjson.List(w, newMarkerResponses(markers), meta)
}

// ListMine serves GET /markers/my and GET /markers/me.
func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	markers, meta, err := h.svc.ListMine(r.Context(), userID, pagination.FromQuery(r.URL.Query()))
	if err != nil {
		httpjson.Error(w, r, err)
		return
	}
	httpjson.List(w, newMarkerResponses(markers), meta)
}

// Get serves GET /markers/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	m, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpjson.Error(w, r, err)
		return
	}
	httpjson.Data(w, http.StatusOK, newMarkerResponse(m))
}

// Create serves POST /markers.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	var req createMarkerRequest
	if err := httpjson.Decode(w, r, &req); err != nil {
		httpjson.Error(w, r, err)
		return
	}
	if err := req.validate(); err != nil {
		httpjson.Error(w, r, err)
		return
	}
	m, err := h.svc.Create(r.Context(), userID, req.input())
	if err != nil {
		httpjson.Error(w, r, err)
		return
	}
	httpjson.Data(w, http.StatusCreated, newMarkerResponse(m))
}

// Update serves PUT /markers/{id}. Only the owner may update.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	var req updateMarkerRequest
	if err := httpjson.Decode(w, r, &req); err != nil {
		httpjson.Error(w, r, err)
		return
	}
	if err := req.validate(); err != nil {
		httpjson.Error(w, r, err)
		return
	}
	m, err := h.svc.Update(r.Context(), userID, chi.URLParam(r, "id"), req.patch())
	if err != nil {
		httpjson.Error(w, r, err)
		return
	}
	httpjson.Data(w, http.StatusOK, newMarkerResponse(m))
}

// Delete serves DELETE /markers/{id}. Only the owner may delete.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	if err := h.svc.Delete(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		httpjson.Error(w, r, err)
		return
	}
	httpjson.Message(w, http.StatusOK, "Marker deleted successfully")
}

func callerID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		httpjson.Error(w, r, apperr.Unauthorized("Unauthorized"))
		return "", false
	}
	return userID, true
}
