package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"markers-api/internal/geo"
	"markers-api/internal/marker/domain"
	markerrepo "markers-api/internal/marker/repository"
	"markers-api/internal/platform/apperr"
	"markers-api/internal/platform/ownership"
	"markers-api/internal/platform/pagination"
	userdomain "markers-api/internal/user/domain"
)

var markerTarget = ownership.Target{Type: "marker", Name: "Marker"}

// CreateInput is a validated new marker.
type CreateInput struct {
	Title       string
	Description *string
	Latitude    float64
	Longitude   float64
	Address     *string
	ImageURL    *string
}

// Patch holds the fields to change; nil leaves a field untouched.
type Patch struct {
	Title       *string
	Description *string
	Latitude    *float64
	Longitude   *float64
	Address     *string
	ImageURL    *string
}

// UserLookup resolves users for the per-user listing.
type UserLookup interface {
	GetByID(ctx context.Context, id string) (*userdomain.User, error)
}

// MarkerService implements marker CRUD with owner-only mutation.
type MarkerService struct {
	markers markerrepo.Repository
	users   UserLookup
	authz   ownership.Authorizer
	now     func() time.Time
}

// NewMarkerService returns a MarkerService. authz may be nil, in which case ownership.SameOwner decides.
func NewMarkerService(markers markerrepo.Repository, users UserLookup, authz ownership.Authorizer) *MarkerService {
	return &MarkerService{
		markers: markers,
		users:   users,
		authz:   authz,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// List returns a page of all markers, optionally inside box, newest first.
func (s *MarkerService) List(ctx context.Context, box *geo.Box, page pagination.Page) ([]*domain.Marker, pagination.Meta, error) {
	return s.list(ctx, markerrepo.Filter{Box: box}, page)
}

// ListByUser returns a page of userID's markers. A missing user is NotFound.
func (s *MarkerService) ListByUser(ctx context.Context, userID string, page pagination.Page) ([]*domain.Marker, pagination.Meta, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, pagination.Meta{}, err
	}
	if u == nil {
		return nil, pagination.Meta{}, apperr.NotFound("User")
	}
	return s.list(ctx, markerrepo.Filter{UserID: userID}, page)
}

// ListMine returns a page of the caller's own markers.
func (s *MarkerService) ListMine(ctx context.Context, userID string, page pagination.Page) ([]*domain.Marker, pagination.Meta, error) {
	return s.list(ctx, markerrepo.Filter{UserID: userID}, page)
}

func (s *MarkerService) list(ctx context.Context, f markerrepo.Filter, page pagination.Page) ([]*domain.Marker, pagination.Meta, error) {
	total, err := s.markers.Count(ctx, f)
	if err != nil {
		return nil, pagination.Meta{}, err
	}
	items, err := s.markers.List(ctx, f, page.Limit, page.Offset())
	if err != nil {
		return nil, pagination.Meta{}, err
	}
	return items, page.MetaFor(total), nil
}

// Get returns the marker for id. A missing marker is NotFound.
func (s *MarkerService) Get(ctx context.Context, id string) (*domain.Marker, error) {
	m, err := s.markers.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, apperr.NotFound("Marker")
	}
	return m, nil
}

// Create stores a marker owned by userID and returns it with its owner.
func (s *MarkerService) Create(ctx context.Context, userID string, in CreateInput) (*domain.Marker, error) {
	now := s.now()
	m := &domain.Marker{
		ID:          uuid.New().String(),
		Title:       in.Title,
		Description: in.Description,
		Latitude:    in.Latitude,
		Longitude:   in.Longitude,
		Address:     in.Address,
		ImageURL:    in.ImageURL,
		UserID:      userID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.markers.Create(ctx, m); err != nil {
		return nil, err
	}
	return s.reload(ctx, m)
}

// Update applies patch to the marker if userID owns it.
func (s *MarkerService) Update(ctx context.Context, userID, id string, patch Patch) (*domain.Marker, error) {
	m, err := s.requireOwned(ctx, userID, id, ownership.ActionUpdate)
	if err != nil {
		return nil, err
	}
	if patch.Title != nil {
		m.Title = *patch.Title
	}
	if patch.Description != nil {
		m.Description = patch.Description
	}
	if patch.Latitude != nil {
		m.Latitude = *patch.Latitude
	}
	if patch.Longitude != nil {
		m.Longitude = *patch.Longitude
	}
	if patch.Address != nil {
		m.Address = patch.Address
	}
	if patch.ImageURL != nil {
		m.ImageURL = patch.ImageURL
	}
	m.UpdatedAt = s.now()
	if err := s.markers.Update(ctx, m); err != nil {
		return nil, err
	}
	return s.reload(ctx, m)
}

// Delete removes the marker if userID owns it.
func (s *MarkerService) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.requireOwned(ctx, userID, id, ownership.ActionDelete); err != nil {
		return err
	}
	return s.markers.Delete(ctx, id)
}

func (s *MarkerService) requireOwned(ctx context.Context, userID, id, action string) (*domain.Marker, error) {
	target := markerTarget
	target.ID = id
	return ownership.Require(ctx, s.authz, userID, action, target, func(ctx context.Context) (*domain.Marker, bool, error) {
		m, err := s.markers.GetByID(ctx, id)
		return m, m != nil, err
	})
}

// reload re-reads m so the response carries the owner summary. Falls back to m if the row vanished.
func (s *MarkerService) reload(ctx context.Context, m *domain.Marker) (*domain.Marker, error) {
	fresh, err := s.markers.GetByID(ctx, m.ID)
	if err != nil {
		return nil, err
	}
	if fresh == nil {
		return m, nil
	}
	return fresh, nil
}
