package repository

import (
	"context"

	"markers-api/internal/geo"
	"markers-api/internal/marker/domain"
)

// Filter narrows marker lists. Zero value matches every marker.
type Filter struct {
	UserID string
	Box    *geo.Box
}

// Repository defines persistence for markers. Reads include the owner summary.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Marker, error)
	List(ctx context.Context, f Filter, limit, offset int) ([]*domain.Marker, error)
	Count(ctx context.Context, f Filter) (int64, error)
	Create(ctx context.Context, m *domain.Marker) error
	Update(ctx context.Context, m *domain.Marker) error
	Delete(ctx context.Context, id string) error
}
