package repository

import (
	"context"
	"errors"

	"markers-api/internal/user/domain"
)

// ErrEmailTaken is returned by Create when the email unique constraint rejects the insert.
var ErrEmailTaken = errors.New("email already registered")

// Repository defines persistence for users. Lookups return (nil, nil) when no row matches.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	List(ctx context.Context, limit, offset int) ([]*domain.User, error)
	Count(ctx context.Context) (int64, error)
	Create(ctx context.Context, u *domain.User) error
	Update(ctx context.Context, u *domain.User) error
	// Delete removes the user; sessions and markers cascade.
	Delete(ctx context.Context, id string) error
}
