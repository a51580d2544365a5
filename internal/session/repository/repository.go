package repository

import (
	"context"

	"markers-api/internal/session/domain"
)

// Store defines persistence for sessions, keyed by token digest.
type Store interface {
	Create(ctx context.Context, s *domain.Session) error
	// FindValid returns the session for tokenHash, or nil when absent or expired.
	FindValid(ctx context.Context, tokenHash string) (*domain.Session, error)
	// Delete removes the session for tokenHash. Deleting a missing session is not an error.
	Delete(ctx context.Context, tokenHash string) error
	DeleteAllForUser(ctx context.Context, userID string) error
	// DeleteExpired purges expired sessions and returns how many were removed.
	DeleteExpired(ctx context.Context) (int64, error)
}
