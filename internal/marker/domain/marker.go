package domain

import (
	"errors"
	"time"

	userdomain "markers-api/internal/user/domain"
)

// Marker is a geo-tagged point owned by a single user.
type Marker struct {
	ID          string
	Title       string
	Description *string
	Latitude    float64
	Longitude   float64
	Address     *string
	ImageURL    *string
	UserID      string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	// Owner is populated by reads that join the owning user.
	Owner *userdomain.Summary
}

// OwnerID returns the owning user's id.
func (m *Marker) OwnerID() string {
	return m.UserID
}

// Validate checks the invariants the database also enforces.
func (m *Marker) Validate() error {
	if m.ID == "" {
		return errors.New("id is required")
	}
	if m.UserID == "" {
		return errors.New("user id is required")
	}
	if m.Title == "" {
		return errors.New("title is required")
	}
	if m.Latitude < -90 || m.Latitude > 90 {
		return errors.New("latitude out of range")
	}
	if m.Longitude < -180 || m.Longitude > 180 {
		return errors.New("longitude out of range")
	}
	return nil
}
