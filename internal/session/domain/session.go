package domain

import "time"

// Session binds a bearer token to a user until ExpiresAt. Only the SHA-256 digest of the
// token is stored.
type Session struct {
	ID        string
	UserID    string
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// ValidAt reports whether the session has not expired at now.
func (s *Session) ValidAt(now time.Time) bool {
	return now.Before(s.ExpiresAt)
}
