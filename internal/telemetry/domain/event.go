package domain

import "time"

// Event types emitted by the auth and account flows.
const (
	TypeUserRegistered      = "user.registered"
	TypeUserLoggedIn        = "user.logged_in"
	TypeUserLoginFailed     = "user.login_failed"
	TypeUserLoggedOut       = "user.logged_out"
	TypeUserDeleted         = "user.deleted"
	TypeUserPasswordChanged = "user.password_changed"
)

// Event is a single auth/account event. UserID is empty when the actor is unknown
// (e.g. a failed login for an unregistered email).
type Event struct {
	Type      string            `json:"type"`
	UserID    string            `json:"user_id,omitempty"`
	Source    string            `json:"source"`
	RequestID string            `json:"request_id,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// New returns an event of the given type stamped with the current UTC time.
func New(eventType, userID string) *Event {
	return &Event{
		Type:      eventType,
		UserID:    userID,
		Source:    "markers-api",
		CreatedAt: time.Now().UTC(),
	}
}
