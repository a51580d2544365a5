package domain

import "time"

// Audit actions recorded by the auth flows. Route-derived actions (create, update, delete) come
// from audit.ParseRoute.
const (
	ActionRegister       = "register"
	ActionLogin          = "login"
	ActionLoginFailure   = "login_failure"
	ActionLogout         = "logout"
	ActionPasswordChange = "password_change"
	ActionAccountDelete  = "account_delete"
)

// AuditLog represents an audit event. UserID is empty for anonymous actors.
type AuditLog struct {
	ID        string
	UserID    string
	Action    string
	Resource  string
	IP        string
	Metadata  string
	CreatedAt time.Time
}
