package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"markers-api/internal/audit"
	auditdomain "markers-api/internal/audit/domain"
	"markers-api/internal/platform/apperr"
	"markers-api/internal/security"
	sessiondomain "markers-api/internal/session/domain"
	"markers-api/internal/telemetry"
	eventdomain "markers-api/internal/telemetry/domain"
	userdomain "markers-api/internal/user/domain"
	userrepo "markers-api/internal/user/repository"
)

// Sentinel errors for the auth service. Returned errors wrap them with an apperr code, so both
// errors.Is and apperr.Status work.
var (
	ErrEmailAlreadyRegistered = errors.New("email already registered")
	ErrInvalidCredentials     = errors.New("invalid credentials")
	ErrPasswordMismatch       = errors.New("passwords do not match")
)

const auditResource = "session"

// timingHash is compared against when the email is unknown so both login failures cost one bcrypt run.
const timingHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// RegisterInput is the validated registration payload.
type RegisterInput struct {
	Name            string
	Email           string
	Password        string
	ConfirmPassword string
}

// AuthResult holds the outcome of Register and Login.
type AuthResult struct {
	User      *userdomain.User
	Token     string
	ExpiresAt time.Time
}

// UserRepo is the minimal user repository needed by the auth service.
type UserRepo interface {
	GetByID(ctx context.Context, id string) (*userdomain.User, error)
	GetByEmail(ctx context.Context, email string) (*userdomain.User, error)
	Create(ctx context.Context, u *userdomain.User) error
}

// SessionStore is the session persistence the auth service drives.
type SessionStore interface {
	Create(ctx context.Context, s *sessiondomain.Session) error
	FindValid(ctx context.Context, tokenHash string) (*sessiondomain.Session, error)
	Delete(ctx context.Context, tokenHash string) error
	DeleteAllForUser(ctx context.Context, userID string) error
	DeleteExpired(ctx context.Context) (int64, error)
}

// PasswordHasher hashes and checks passwords.
type PasswordHasher interface {
	Hash(password []byte) (string, error)
	Verify(hash string, password []byte) bool
}

// TokenIssuer issues and decodes signed bearer tokens.
type TokenIssuer interface {
	Issue(userID string) (token string, expiresAt time.Time, err error)
	Decode(token string) (userID string, err error)
}

// AuthService implements register, login, logout and token verification over server-side sessions.
type AuthService struct {
	users      UserRepo
	sessions   SessionStore
	hasher     PasswordHasher
	tokens     TokenIssuer
	sessionTTL time.Duration
	events     telemetry.EventEmitter
	audit      audit.AuditLogger
	now        func() time.Time
}

// Option customizes an AuthService.
type Option func(*AuthService)

// WithEventEmitter sends auth events to em.
func WithEventEmitter(em telemetry.EventEmitter) Option {
	return func(s *AuthService) { s.events = em }
}

// WithAuditLogger records auth actions to l.
func WithAuditLogger(l audit.AuditLogger) Option {
	return func(s *AuthService) { s.audit = l }
}

// WithClock overrides the time source (tests).
func WithClock(now func() time.Time) Option {
	return func(s *AuthService) { s.now = now }
}

// NewAuthService returns an AuthService with the given dependencies. sessionTTL is how long a
// session row stays valid; it normally matches the token lifetime.
func NewAuthService(users UserRepo, sessions SessionStore, hasher PasswordHasher, tokens TokenIssuer, sessionTTL time.Duration, opts ...Option) *AuthService {
	s := &AuthService{
		users:      users,
		sessions:   sessions,
		hasher:     hasher,
		tokens:     tokens,
		sessionTTL: sessionTTL,
		events:     telemetry.Nop{},
		audit:      audit.Nop{},
		now:        func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates a user and signs them in. The email is stored exactly as given.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	if in.Password != in.ConfirmPassword {
		return nil, apperr.Wrap(ErrPasswordMismatch, apperr.CodeInvalidInput, "confirmPassword", "Passwords do not match")
	}
	existing, err := s.users.GetByEmail(ctx, in.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, emailTaken()
	}
	hashed, err := s.hasher.Hash([]byte(in.Password))
	if err != nil {
		return nil, err
	}
	now := s.now()
	user := &userdomain.User{
		ID:           uuid.New().String(),
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hashed,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := user.Validate(); err != nil {
		return nil, err
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, userrepo.ErrEmailTaken) {
			return nil, emailTaken()
		}
		return nil, err
	}
	res, err := s.startSession(ctx, user)
	if err != nil {
		return nil, err
	}
	s.record(ctx, user.ID, auditdomain.ActionRegister, eventdomain.TypeUserRegistered, nil)
	return res, nil
}

// Login checks the credentials, drops the user's previous sessions and starts a new one.
// An unknown email and a wrong password fail identically.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		s.hasher.Verify(timingHash, []byte(password))
		s.record(ctx, "", auditdomain.ActionLoginFailure, eventdomain.TypeUserLoginFailed, map[string]string{"reason": "unknown_email"})
		return nil, invalidCredentials()
	}
	if !s.hasher.Verify(user.PasswordHash, []byte(password)) {
		s.record(ctx, user.ID, auditdomain.ActionLoginFailure, eventdomain.TypeUserLoginFailed, map[string]string{"reason": "bad_password"})
		return nil, invalidCredentials()
	}
	res, err := s.startSession(ctx, user)
	if err != nil {
		return nil, err
	}
	s.record(ctx, user.ID, auditdomain.ActionLogin, eventdomain.TypeUserLoggedIn, nil)
	return res, nil
}

// Logout deletes the session for token. Logging out an unknown or already revoked token succeeds.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if err := s.sessions.Delete(ctx, security.HashToken(token)); err != nil {
		return err
	}
	userID, _ := s.tokens.Decode(token)
	s.record(ctx, userID, auditdomain.ActionLogout, eventdomain.TypeUserLoggedOut, nil)
	return nil
}

// Verify resolves token to a user id. ok is false when the token does not decode, has no live
// session whose stored digest matches it, or belongs to a different user than its session. err is
// set only for storage failures.
func (s *AuthService) Verify(ctx context.Context, token string) (userID string, ok bool, err error) {
	userID, err = s.tokens.Decode(token)
	if err != nil {
		return "", false, nil
	}
	sess, err := s.sessions.FindValid(ctx, security.HashToken(token))
	if err != nil {
		return "", false, err
	}
	if sess == nil || sess.UserID != userID || !security.TokenHashEqual(token, sess.TokenHash) {
		return "", false, nil
	}
	return userID, true, nil
}

// GetUser returns the user for id, or nil when absent.
func (s *AuthService) GetUser(ctx context.Context, userID string) (*userdomain.User, error) {
	return s.users.GetByID(ctx, userID)
}

// CleanupExpiredSessions removes expired sessions and returns how many were deleted.
func (s *AuthService) CleanupExpiredSessions(ctx context.Context) (int64, error) {
	return s.sessions.DeleteExpired(ctx)
}

// startSession enforces one active session per user: prior sessions are dropped before the new
// token is persisted.
func (s *AuthService) startSession(ctx context.Context, user *userdomain.User) (*AuthResult, error) {
	if err := s.sessions.DeleteAllForUser(ctx, user.ID); err != nil {
		return nil, err
	}
	token, tokenExp, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	sess := &sessiondomain.Session{
		ID:        uuid.New().String(),
		UserID:    user.ID,
		TokenHash: security.HashToken(token),
		ExpiresAt: now.Add(s.sessionTTL),
		CreatedAt: now,
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, err
	}
	expiresAt := sess.ExpiresAt
	if tokenExp.Before(expiresAt) {
		expiresAt = tokenExp
	}
	return &AuthResult{User: user, Token: token, ExpiresAt: expiresAt}, nil
}

func (s *AuthService) record(ctx context.Context, userID, action, eventType string, meta map[string]string) {
	metadata := ""
	if len(meta) > 0 {
		if b, err := json.Marshal(meta); err == nil {
			metadata = string(b)
		}
	}
	s.audit.LogEvent(ctx, userID, action, auditResource, metadata)
	ev := eventdomain.New(eventType, userID)
	ev.Metadata = meta
	telemetry.EmitAsync(ctx, s.events, ev)
}

func emailTaken() error {
	return apperr.Wrap(ErrEmailAlreadyRegistered, apperr.CodeConflict, "email", "User with this email already exists")
}

func invalidCredentials() error {
	return apperr.Wrap(ErrInvalidCredentials, apperr.CodeInvalidCredentials, "", "Invalid credentials")
}
