package service

import (
	"context"
	"errors"
	"time"

	"markers-api/internal/audit"
	auditdomain "markers-api/internal/audit/domain"
	"markers-api/internal/platform/apperr"
	"markers-api/internal/platform/ownership"
	"markers-api/internal/platform/pagination"
	"markers-api/internal/telemetry"
	eventdomain "markers-api/internal/telemetry/domain"
	"markers-api/internal/user/domain"
	"markers-api/internal/user/repository"
)

// Sentinel errors for profile operations, wrapped with apperr codes.
var (
	ErrWrongPassword       = errors.New("current password is incorrect")
	ErrNewPasswordMismatch = errors.New("new passwords do not match")
)

// ProfilePatch holds the profile fields to change; nil leaves a field untouched.
type ProfilePatch struct {
	Name   *string
	Avatar *string
}

// SessionRevoker drops every session of a user.
type SessionRevoker interface {
	DeleteAllForUser(ctx context.Context, userID string) error
}

// PasswordHasher hashes and checks passwords.
type PasswordHasher interface {
	Hash(password []byte) (string, error)
	Verify(hash string, password []byte) bool
}

// ProfileService implements user listing and self-service account management.
type ProfileService struct {
	users    repository.Repository
	sessions SessionRevoker
	hasher   PasswordHasher
	authz    ownership.Authorizer
	events   telemetry.EventEmitter
	audit    audit.AuditLogger
	now      func() time.Time
}

// NewProfileService returns a ProfileService. authz, events and auditLog may be nil.
func NewProfileService(users repository.Repository, sessions SessionRevoker, hasher PasswordHasher, authz ownership.Authorizer, events telemetry.EventEmitter, auditLog audit.AuditLogger) *ProfileService {
	if events == nil {
		events = telemetry.Nop{}
	}
	if auditLog == nil {
		auditLog = audit.Nop{}
	}
	return &ProfileService{
		users:    users,
		sessions: sessions,
		hasher:   hasher,
		authz:    authz,
		events:   events,
		audit:    auditLog,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// List returns a page of users, oldest first.
func (s *ProfileService) List(ctx context.Context, page pagination.Page) ([]*domain.User, pagination.Meta, error) {
	total, err := s.users.Count(ctx)
	if err != nil {
		return nil, pagination.Meta{}, err
	}
	items, err := s.users.List(ctx, page.Limit, page.Offset())
	if err != nil {
		return nil, pagination.Meta{}, err
	}
	return items, page.MetaFor(total), nil
}

// Get returns the user for id. A missing user is NotFound.
func (s *ProfileService) Get(ctx context.Context, id string) (*domain.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, apperr.NotFound("User")
	}
	return u, nil
}

// UpdateProfile changes the caller's name and/or avatar.
func (s *ProfileService) UpdateProfile(ctx context.Context, userID string, patch ProfilePatch) (*domain.User, error) {
	u, err := s.requireSelf(ctx, userID, ownership.ActionUpdate)
	if err != nil {
		return nil, err
	}
	if patch.Name != nil {
		u.Name = *patch.Name
	}
	if patch.Avatar != nil {
		u.Avatar = patch.Avatar
	}
	u.UpdatedAt = s.now()
	if err := s.users.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// ChangePassword replaces the caller's password after checking the current one. Existing
// sessions stay valid.
func (s *ProfileService) ChangePassword(ctx context.Context, userID, current, next, confirm string) error {
	u, err := s.requireSelf(ctx, userID, ownership.ActionUpdate)
	if err != nil {
		return err
	}
	if !s.hasher.Verify(u.PasswordHash, []byte(current)) {
		return apperr.Wrap(ErrWrongPassword, apperr.CodeInvalidInput, "currentPassword", "Current password is incorrect")
	}
	if next != confirm {
		return apperr.Wrap(ErrNewPasswordMismatch, apperr.CodeInvalidInput, "confirmPassword", "New passwords do not match")
	}
	hashed, err := s.hasher.Hash([]byte(next))
	if err != nil {
		return err
	}
	u.PasswordHash = hashed
	u.UpdatedAt = s.now()
	if err := s.users.Update(ctx, u); err != nil {
		return err
	}
	s.record(ctx, userID, auditdomain.ActionPasswordChange, eventdomain.TypeUserPasswordChanged)
	return nil
}

// DeleteAccount removes the caller. Sessions are dropped through the session store first so
// non-relational backends lose them too; markers cascade in the database.
func (s *ProfileService) DeleteAccount(ctx context.Context, userID string) error {
	if _, err := s.requireSelf(ctx, userID, ownership.ActionDelete); err != nil {
		return err
	}
	if err := s.sessions.DeleteAllForUser(ctx, userID); err != nil {
		return err
	}
	if err := s.users.Delete(ctx, userID); err != nil {
		return err
	}
	s.record(ctx, userID, auditdomain.ActionAccountDelete, eventdomain.TypeUserDeleted)
	return nil
}

func (s *ProfileService) requireSelf(ctx context.Context, userID, action string) (*domain.User, error) {
	target := ownership.Target{Type: "user", ID: userID, Name: "User"}
	return ownership.Require(ctx, s.authz, userID, action, target, func(ctx context.Context) (*domain.User, bool, error) {
		u, err := s.users.GetByID(ctx, userID)
		return u, u != nil, err
	})
}

func (s *ProfileService) record(ctx context.Context, userID, action, eventType string) {
	s.audit.LogEvent(ctx, userID, action, "user", "")
	telemetry.EmitAsync(ctx, s.events, eventdomain.New(eventType, userID))
}
