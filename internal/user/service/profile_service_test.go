package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"markers-api/internal/platform/apperr"
	"markers-api/internal/platform/pagination"
	"markers-api/internal/security"
	"markers-api/internal/user/domain"
)

type memUserRepo struct {
	mu sync.Mutex
	m  map[string]*domain.User
}

func (r *memUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.m[id]
	if !ok {
		return nil, nil
	}
	c := *u
	return &c, nil
}

func (r *memUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.m {
		if u.Email == email {
			c := *u
			return &c, nil
		}
	}
	return nil, nil
}

func (r *memUserRepo) sorted() []*domain.User {
	out := make([]*domain.User, 0, len(r.m))
	for _, u := range r.m {
		c := *u
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (r *memUserRepo) List(ctx context.Context, limit, offset int) ([]*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := r.sorted()
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (r *memUserRepo) Count(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.m)), nil
}

func (r *memUserRepo) Create(ctx context.Context, u *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *u
	r.m[u.ID] = &c
	return nil
}

func (r *memUserRepo) Update(ctx context.Context, u *domain.User) error {
	return r.Create(ctx, u)
}

func (r *memUserRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.m, id)
	return nil
}

type revoker struct {
	calls []string
	err   error
}

func (r *revoker) DeleteAllForUser(ctx context.Context, userID string) error {
	r.calls = append(r.calls, userID)
	return r.err
}

func newService(t *testing.T) (*ProfileService, *memUserRepo, *revoker) {
	t.Helper()
	hasher := security.NewHasher(4)
	hash, err := hasher.Hash([]byte("password123"))
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	repo := &memUserRepo{m: map[string]*domain.User{
		"u1": {ID: "u1", Name: "John Doe", Email: "john@example.com", PasswordHash: hash, CreatedAt: base, UpdatedAt: base},
		"u2": {ID: "u2", Name: "Jane Smith", Email: "jane@example.com", PasswordHash: hash, CreatedAt: base.Add(time.Hour), UpdatedAt: base},
		"u3": {ID: "u3", Name: "Third", Email: "third@example.com", PasswordHash: hash, CreatedAt: base.Add(2 * time.Hour), UpdatedAt: base},
	}}
	rv := &revoker{}
	return NewProfileService(repo, rv, hasher, nil, nil, nil), repo, rv
}

func strp(s string) *string { return &s }

func TestList_Pagination(t *testing.T) {
	svc, _, _ := newService(t)
	items, meta, err := svc.List(context.Background(), pagination.New(1, 2))
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 2 || meta.Total != 3 || meta.TotalPages != 2 || meta.Page != 1 || meta.Limit != 2 {
		t.Errorf("items=%d meta=%+v", len(items), meta)
	}
	if items[0].ID != "u1" {
		t.Errorf("oldest first: got %s", items[0].ID)
	}
}

func TestGet_NotFound(t *testing.T) {
	svc, _, _ := newService(t)
	_, err := svc.Get(context.Background(), "missing")
	if apperr.Status(err) != 404 || apperr.Message(err) != "User not found" {
		t.Errorf("err = %v", err)
	}
}

func TestUpdateProfile(t *testing.T) {
	svc, repo, _ := newService(t)
	u, err := svc.UpdateProfile(context.Background(), "u1", ProfilePatch{Avatar: strp("https://example.com/a.png")})
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if u.Name != "John Doe" || u.Avatar == nil || *u.Avatar != "https://example.com/a.png" {
		t.Errorf("user = %+v", u)
	}
	if stored := repo.m["u1"]; stored.Avatar == nil || !stored.UpdatedAt.After(stored.CreatedAt) {
		t.Errorf("stored = %+v", stored)
	}
}

func TestChangePassword(t *testing.T) {
	ctx := context.Background()

	t.Run("wrong current password", func(t *testing.T) {
		svc, _, _ := newService(t)
		err := svc.ChangePassword(ctx, "u1", "nope", "newpass1", "newpass1")
		if !errors.Is(err, ErrWrongPassword) || apperr.Status(err) != 400 || apperr.Field(err) != "currentPassword" {
			t.Errorf("err = %v", err)
		}
	})

	t.Run("mismatch", func(t *testing.T) {
		svc, _, _ := newService(t)
		err := svc.ChangePassword(ctx, "u1", "password123", "newpass1", "newpass2")
		if !errors.Is(err, ErrNewPasswordMismatch) || apperr.Field(err) != "confirmPassword" {
			t.Errorf("err = %v", err)
		}
	})

	t.Run("success", func(t *testing.T) {
		svc, repo, _ := newService(t)
		if err := svc.ChangePassword(ctx, "u1", "password123", "newpass1", "newpass1"); err != nil {
			t.Fatalf("ChangePassword: %v", err)
		}
		h := security.NewHasher(4)
		if !h.Verify(repo.m["u1"].PasswordHash, []byte("newpass1")) {
			t.Error("new password should verify")
		}
	})
}

func TestDeleteAccount(t *testing.T) {
	svc, repo, rv := newService(t)
	if err := svc.DeleteAccount(context.Background(), "u2"); err != nil {
		t.Fatalf("DeleteAccount: %v", err)
	}
	if _, ok := repo.m["u2"]; ok {
		t.Error("user should be deleted")
	}
	if len(rv.calls) != 1 || rv.calls[0] != "u2" {
		t.Errorf("revoker calls = %v", rv.calls)
	}
}

func TestDeleteAccount_SessionFailureKeepsUser(t *testing.T) {
	svc, repo, rv := newService(t)
	rv.err = errors.New("redis down")
	if err := svc.DeleteAccount(context.Background(), "u1"); err == nil {
		t.Fatal("expected error")
	}
	if _, ok := repo.m["u1"]; !ok {
		t.Error("user must survive when sessions could not be revoked")
	}
}

func TestDeleteAccount_Missing(t *testing.T) {
	svc, _, _ := newService(t)
	if err := svc.DeleteAccount(context.Background(), "ghost"); apperr.Status(err) != 404 {
		t.Errorf("status = %d, want 404", apperr.Status(err))
	}
}
