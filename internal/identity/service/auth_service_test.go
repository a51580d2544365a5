package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	auditdomain "markers-api/internal/audit/domain"
	"markers-api/internal/platform/apperr"
	"markers-api/internal/security"
	sessiondomain "markers-api/internal/session/domain"
	eventdomain "markers-api/internal/telemetry/domain"
	userdomain "markers-api/internal/user/domain"
	userrepo "markers-api/internal/user/repository"
)

type memUserRepo struct {
	mu        sync.Mutex
	byID      map[string]*userdomain.User
	byEmail   map[string]*userdomain.User
	createErr error
	getErr    error
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{byID: map[string]*userdomain.User{}, byEmail: map[string]*userdomain.User{}}
}

func (r *memUserRepo) GetByID(ctx context.Context, id string) (*userdomain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byID[id], r.getErr
}

func (r *memUserRepo) GetByEmail(ctx context.Context, email string) (*userdomain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byEmail[email], r.getErr
}

func (r *memUserRepo) Create(ctx context.Context, u *userdomain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	if _, ok := r.byEmail[u.Email]; ok {
		return userrepo.ErrEmailTaken
	}
	r.byID[u.ID] = u
	r.byEmail[u.Email] = u
	return nil
}

type memSessionStore struct {
	mu      sync.Mutex
	m       map[string]*sessiondomain.Session
	now     func() time.Time
	findErr error
}

func newMemSessionStore(now func() time.Time) *memSessionStore {
	return &memSessionStore{m: map[string]*sessiondomain.Session{}, now: now}
}

func (r *memSessionStore) Create(ctx context.Context, s *sessiondomain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s2 := *s
	r.m[s.TokenHash] = &s2
	return nil
}

func (r *memSessionStore) FindValid(ctx context.Context, tokenHash string) (*sessiondomain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	s, ok := r.m[tokenHash]
	if !ok || !s.ValidAt(r.now()) {
		return nil, nil
	}
	return s, nil
}

func (r *memSessionStore) Delete(ctx context.Context, tokenHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.m, tokenHash)
	return nil
}

func (r *memSessionStore) DeleteAllForUser(ctx context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for h, s := range r.m {
		if s.UserID == userID {
			delete(r.m, h)
		}
	}
	return nil
}

func (r *memSessionStore) DeleteExpired(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for h, s := range r.m {
		if !s.ValidAt(r.now()) {
			delete(r.m, h)
			n++
		}
	}
	return n, nil
}

func (r *memSessionStore) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.m)
}

type auditEntry struct {
	userID, action, resource, metadata string
}

type memAudit struct {
	mu      sync.Mutex
	entries []auditEntry
}

func (a *memAudit) LogEvent(ctx context.Context, userID, action, resource, metadata string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, auditEntry{userID, action, resource, metadata})
}

func (a *memAudit) actions() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, len(a.entries))
	for i, e := range a.entries {
		out[i] = e.action
	}
	return out
}

type chanEmitter chan *eventdomain.Event

func (c chanEmitter) Emit(ctx context.Context, ev *eventdomain.Event) error {
	c <- ev
	return nil
}

type fixture struct {
	svc      *AuthService
	users    *memUserRepo
	sessions *memSessionStore
	audit    *memAudit
	events   chanEmitter
	clock    *time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	tokens, err := security.NewTestHMACTokenProvider()
	if err != nil {
		t.Fatalf("token provider: %v", err)
	}
	now := time.Now().UTC()
	clock := &now
	nowFn := func() time.Time { return *clock }
	f := &fixture{
		users:    newMemUserRepo(),
		sessions: newMemSessionStore(nowFn),
		audit:    &memAudit{},
		events:   make(chanEmitter, 16),
		clock:    clock,
	}
	f.svc = NewAuthService(f.users, f.sessions, security.NewHasher(4), tokens, 7*24*time.Hour,
		WithAuditLogger(f.audit),
		WithEventEmitter(f.events),
		WithClock(nowFn),
	)
	return f
}

func (f *fixture) nextEvent(t *testing.T) *eventdomain.Event {
	t.Helper()
	select {
	case ev := <-f.events:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func johnInput() RegisterInput {
	return RegisterInput{Name: "John Doe", Email: "john@example.com", Password: "password123", ConfirmPassword: "password123"}
}

func TestRegister_ThenVerifyResolvesSameUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.Register(ctx, johnInput())
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if res.User.ID == "" || res.Token == "" {
		t.Fatalf("result = %+v", res)
	}
	if res.User.PasswordHash == "password123" {
		t.Error("password must be stored hashed")
	}
	userID, ok, err := f.svc.Verify(ctx, res.Token)
	if err != nil || !ok {
		t.Fatalf("Verify: ok=%v err=%v", ok, err)
	}
	if userID != res.User.ID {
		t.Errorf("Verify userID = %q, want %q", userID, res.User.ID)
	}
	if got := f.audit.actions(); len(got) != 1 || got[0] != auditdomain.ActionRegister {
		t.Errorf("audit actions = %v", got)
	}
	if ev := f.nextEvent(t); ev.Type != eventdomain.TypeUserRegistered || ev.UserID != res.User.ID {
		t.Errorf("event = %+v", ev)
	}
}

func TestRegister_PasswordMismatch(t *testing.T) {
	f := newFixture(t)
	in := johnInput()
	in.ConfirmPassword = "different1"

	_, err := f.svc.Register(context.Background(), in)
	if !errors.Is(err, ErrPasswordMismatch) {
		t.Fatalf("err = %v, want ErrPasswordMismatch", err)
	}
	if apperr.Status(err) != 400 || apperr.Field(err) != "confirmPassword" {
		t.Errorf("status=%d field=%q", apperr.Status(err), apperr.Field(err))
	}
	if len(f.users.byID) != 0 {
		t.Error("no user should be created")
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.svc.Register(ctx, johnInput()); err != nil {
		t.Fatalf("first Register: %v", err)
	}
	_, err := f.svc.Register(ctx, johnInput())
	if !errors.Is(err, ErrEmailAlreadyRegistered) {
		t.Fatalf("err = %v, want ErrEmailAlreadyRegistered", err)
	}
	if apperr.Status(err) != 409 || apperr.Field(err) != "email" {
		t.Errorf("status=%d field=%q", apperr.Status(err), apperr.Field(err))
	}
	if apperr.Message(err) != "User with this email already exists" {
		t.Errorf("message = %q", apperr.Message(err))
	}
}

func TestRegister_UniqueViolationRaceMapsToConflict(t *testing.T) {
	f := newFixture(t)
	f.users.createErr = userrepo.ErrEmailTaken

	_, err := f.svc.Register(context.Background(), johnInput())
	if apperr.Status(err) != 409 {
		t.Fatalf("status = %d, want 409 (err %v)", apperr.Status(err), err)
	}
}

func TestRegister_EmailIsCaseSensitive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.svc.Register(ctx, johnInput()); err != nil {
		t.Fatalf("Register: %v", err)
	}
	in := johnInput()
	in.Email = "John@Example.com"
	if _, err := f.svc.Register(ctx, in); err != nil {
		t.Fatalf("differently cased email should register: %v", err)
	}
}

func TestLogin_ReplacesPreviousSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	reg, err := f.svc.Register(ctx, johnInput())
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	login, err := f.svc.Login(ctx, "john@example.com", "password123")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if login.Token == reg.Token {
		t.Error("login token must differ from registration token")
	}
	if _, ok, _ := f.svc.Verify(ctx, reg.Token); ok {
		t.Error("registration token should be revoked by login")
	}
	if id, ok, _ := f.svc.Verify(ctx, login.Token); !ok || id != reg.User.ID {
		t.Error("login token should verify")
	}
	if f.sessions.count() != 1 {
		t.Errorf("sessions = %d, want 1", f.sessions.count())
	}
}

func TestLogin_FailuresAreIndistinguishable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.svc.Register(ctx, johnInput()); err != nil {
		t.Fatalf("Register: %v", err)
	}

	_, wrongPw := f.svc.Login(ctx, "john@example.com", "wrongpassword")
	_, unknown := f.svc.Login(ctx, "nobody@example.com", "password123")

	for name, err := range map[string]error{"wrong password": wrongPw, "unknown email": unknown} {
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("%s: err = %v, want ErrInvalidCredentials", name, err)
		}
		if apperr.Status(err) != 401 {
			t.Errorf("%s: status = %d", name, apperr.Status(err))
		}
	}
	if apperr.Message(wrongPw) != apperr.Message(unknown) {
		t.Errorf("messages differ: %q vs %q", apperr.Message(wrongPw), apperr.Message(unknown))
	}
	actions := f.audit.actions()
	if len(actions) != 3 || actions[1] != auditdomain.ActionLoginFailure || actions[2] != auditdomain.ActionLoginFailure {
		t.Errorf("audit actions = %v", actions)
	}
}

func TestLogout_RevokesWhileSignatureStillValid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res, err := f.svc.Register(ctx, johnInput())
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	if err := f.svc.Logout(ctx, res.Token); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if _, ok, err := f.svc.Verify(ctx, res.Token); ok || err != nil {
		t.Errorf("Verify after logout: ok=%v err=%v", ok, err)
	}
	if err := f.svc.Logout(ctx, res.Token); err != nil {
		t.Errorf("second Logout should be a no-op, got %v", err)
	}
}

func TestVerify_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res, err := f.svc.Register(ctx, johnInput())
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	if _, ok, err := f.svc.Verify(ctx, "not-a-token"); ok || err != nil {
		t.Errorf("garbage token: ok=%v err=%v", ok, err)
	}

	*f.clock = f.clock.Add(8 * 24 * time.Hour)
	if _, ok, err := f.svc.Verify(ctx, res.Token); ok || err != nil {
		t.Errorf("expired session: ok=%v err=%v", ok, err)
	}
}

func TestVerify_RejectsSessionWithForeignDigest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res, err := f.svc.Register(ctx, johnInput())
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	f.sessions.mu.Lock()
	f.sessions.m[security.HashToken(res.Token)].TokenHash = security.HashToken("someone-else")
	f.sessions.mu.Unlock()

	if _, ok, err := f.svc.Verify(ctx, res.Token); ok || err != nil {
		t.Errorf("ok=%v err=%v, want rejection", ok, err)
	}
}

func TestVerify_StorageFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res, err := f.svc.Register(ctx, johnInput())
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	f.sessions.findErr = errors.New("db down")

	if _, ok, err := f.svc.Verify(ctx, res.Token); ok || err == nil {
		t.Errorf("ok=%v err=%v, want storage error", ok, err)
	}
}

func TestGetUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res, err := f.svc.Register(ctx, johnInput())
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	u, err := f.svc.GetUser(ctx, res.User.ID)
	if err != nil || u == nil || u.Email != "john@example.com" {
		t.Errorf("GetUser = %+v, %v", u, err)
	}
	u, err = f.svc.GetUser(ctx, "missing")
	if err != nil || u != nil {
		t.Errorf("GetUser(missing) = %+v, %v", u, err)
	}
}

func TestCleanupExpiredSessions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.svc.Register(ctx, johnInput()); err != nil {
		t.Fatalf("Register: %v", err)
	}
	*f.clock = f.clock.Add(8 * 24 * time.Hour)

	n, err := f.svc.CleanupExpiredSessions(ctx)
	if err != nil || n != 1 {
		t.Errorf("CleanupExpiredSessions = %d, %v; want 1", n, err)
	}
}
