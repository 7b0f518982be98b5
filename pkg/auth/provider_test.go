package auth

import (
	"context"
	"encoding/base64"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"tableflip.dev/wordsmith/pkg/backend"
	"tableflip.dev/wordsmith/pkg/store/storetest"
)

type fakeBackend struct {
	mu         sync.Mutex
	calls      []string
	session    *backend.Session
	loginErr   error
	refreshErr error
	verifyErr  error
	gotCode    string
	gotPass    string
}

func (f *fakeBackend) record(call string) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
}

func (f *fakeBackend) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeBackend) Login(_ context.Context, email, password string) (*backend.Session, error) {
	f.record("login")
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return f.session, nil
}

func (f *fakeBackend) Register(_ context.Context, email, password string) error {
	f.record("register")
	return nil
}

func (f *fakeBackend) VerifyEmail(_ context.Context, email, code string) error {
	f.record("verify")
	f.gotCode = code
	return f.verifyErr
}

func (f *fakeBackend) VerifyEmailAndLogin(_ context.Context, email, password, code string) (*backend.Session, error) {
	f.record("verify_and_login")
	f.gotCode, f.gotPass = code, password
	if f.verifyErr != nil {
		return nil, f.verifyErr
	}
	return f.session, nil
}

func (f *fakeBackend) Refresh(_ context.Context, refreshToken string) (*backend.Session, error) {
	f.record("refresh")
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	return &backend.Session{AccessToken: "refreshed", TokenType: "Bearer", ExpiresIn: 3600}, nil
}

type fakeScheduler struct {
	mu        sync.Mutex
	tasks     map[string]func()
	cancelled int
}

func (s *fakeScheduler) Every(name string, d time.Duration, fn func()) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tasks == nil {
		s.tasks = map[string]func(){}
	}
	s.tasks[name] = fn
	return func() {
		s.mu.Lock()
		delete(s.tasks, name)
		s.cancelled++
		s.mu.Unlock()
	}, nil
}

func (s *fakeScheduler) running(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tasks[name]
	return ok
}

type clock struct{ t time.Time }

func (c *clock) Now() time.Time { return c.t }

var start = time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)

func newProvider(st *storetest.Memory, be *fakeBackend, sched *fakeScheduler, c *clock) *Provider {
	return New(Config{
		Store:         st,
		Backend:       be,
		Scheduler:     sched,
		CheckInterval: time.Minute,
		Now:           c.Now,
		Logger:        zerolog.Nop(),
	})
}

func session() *backend.Session {
	return &backend.Session{AccessToken: "access", RefreshToken: "refresh", IDToken: "id", TokenType: "Bearer", ExpiresIn: 3600}
}

func TestCheckStatusEmptyStore(t *testing.T) {
	p := newProvider(storetest.NewMemory(StoreName), &fakeBackend{}, &fakeScheduler{}, &clock{start})
	if !p.State().Loading {
		t.Fatal("expected loading before CheckStatus")
	}
	st := p.CheckStatus(context.Background())
	if st.Authenticated || st.Loading {
		t.Fatalf("state = %+v, want logged out and loaded", st)
	}
}

func TestCheckStatusValidAndExpired(t *testing.T) {
	valid := &Tokens{AccessToken: "a", ExpiresAt: start.Add(time.Hour).UnixMilli(), UserEmail: "u@example.com"}
	st := storetest.NewMemory(StoreName).Seed(keyTokens, valid)
	sched := &fakeScheduler{}
	p := newProvider(st, &fakeBackend{}, sched, &clock{start})
	if s := p.CheckStatus(context.Background()); !s.Authenticated || s.UserEmail != "u@example.com" {
		t.Fatalf("state = %+v", s)
	}
	if !sched.running(expiryTask) {
		t.Fatal("expiry watch should run while authenticated")
	}

	expired := &Tokens{AccessToken: "a", ExpiresAt: start.Add(-time.Second).UnixMilli()}
	st = storetest.NewMemory(StoreName).Seed(keyTokens, expired)
	p = newProvider(st, &fakeBackend{}, &fakeScheduler{}, &clock{start})
	if s := p.CheckStatus(context.Background()); s.Authenticated {
		t.Fatalf("expired tokens should be logged out: %+v", s)
	}
	var left Tokens
	if st.SavedValue(keyTokens, &left) {
		t.Fatal("expired tokens should be removed from the store")
	}
}

func TestCheckStatusUnreadableStore(t *testing.T) {
	st := storetest.NewMemory(StoreName)
	st.GetErr = errors.New("corrupt")
	p := newProvider(st, &fakeBackend{}, &fakeScheduler{}, &clock{start})
	if s := p.CheckStatus(context.Background()); s.Authenticated || s.Loading {
		t.Fatalf("state = %+v", s)
	}
}

func TestLoginPersistsThenAuthenticates(t *testing.T) {
	st := storetest.NewMemory(StoreName)
	be := &fakeBackend{session: session()}
	var seenPersisted bool
	p := New(Config{
		Store:   st,
		Backend: be,
		Now:     func() time.Time { return start },
		Logger:  zerolog.Nop(),
		OnChange: func(s State) {
			if s.Authenticated {
				var tk Tokens
				seenPersisted = st.SavedValue(keyTokens, &tk)
			}
		},
	})

	if err := p.Login(context.Background(), "u@example.com", "secret"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if !seenPersisted {
		t.Fatal("tokens must be saved before the state turns authenticated")
	}
	s := p.State()
	if !s.Authenticated || s.Tokens.ExpiresAt != start.Add(time.Hour).UnixMilli() || s.UserEmail != "u@example.com" {
		t.Fatalf("state = %+v", s)
	}
}

func TestLoginSaveFailureDoesNotAuthenticate(t *testing.T) {
	st := storetest.NewMemory(StoreName)
	st.SaveErr = errors.New("disk full")
	p := newProvider(st, &fakeBackend{session: session()}, &fakeScheduler{}, &clock{start})
	err := p.Login(context.Background(), "u@example.com", "secret")
	if be, ok := backend.ParseError(err); !ok || be.Type != backend.StoreError {
		t.Fatalf("err = %v, want store_error", err)
	}
	if p.State().Authenticated {
		t.Fatal("must not authenticate when tokens were not saved")
	}
}

func TestLoginValidationRejectsBeforeBackend(t *testing.T) {
	be := &fakeBackend{session: session()}
	p := newProvider(storetest.NewMemory(StoreName), be, &fakeScheduler{}, &clock{start})
	err := p.Login(context.Background(), "not-an-email", "")
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("err = %v, want *ValidationError", err)
	}
	if len(ve.Fields) != 2 {
		t.Fatalf("fields = %+v", ve.Fields)
	}
	if len(be.Calls()) != 0 {
		t.Fatalf("backend called: %v", be.Calls())
	}
}

func TestLoginBackendError(t *testing.T) {
	be := &fakeBackend{loginErr: backend.NewError(backend.APIError, "bad password")}
	p := newProvider(storetest.NewMemory(StoreName), be, &fakeScheduler{}, &clock{start})
	if err := p.Login(context.Background(), "u@example.com", "x"); err == nil {
		t.Fatal("expected error")
	}
	if p.State().Authenticated {
		t.Fatal("should stay logged out")
	}
}

func TestLogoutClearsStoreFirst(t *testing.T) {
	st := storetest.NewMemory(StoreName)
	sched := &fakeScheduler{}
	p := New(Config{Store: st, Backend: &fakeBackend{session: session()}, Scheduler: sched, Now: func() time.Time { return start }, Logger: zerolog.Nop()})
	if err := p.Login(context.Background(), "u@example.com", "x"); err != nil {
		t.Fatalf("login: %v", err)
	}

	var storeClearedFirst bool
	p.onChange = func(s State) {
		if !s.Authenticated {
			var tk Tokens
			storeClearedFirst = !st.SavedValue(keyTokens, &tk)
		}
	}
	if err := p.Logout(context.Background()); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if !storeClearedFirst {
		t.Fatal("store must be cleared before memory")
	}
	if sched.running(expiryTask) {
		t.Fatal("expiry watch should stop on logout")
	}
}

func TestLogoutClearsMemoryWhenStoreFails(t *testing.T) {
	st := storetest.NewMemory(StoreName)
	p := newProvider(st, &fakeBackend{session: session()}, &fakeScheduler{}, &clock{start})
	if err := p.Login(context.Background(), "u@example.com", "x"); err != nil {
		t.Fatalf("login: %v", err)
	}
	st.SetSaveErr(errors.New("read-only"))
	if err := p.Logout(context.Background()); err == nil {
		t.Fatal("expected store error")
	}
	if p.State().Authenticated {
		t.Fatal("memory must be cleared even if the store fails")
	}
}

func TestExpiryRefreshes(t *testing.T) {
	c := &clock{start}
	be := &fakeBackend{session: session()}
	sched := &fakeScheduler{}
	p := newProvider(storetest.NewMemory(StoreName), be, sched, c)
	if err := p.Login(context.Background(), "u@example.com", "x"); err != nil {
		t.Fatalf("login: %v", err)
	}

	c.t = start.Add(30 * time.Minute)
	p.CheckExpiry(context.Background())
	if got := be.Calls(); len(got) != 1 {
		t.Fatalf("refresh before expiry: calls %v", got)
	}

	c.t = start.Add(2 * time.Hour)
	sched.tasks[expiryTask]()
	s := p.State()
	if !s.Authenticated || s.Tokens.AccessToken != "refreshed" || s.Tokens.RefreshToken != "refresh" {
		t.Fatalf("state after refresh = %+v", s)
	}
	if s.UserEmail != "u@example.com" {
		t.Fatalf("email lost on refresh: %q", s.UserEmail)
	}
}

func TestRefreshFailureLogsOut(t *testing.T) {
	c := &clock{start}
	be := &fakeBackend{session: session(), refreshErr: errors.New("revoked")}
	st := storetest.NewMemory(StoreName)
	p := newProvider(st, be, &fakeScheduler{}, c)
	if err := p.Login(context.Background(), "u@example.com", "x"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if err := p.Refresh(context.Background()); err == nil {
		t.Fatal("expected refresh error")
	}
	if p.State().Authenticated {
		t.Fatal("refresh failure must log out")
	}
	var tk Tokens
	if st.SavedValue(keyTokens, &tk) {
		t.Fatal("tokens must be removed")
	}
}

func TestRefreshWithoutRefreshTokenLogsOut(t *testing.T) {
	be := &fakeBackend{session: &backend.Session{AccessToken: "a", ExpiresIn: 60}}
	p := newProvider(storetest.NewMemory(StoreName), be, &fakeScheduler{}, &clock{start})
	if err := p.Login(context.Background(), "u@example.com", "x"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if err := p.Refresh(context.Background()); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("err = %v", err)
	}
	if p.State().Authenticated {
		t.Fatal("expected logout")
	}
}

func TestRegisterAndVerify(t *testing.T) {
	ctx := context.Background()
	st := storetest.NewMemory(StoreName)
	be := &fakeBackend{session: session()}
	p := newProvider(st, be, &fakeScheduler{}, &clock{start})

	if err := p.VerifyEmail(ctx, "123456"); !errors.Is(err, ErrNoPendingEmail) {
		t.Fatalf("verify without sign up: %v", err)
	}
	if err := p.Register(ctx, "new@example.com", "Passw0rd!", "Passw0rd!"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if email, ok := p.PendingEmail(); !ok || email != "new@example.com" {
		t.Fatalf("pending email = %q, %v", email, ok)
	}
	var encoded string
	if !st.SavedValue(keyTempPassword, &encoded) {
		t.Fatal("temp password not saved")
	}
	if raw, _ := base64.StdEncoding.DecodeString(encoded); string(raw) != "Passw0rd!" {
		t.Fatalf("temp password = %q", raw)
	}

	if err := p.VerifyEmailAndLogin(ctx, "654321"); err != nil {
		t.Fatalf("verify and login: %v", err)
	}
	if be.gotPass != "Passw0rd!" || be.gotCode != "654321" {
		t.Fatalf("backend got pass %q code %q", be.gotPass, be.gotCode)
	}
	if !p.State().Authenticated {
		t.Fatal("expected authenticated")
	}
	if _, ok := p.PendingEmail(); ok {
		t.Fatal("pending email should be cleared")
	}
}

func TestVerifyEmailClearsPending(t *testing.T) {
	st := storetest.NewMemory(StoreName).Seed(keyPendingEmail, "new@example.com")
	be := &fakeBackend{}
	p := newProvider(st, be, &fakeScheduler{}, &clock{start})
	if err := p.VerifyEmail(context.Background(), "12ab"); err == nil {
		t.Fatal("expected validation error for bad code")
	}
	if err := p.VerifyEmail(context.Background(), "123456"); err != nil {
		t.Fatalf("verify: %v", err)
	}
	if _, ok := p.PendingEmail(); ok {
		t.Fatal("pending email should be cleared")
	}
}

func TestPendingRegistrationStoreErrors(t *testing.T) {
	ctx := context.Background()
	st := storetest.NewMemory(StoreName)
	st.SetErr = errors.New("read-only")
	p := newProvider(st, &fakeBackend{}, &fakeScheduler{}, &clock{start})

	err := p.Register(ctx, "new@example.com", "Passw0rd!", "Passw0rd!")
	if be, ok := backend.ParseError(err); !ok || be.Type != backend.StoreError {
		t.Fatalf("register err = %v, want store_error", err)
	}
	if st.Saves() != 0 {
		t.Fatalf("saves = %d, want none after a failed write", st.Saves())
	}

	st = storetest.NewMemory(StoreName).Seed(keyPendingEmail, "new@example.com")
	p = newProvider(st, &fakeBackend{}, &fakeScheduler{}, &clock{start})
	st.SetErr = errors.New("read-only")
	err = p.VerifyEmail(ctx, "123456")
	if be, ok := backend.ParseError(err); !ok || be.Type != backend.StoreError {
		t.Fatalf("verify err = %v, want store_error", err)
	}
	if email, ok := p.PendingEmail(); !ok || email != "new@example.com" {
		t.Fatalf("pending email = %q, %v; want it kept", email, ok)
	}
}

func TestRegisterValidation(t *testing.T) {
	tests := []struct {
		name, email, password, confirm string
	}{
		{"missing email", "", "Passw0rd!", "Passw0rd!"},
		{"bad email", "nope", "Passw0rd!", "Passw0rd!"},
		{"short", "a@b.co", "Pa0!", "Pa0!"},
		{"no upper", "a@b.co", "passw0rd!", "passw0rd!"},
		{"no digit", "a@b.co", "Password!", "Password!"},
		{"no special", "a@b.co", "Passw0rdd", "Passw0rdd"},
		{"bad special", "a@b.co", "Passw0rd#", "Passw0rd#"},
		{"mismatch", "a@b.co", "Passw0rd!", "Passw0rd?"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			be := &fakeBackend{}
			p := newProvider(storetest.NewMemory(StoreName), be, &fakeScheduler{}, &clock{start})
			err := p.Register(context.Background(), tt.email, tt.password, tt.confirm)
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("err = %v, want *ValidationError", err)
			}
			if len(be.Calls()) != 0 {
				t.Fatalf("backend called: %v", be.Calls())
			}
		})
	}
}

func TestNewTokensFallsBackToClaims(t *testing.T) {
	exp := start.Add(45 * time.Minute)
	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("k"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	id, err := jwt.NewWithClaims(jwt.SigningMethodHS256, idClaims{Email: "claims@example.com"}).SignedString([]byte("k"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	tk := newTokens(&backend.Session{AccessToken: access, IDToken: id}, "", start)
	if tk.ExpiresAt != exp.Truncate(time.Second).UnixMilli() {
		t.Fatalf("expires_at = %d, want %d", tk.ExpiresAt, exp.UnixMilli())
	}
	if tk.UserEmail != "claims@example.com" {
		t.Fatalf("email = %q", tk.UserEmail)
	}
	if tk.TokenType != "Bearer" {
		t.Fatalf("token type = %q", tk.TokenType)
	}

	opaque := newTokens(&backend.Session{AccessToken: "opaque"}, "x@example.com", start)
	if opaque.ExpiresAt != start.Add(defaultLifetime).UnixMilli() {
		t.Fatalf("opaque token expiry = %d", opaque.ExpiresAt)
	}
}
