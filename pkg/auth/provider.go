// Package auth owns the session token lifecycle: loading persisted tokens,
// expiry checks, login, logout, refresh and the sign up flow.
package auth

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"tableflip.dev/wordsmith/pkg/backend"
	"tableflip.dev/wordsmith/pkg/store"
)

// StoreName is the store holding tokens and the pending sign up.
const StoreName = "auth.json"

const (
	keyTokens       = "tokens"
	keyPendingEmail = "pending_email"
	keyTempPassword = "temp_password"

	expiryTask = "auth-expiry"
)

var (
	// ErrNoPendingEmail is returned by verification when no sign up is in
	// progress.
	ErrNoPendingEmail = errors.New("auth: no pending email verification")
	// ErrNotAuthenticated is returned by Refresh without a session.
	ErrNotAuthenticated = errors.New("auth: not authenticated")
)

// State is the in-memory view of the session.
type State struct {
	Authenticated bool    `json:"authenticated"`
	Tokens        *Tokens `json:"tokens,omitempty"`
	UserEmail     string  `json:"user_email,omitempty"`
	Loading       bool    `json:"loading"`
}

// Scheduler runs the expiry check.
type Scheduler interface {
	Every(name string, d time.Duration, fn func()) (func(), error)
}

// Config wires a Provider.
type Config struct {
	Store   store.Store
	Backend backend.Authenticator
	// Scheduler may be nil, in which case no expiry watch runs.
	Scheduler     Scheduler
	CheckInterval time.Duration
	Now           func() time.Time
	Logger        zerolog.Logger
	// OnChange is called with the new state after every change.
	OnChange func(State)
}

// Provider is the single owner of auth state.
type Provider struct {
	store    store.Store
	backend  backend.Authenticator
	sched    Scheduler
	interval time.Duration
	now      func() time.Time
	log      zerolog.Logger
	onChange func(State)

	mu          sync.Mutex
	state       State
	cancelWatch func()
}

// New returns a provider that is loading until CheckStatus runs.
func New(cfg Config) *Provider {
	p := &Provider{
		store:    cfg.Store,
		backend:  cfg.Backend,
		sched:    cfg.Scheduler,
		interval: cfg.CheckInterval,
		now:      cfg.Now,
		log:      cfg.Logger.With().Str("component", "auth").Logger(),
		onChange: cfg.OnChange,
		state:    State{Loading: true},
	}
	if p.now == nil {
		p.now = time.Now
	}
	if p.interval <= 0 {
		p.interval = time.Minute
	}
	return p
}

// State returns a copy of the current state.
func (p *Provider) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// CheckStatus loads persisted tokens. Missing, unreadable or expired tokens
// leave the user logged out; expired ones are removed from the store.
func (p *Provider) CheckStatus(ctx context.Context) State {
	var tokens Tokens
	found, err := p.store.Get(keyTokens, &tokens)
	switch {
	case err != nil:
		p.log.Warn().Err(err).Msg("read tokens, treating as logged out")
		p.setLoggedOut()
	case !found:
		p.setLoggedOut()
	case tokens.Expired(p.now()):
		p.log.Info().Str("email", tokens.UserEmail).Msg("session expired")
		if err := p.clearTokens(); err != nil {
			p.log.Error().Err(err).Msg("clear expired tokens")
		}
		p.setLoggedOut()
	default:
		p.setAuthenticated(&tokens)
	}
	return p.State()
}

// Login authenticates with email and password, persists the session and
// then marks the user authenticated.
func (p *Provider) Login(ctx context.Context, email, password string) error {
	if err := Validate(Credentials{Email: email, Password: password}); err != nil {
		return err
	}
	session, err := p.backend.Login(ctx, email, password)
	if err != nil {
		p.log.Error().Err(err).Str("email", email).Msg("login")
		return err
	}
	return p.establish(session, email)
}

func (p *Provider) establish(session *backend.Session, email string) error {
	if session == nil || session.AccessToken == "" {
		return backend.NewError(backend.APIError, "auth service returned no access token")
	}
	tokens := newTokens(session, email, p.now())
	if err := p.store.Set(keyTokens, tokens); err != nil {
		return backend.Wrap(backend.StoreError, err, "store tokens")
	}
	if err := p.store.Save(); err != nil {
		return backend.Wrap(backend.StoreError, err, "store tokens")
	}
	p.setAuthenticated(tokens)
	p.log.Info().Str("email", tokens.UserEmail).Time("expires_at", tokens.Expiry()).Msg("logged in")
	return nil
}

// Logout removes tokens from the store, then clears memory. Memory is
// cleared even when the store fails; that error is returned.
func (p *Provider) Logout(ctx context.Context) error {
	err := p.clearTokens()
	if err != nil {
		p.log.Error().Err(err).Msg("clear tokens on logout")
	}
	p.setLoggedOut()
	return err
}

func (p *Provider) clearTokens() error {
	if err := p.store.Delete(keyTokens); err != nil {
		return fmt.Errorf("auth: delete tokens: %w", err)
	}
	if err := p.store.Save(); err != nil {
		return fmt.Errorf("auth: save: %w", err)
	}
	return nil
}

// Refresh exchanges the refresh token for a new session. Without a refresh
// token, or when the exchange fails, the user is logged out.
func (p *Provider) Refresh(ctx context.Context) error {
	p.mu.Lock()
	current := p.state.Tokens
	p.mu.Unlock()
	if current == nil {
		return ErrNotAuthenticated
	}
	if current.RefreshToken == "" {
		p.log.Info().Msg("no refresh token, logging out")
		_ = p.Logout(ctx)
		return ErrNotAuthenticated
	}

	session, err := p.backend.Refresh(ctx, current.RefreshToken)
	if err != nil {
		p.log.Error().Err(err).Msg("refresh session, logging out")
		_ = p.Logout(ctx)
		return err
	}
	if session.RefreshToken == "" {
		session.RefreshToken = current.RefreshToken
	}
	if session.IDToken == "" {
		session.IDToken = current.IDToken
	}
	return p.establish(session, current.UserEmail)
}

// CheckExpiry refreshes the session once its access token has expired.
func (p *Provider) CheckExpiry(ctx context.Context) {
	p.mu.Lock()
	tokens := p.state.Tokens
	authenticated := p.state.Authenticated
	p.mu.Unlock()
	if !authenticated || !tokens.Expired(p.now()) {
		return
	}
	p.log.Info().Msg("access token expired")
	_ = p.Refresh(ctx)
}

// Register starts a sign up and remembers the email and password for
// verification.
func (p *Provider) Register(ctx context.Context, email, password, confirm string) error {
	if err := Validate(Registration{Email: email, Password: password, ConfirmPassword: confirm}); err != nil {
		return err
	}
	if err := p.backend.Register(ctx, email, password); err != nil {
		p.log.Error().Err(err).Str("email", email).Msg("register")
		return err
	}
	if err := p.store.Set(keyPendingEmail, email); err != nil {
		return backend.Wrap(backend.StoreError, err, "store pending registration")
	}
	if err := p.store.Set(keyTempPassword, base64.StdEncoding.EncodeToString([]byte(password))); err != nil {
		return backend.Wrap(backend.StoreError, err, "store pending registration")
	}
	if err := p.store.Save(); err != nil {
		return backend.Wrap(backend.StoreError, err, "store pending registration")
	}
	return nil
}

// PendingEmail returns the email awaiting verification.
func (p *Provider) PendingEmail() (string, bool) {
	var email string
	found, err := p.store.Get(keyPendingEmail, &email)
	if err != nil || !found || email == "" {
		return "", false
	}
	return email, true
}

// VerifyEmail confirms the pending sign up with code.
func (p *Provider) VerifyEmail(ctx context.Context, code string) error {
	email, ok := p.PendingEmail()
	if !ok {
		return ErrNoPendingEmail
	}
	if err := Validate(Verification{Code: code}); err != nil {
		return err
	}
	if err := p.backend.VerifyEmail(ctx, email, code); err != nil {
		p.log.Error().Err(err).Str("email", email).Msg("verify email")
		return err
	}
	return p.clearPending()
}

// VerifyEmailAndLogin confirms the pending sign up and logs in with the
// remembered password.
func (p *Provider) VerifyEmailAndLogin(ctx context.Context, code string) error {
	email, ok := p.PendingEmail()
	if !ok {
		return ErrNoPendingEmail
	}
	if err := Validate(Verification{Code: code}); err != nil {
		return err
	}
	var encoded string
	if found, err := p.store.Get(keyTempPassword, &encoded); err != nil || !found {
		return fmt.Errorf("auth: no stored password for %s", email)
	}
	password, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return fmt.Errorf("auth: decode stored password: %w", err)
	}

	session, err := p.backend.VerifyEmailAndLogin(ctx, email, string(password), code)
	if err != nil {
		p.log.Error().Err(err).Str("email", email).Msg("verify email and login")
		return err
	}
	if err := p.establish(session, email); err != nil {
		return err
	}
	return p.clearPending()
}

func (p *Provider) clearPending() error {
	if err := p.store.Delete(keyPendingEmail); err != nil {
		return backend.Wrap(backend.StoreError, err, "clear pending registration")
	}
	if err := p.store.Delete(keyTempPassword); err != nil {
		return backend.Wrap(backend.StoreError, err, "clear pending registration")
	}
	if err := p.store.Save(); err != nil {
		return backend.Wrap(backend.StoreError, err, "clear pending registration")
	}
	return nil
}

// Stop cancels the expiry watch.
func (p *Provider) Stop() {
	p.mu.Lock()
	cancel := p.cancelWatch
	p.cancelWatch = nil
	p.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (p *Provider) setAuthenticated(tokens *Tokens) {
	p.mu.Lock()
	p.state = State{Authenticated: true, Tokens: tokens, UserEmail: tokens.UserEmail}
	startWatch := p.cancelWatch == nil && p.sched != nil
	state := p.state
	p.mu.Unlock()

	if startWatch {
		cancel, err := p.sched.Every(expiryTask, p.interval, func() {
			p.CheckExpiry(context.Background())
		})
		if err != nil {
			p.log.Error().Err(err).Msg("start expiry watch")
		} else {
			p.mu.Lock()
			p.cancelWatch = cancel
			p.mu.Unlock()
		}
	}
	p.notify(state)
}

func (p *Provider) setLoggedOut() {
	p.Stop()
	p.mu.Lock()
	p.state = State{}
	state := p.state
	p.mu.Unlock()
	p.notify(state)
}

func (p *Provider) notify(s State) {
	if p.onChange != nil {
		p.onChange(s)
	}
}
