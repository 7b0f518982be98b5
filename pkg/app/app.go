// Package app assembles wordsmith: it opens each store once, builds the
// providers on top of them and owns the explicit application state that the
// CLI and the TUI share.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"tableflip.dev/wordsmith/pkg/auth"
	"tableflip.dev/wordsmith/pkg/backend"
	"tableflip.dev/wordsmith/pkg/backend/cognito"
	"tableflip.dev/wordsmith/pkg/backend/httpapi"
	"tableflip.dev/wordsmith/pkg/backend/ledger"
	"tableflip.dev/wordsmith/pkg/backend/openai"
	"tableflip.dev/wordsmith/pkg/backend/stripe"
	"tableflip.dev/wordsmith/pkg/config"
	"tableflip.dev/wordsmith/pkg/convert"
	"tableflip.dev/wordsmith/pkg/events"
	"tableflip.dev/wordsmith/pkg/metrics"
	"tableflip.dev/wordsmith/pkg/schedule"
	"tableflip.dev/wordsmith/pkg/screen"
	"tableflip.dev/wordsmith/pkg/store"
	"tableflip.dev/wordsmith/pkg/subscription"
	"tableflip.dev/wordsmith/pkg/usage"
)

// ErrSuperseded is returned by Convert when a newer conversion started
// before this one finished.
var ErrSuperseded = errors.New("app: conversion superseded by a newer request")

// Deps are the collaborators of an App. New fills them from configuration;
// tests supply fakes.
type Deps struct {
	Config *config.Config
	Logger zerolog.Logger
	Now    func() time.Time

	UsageStore store.Store
	AuthStore  store.Store

	Transformer   backend.Transformer
	Authenticator backend.Authenticator
	Billing       backend.Billing
	Payments      backend.PaymentGateway

	// Scheduler runs the auth and subscription checks; nil disables them.
	Scheduler *schedule.Scheduler
	Metrics   *metrics.Metrics
	// Watch enables reloading stores changed by another process.
	Watch bool
}

// App is the running application.
type App struct {
	cfg  *config.Config
	log  zerolog.Logger
	deps Deps

	Usage        *usage.Counter
	Screen       *screen.Machine
	Auth         *auth.Provider
	Subscription *subscription.Provider
	Gateway      *convert.Gateway
	Payments     backend.PaymentGateway
	Hub          *events.Hub
	Shortcuts    *events.Shortcuts
	Scheduler    *schedule.Scheduler
	Metrics      *metrics.Metrics

	limiter *rate.Limiter

	mu        sync.Mutex
	seq       uint64
	output    string
	selection func() string

	cancel      context.CancelFunc
	unsubscribe func()
	wg          sync.WaitGroup
}

// New opens the stores under cfg.Path and builds the configured backends.
func New(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*App, error) {
	usageStore, err := openStore(cfg, usage.StoreName, log)
	if err != nil {
		return nil, err
	}
	authStore, err := openStore(cfg, auth.StoreName, log)
	if err != nil {
		return nil, err
	}

	authenticator, err := cognito.New(ctx, cfg.Cognito.Region, cfg.Cognito.ClientID)
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}

	d := Deps{
		Config:        cfg,
		Logger:        log,
		UsageStore:    usageStore,
		AuthStore:     authStore,
		Authenticator: authenticator,
		Billing:       ledger.New(usageStore, time.Now),
		Payments: stripe.New(stripe.Config{
			SecretKey: cfg.Stripe.SecretKey,
			Prices: map[backend.PlanType]string{
				backend.PlanWeekly:  cfg.Stripe.PriceWeekly,
				backend.PlanMonthly: cfg.Stripe.PriceMonthly,
			},
			SuccessURL: cfg.Stripe.SuccessURL,
			CancelURL:  cfg.Stripe.CancelURL,
		}),
		Scheduler: schedule.New(log),
		Metrics:   metrics.New(),
		Watch:     true,
	}

	a := Assemble(d)
	switch cfg.Backend {
	case "openai":
		a.Gateway = a.newGateway(openai.New(openai.Config{
			APIKey: cfg.OpenAI.APIKey,
			Model:  cfg.OpenAI.Model,
		}))
	default:
		a.Gateway = a.newGateway(httpapi.New(httpapi.Config{
			URL:   cfg.APIURL,
			Token: a.accessToken,
		}))
	}
	return a, nil
}

// openStore opens name, falling back to an empty store when the file on disk
// cannot be decoded. The broken file is replaced on the next save.
func openStore(cfg *config.Config, name string, log zerolog.Logger) (store.Store, error) {
	st, err := store.Open(cfg, name)
	if err == nil {
		return st, nil
	}
	log.Warn().Err(err).Str("store", name).Msg("store unreadable, starting empty")
	st, err = store.OpenEmpty(cfg, name)
	if err != nil {
		return nil, fmt.Errorf("app: open %s: %w", name, err)
	}
	return st, nil
}

// Assemble wires an App from d without touching the network or the disk.
func Assemble(d Deps) *App {
	if d.Now == nil {
		d.Now = time.Now
	}
	cfg := d.Config
	a := &App{
		cfg:       cfg,
		log:       d.Logger.With().Str("component", "app").Logger(),
		deps:      d,
		Payments:  d.Payments,
		Hub:       events.NewHub(),
		Shortcuts: events.NewShortcuts(),
		Scheduler: d.Scheduler,
		Metrics:   d.Metrics,
		limiter:   rate.NewLimiter(rate.Every(cfg.ShortcutRate), 1),
	}
	if cfg.ShortcutRate <= 0 {
		a.limiter = rate.NewLimiter(rate.Inf, 1)
	}

	a.Usage = usage.New(d.UsageStore, d.Now)

	var authSched auth.Scheduler
	var subSched subscription.Scheduler
	if d.Scheduler != nil {
		authSched = d.Scheduler
		subSched = d.Scheduler
	}

	a.Screen = screen.New(screen.Config{
		Store:  d.UsageStore,
		Status: d.Billing,
		Usage:  a.Usage,
		Limit:  cfg.GenerationLimit,
		Logger: d.Logger,
	})
	a.Screen.Observe(func(from, to screen.Type) {
		a.Metrics.ObserveTransition(from.String(), to.String())
		a.Hub.Publish(events.ScreenChanged{From: from, To: to})
	})

	a.Auth = auth.New(auth.Config{
		Store:         d.AuthStore,
		Backend:       d.Authenticator,
		Scheduler:     authSched,
		CheckInterval: cfg.AuthCheckInterval,
		Now:           d.Now,
		Logger:        d.Logger,
		OnChange:      a.authChanged,
	})

	a.Subscription = subscription.New(subscription.Config{
		Billing:       d.Billing,
		Scheduler:     subSched,
		CheckInterval: cfg.SubscriptionCheckInterval,
		Logger:        d.Logger,
		Notify:        a.notify,
		OnChange: func(st *backend.SubscriptionStatus) {
			a.Hub.Publish(events.SubscriptionChanged{Status: st})
		},
	})

	a.Gateway = a.newGateway(d.Transformer)
	return a
}

func (a *App) newGateway(tr backend.Transformer) *convert.Gateway {
	return convert.New(convert.Config{
		Transformer: tr,
		Billing:     a.deps.Billing,
		Counter:     a.Usage,
		Limit:       a.cfg.GenerationLimit,
		MaxLength:   a.cfg.MaxLength,
		Logger:      a.deps.Logger,
	})
}

func (a *App) accessToken() string {
	st := a.Auth.State()
	if !st.Authenticated || st.Tokens == nil {
		return ""
	}
	if st.Tokens.IDToken != "" {
		return st.Tokens.IDToken
	}
	return st.Tokens.AccessToken
}

func (a *App) authChanged(st auth.State) {
	if st.Loading {
		return
	}
	event := "logout"
	if st.Authenticated {
		event = "login"
	}
	a.Metrics.ObserveAuth(event)
	a.Hub.Publish(events.AuthChanged{Authenticated: st.Authenticated, Email: st.UserEmail})
}

func (a *App) notify(n events.Notification) {
	a.Hub.Publish(n)
}

// Config returns the configuration the app was built with.
func (a *App) Config() *config.Config {
	return a.cfg
}

// Start loads auth and subscription state, reconciles the screen, binds the
// shortcut and starts listening for input events. Call Stop to release
// everything Start acquired.
func (a *App) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	a.Auth.CheckStatus(ctx)
	if err := a.Subscription.Refresh(ctx); err != nil {
		a.log.Warn().Err(err).Msg("subscription unavailable at start")
	}
	current := a.Screen.Initialize(ctx)
	a.log.Info().Str("screen", current.String()).Msg("started")

	if err := a.Shortcuts.Register(a.cfg.Shortcut, a.triggerShortcut); err != nil {
		cancel()
		return fmt.Errorf("app: %w", err)
	}

	ch, unsubscribe := a.Hub.Subscribe()
	a.unsubscribe = unsubscribe
	a.wg.Add(1)
	go a.listen(ctx, ch)

	if a.deps.Watch {
		watch, err := store.Watch(ctx, a.cfg)
		if err != nil {
			a.log.Warn().Err(err).Msg("store watch disabled")
		} else {
			a.wg.Add(1)
			go a.watch(ctx, watch)
		}
	}

	if a.cfg.MetricsAddr != "" && a.Metrics != nil {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			if err := a.Metrics.Serve(ctx, a.cfg.MetricsAddr); err != nil {
				a.log.Error().Err(err).Str("addr", a.cfg.MetricsAddr).Msg("metrics server")
			}
		}()
	}
	return nil
}

// Stop releases resources in reverse order of Start: shortcuts, the event
// listener, timers, then pending screen writes.
func (a *App) Stop() {
	a.Shortcuts.UnregisterAll()
	if a.unsubscribe != nil {
		a.unsubscribe()
	}
	if a.cancel != nil {
		a.cancel()
	}
	a.wg.Wait()

	if a.Scheduler != nil {
		a.Scheduler.Stop()
	}
	a.Auth.Stop()
	a.Subscription.Stop()
	a.Screen.Flush()
	a.Hub.Close()
}

// SetSelection sets the source of text the shortcut converts.
func (a *App) SetSelection(fn func() string) {
	a.mu.Lock()
	a.selection = fn
	a.mu.Unlock()
}

func (a *App) triggerShortcut() {
	a.mu.Lock()
	fn := a.selection
	a.mu.Unlock()
	text := ""
	if fn != nil {
		text = fn()
	}
	a.Hub.Publish(events.ShortcutTriggered{Text: text})
}

func (a *App) listen(ctx context.Context, ch <-chan events.Event) {
	defer a.wg.Done()
	for ev := range ch {
		var text, source string
		switch e := ev.(type) {
		case events.ShortcutTriggered:
			text, source = e.Text, "shortcut"
		case events.ClipboardProcessed:
			text, source = e.Text, "clipboard"
		default:
			continue
		}
		if text == "" {
			continue
		}
		if !a.limiter.Allow() {
			a.Metrics.ObserveThrottled(source)
			a.log.Debug().Str("source", source).Msg("input throttled")
			continue
		}
		ct, _ := a.Usage.ConvertType(ctx)
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			if _, err := a.Convert(ctx, text, ct); err != nil && !errors.Is(err, ErrSuperseded) {
				a.log.Debug().Err(err).Str("source", source).Msg("conversion from input event")
			}
		}()
	}
}

func (a *App) watch(ctx context.Context, ch <-chan store.Event) {
	defer a.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			a.reload(ctx, ev.Store)
		}
	}
}

// reload picks up a change written by another process. An empty name means
// every store. Events caused by this process's own saves leave the store
// unchanged and are ignored.
func (a *App) reload(ctx context.Context, name string) {
	if name == "" || name == a.deps.UsageStore.Name() {
		changed, err := a.deps.UsageStore.Reload()
		switch {
		case err != nil:
			a.log.Warn().Err(err).Str("store", a.deps.UsageStore.Name()).Msg("reload store")
		case changed:
			if err := a.Subscription.Refresh(ctx); err != nil {
				a.log.Warn().Err(err).Msg("refresh subscription after reload")
			}
			a.Screen.Reconcile(ctx)
		}
	}
	if name == "" || name == a.deps.AuthStore.Name() {
		changed, err := a.deps.AuthStore.Reload()
		switch {
		case err != nil:
			a.log.Warn().Err(err).Str("store", a.deps.AuthStore.Name()).Msg("reload store")
		case changed:
			a.Auth.CheckStatus(ctx)
		}
	}
}

// Output returns the result of the newest completed conversion.
func (a *App) Output() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.output
}

// Convert runs a conversion through the gateway. Only the newest request
// updates Output; an older one finishing later returns ErrSuperseded. A
// limit error moves the screen to LIMIT_EXCEEDED, any other error is
// published as a notification.
func (a *App) Convert(ctx context.Context, text string, ct backend.ConvertType) (string, error) {
	a.mu.Lock()
	a.seq++
	seq := a.seq
	a.mu.Unlock()

	id := uuid.NewString()
	log := a.log.With().Uint64("seq", seq).Str("id", id).Str("type", string(ct)).Logger()
	a.Hub.Publish(events.ConversionStarted{Seq: seq, ID: id, Type: ct})
	start := time.Now()

	out, err := a.Gateway.Convert(ctx, text, ct)

	a.mu.Lock()
	stale := seq != a.seq
	if !stale && err == nil {
		a.output = out
	}
	a.mu.Unlock()

	if stale {
		a.Metrics.ObserveConversion(string(ct), "superseded", time.Since(start))
		log.Debug().Msg("superseded")
		return "", ErrSuperseded
	}
	if err != nil {
		a.Metrics.ObserveConversion(string(ct), resultOf(err), time.Since(start))
		a.Hub.Publish(events.ConversionFailed{Seq: seq, ID: id, Err: err})
		if backend.IsLimitExceeded(err) {
			log.Info().Msg("daily limit reached")
			a.Screen.Switch(screen.LimitExceeded)
		} else {
			log.Error().Err(err).Msg("conversion failed")
			a.notify(events.Notify(events.LevelError, "Conversion failed", backend.Message(err)))
		}
		return "", err
	}

	a.Metrics.ObserveConversion(string(ct), "ok", time.Since(start))
	a.Hub.Publish(events.ConversionCompleted{Seq: seq, ID: id, Output: out})
	log.Debug().Int("chars", len([]rune(out))).Msg("converted")
	return out, nil
}

func resultOf(err error) string {
	if be, ok := backend.ParseError(err); ok {
		return string(be.Type)
	}
	return "error"
}
