// Package subscription mirrors the billing service's subscription status in
// memory and warns about expiry.
package subscription

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"tableflip.dev/wordsmith/pkg/backend"
	"tableflip.dev/wordsmith/pkg/events"
)

const checkTask = "subscription-expiry"

// ExpiringSoonDays is the window in which an active plan triggers warnings.
const ExpiringSoonDays = 3

// Scheduler runs the periodic expiry check.
type Scheduler interface {
	Every(name string, d time.Duration, fn func()) (func(), error)
}

// Config wires a Provider.
type Config struct {
	Billing backend.Billing
	// Scheduler may be nil, in which case no periodic check runs.
	Scheduler     Scheduler
	CheckInterval time.Duration
	Logger        zerolog.Logger
	// Notify receives expiry notices.
	Notify func(events.Notification)
	// OnChange is called with the new mirror after every replacement.
	OnChange func(*backend.SubscriptionStatus)
}

// Provider holds the mirror of the backend's subscription status. The mirror
// is only ever replaced with a backend response.
type Provider struct {
	billing  backend.Billing
	sched    Scheduler
	interval time.Duration
	log      zerolog.Logger
	notify   func(events.Notification)
	onChange func(*backend.SubscriptionStatus)

	mu          sync.Mutex
	status      *backend.SubscriptionStatus
	loading     bool
	cancelCheck func()
}

// New returns a provider that is loading until the first Refresh.
func New(cfg Config) *Provider {
	p := &Provider{
		billing:  cfg.Billing,
		sched:    cfg.Scheduler,
		interval: cfg.CheckInterval,
		log:      cfg.Logger.With().Str("component", "subscription").Logger(),
		notify:   cfg.Notify,
		onChange: cfg.OnChange,
		loading:  true,
	}
	if p.interval <= 0 {
		p.interval = time.Hour
	}
	return p
}

// Status returns a copy of the mirror, nil when unknown.
func (p *Provider) Status() *backend.SubscriptionStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.status == nil {
		return nil
	}
	st := *p.status
	return &st
}

// Loading reports whether a backend call is in flight.
func (p *Provider) Loading() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loading
}

func (p *Provider) setLoading(v bool) {
	p.mu.Lock()
	p.loading = v
	p.mu.Unlock()
}

// Refresh loads the status from the backend. On failure the mirror becomes
// nil.
func (p *Provider) Refresh(ctx context.Context) error {
	p.setLoading(true)
	st, err := p.billing.Status(ctx)
	if err != nil {
		p.log.Error().Err(err).Msg("load subscription")
		p.replace(nil)
		return err
	}
	p.replace(st)
	return nil
}

// UpdatePlan applies a purchased plan. Failures leave the mirror unchanged
// and are returned.
func (p *Provider) UpdatePlan(ctx context.Context, plan backend.PlanType, customerID, token string) (*backend.SubscriptionStatus, error) {
	if _, ok := backend.LookupPlan(plan); !ok {
		return nil, backend.NewError(backend.ValidationError, "unknown plan %q", plan)
	}
	p.setLoading(true)
	st, err := p.billing.Update(ctx, plan, customerID, token)
	if err != nil {
		p.log.Error().Err(err).Str("plan", string(plan)).Msg("update subscription")
		p.setLoading(false)
		return nil, err
	}
	p.replace(st)
	return p.Status(), nil
}

// ResetPlan returns to the free plan. Failures leave the mirror unchanged
// and are returned.
func (p *Provider) ResetPlan(ctx context.Context) (*backend.SubscriptionStatus, error) {
	p.setLoading(true)
	st, err := p.billing.Reset(ctx)
	if err != nil {
		p.log.Error().Err(err).Msg("reset subscription")
		p.setLoading(false)
		return nil, err
	}
	p.replace(st)
	return p.Status(), nil
}

// CheckValidity asks the backend to re-validate the plan, which downgrades
// an expired one. Failures are logged and leave the mirror unchanged.
func (p *Provider) CheckValidity(ctx context.Context) error {
	st, err := p.billing.CheckValidity(ctx)
	if err != nil {
		p.log.Error().Err(err).Msg("check subscription validity")
		return err
	}
	p.replace(st)
	return nil
}

// CheckExpiry warns about an expired or expiring plan. An expired paid plan
// triggers CheckValidity; the mirror is otherwise left alone.
func (p *Provider) CheckExpiry(ctx context.Context) {
	st := p.Status()
	if st == nil {
		return
	}
	switch {
	case st.PlanType != backend.PlanFree && !st.IsActive:
		p.log.Info().Str("plan", string(st.PlanType)).Msg("subscription expired")
		p.emit(events.Notify(events.LevelError,
			"Your premium plan has expired",
			"You are back on the free plan. Purchase again to keep unlimited conversions."))
		_ = p.CheckValidity(ctx)
	case st.PlanType != backend.PlanFree && st.DaysRemaining <= ExpiringSoonDays:
		p.emit(events.Notify(events.LevelWarning,
			"Subscription ending soon",
			fmt.Sprintf("Your subscription ends in %d day(s).", st.DaysRemaining)))
	}
}

// Stop cancels the periodic check.
func (p *Provider) Stop() {
	p.mu.Lock()
	cancel := p.cancelCheck
	p.cancelCheck = nil
	p.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (p *Provider) replace(st *backend.SubscriptionStatus) {
	p.mu.Lock()
	p.status = st
	p.loading = false
	startCheck := st != nil && p.cancelCheck == nil && p.sched != nil
	p.mu.Unlock()

	if st == nil {
		p.Stop()
	}
	if p.onChange != nil {
		p.onChange(p.Status())
	}
	if startCheck {
		p.startCheck()
	}
}

func (p *Provider) startCheck() {
	cancel, err := p.sched.Every(checkTask, p.interval, func() {
		p.CheckExpiry(context.Background())
	})
	if err != nil {
		p.log.Error().Err(err).Msg("start subscription check")
		return
	}
	p.mu.Lock()
	p.cancelCheck = cancel
	p.mu.Unlock()
	p.CheckExpiry(context.Background())
}

func (p *Provider) emit(n events.Notification) {
	if p.notify != nil {
		p.notify(n)
	}
}
