// Package ledger is a Billing backend that keeps the subscription record in
// the local usage store.
package ledger

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"tableflip.dev/wordsmith/pkg/backend"
	"tableflip.dev/wordsmith/pkg/store"
)

// StoreKey is the usage.json key holding the backend.SubscriptionInfo.
const StoreKey = "subscription"

// AppliedKey is the usage.json key listing the verification tokens of
// payments already applied.
const AppliedKey = "applied_payments"

// Ledger implements backend.Billing.
type Ledger struct {
	store store.Store
	now   func() time.Time

	mu sync.Mutex
}

var _ backend.Billing = (*Ledger)(nil)

// New returns a ledger over st. A nil now uses time.Now.
func New(st store.Store, now func() time.Time) *Ledger {
	if now == nil {
		now = time.Now
	}
	return &Ledger{store: st, now: now}
}

func (l *Ledger) info() (*backend.SubscriptionInfo, error) {
	var info backend.SubscriptionInfo
	found, err := l.store.Get(StoreKey, &info)
	if err != nil {
		return nil, backend.Wrap(backend.StoreError, err, "read subscription")
	}
	if !found {
		return nil, nil
	}
	return &info, nil
}

func (l *Ledger) write(info *backend.SubscriptionInfo) error {
	var err error
	if info == nil {
		err = l.store.Delete(StoreKey)
	} else {
		err = l.store.Set(StoreKey, info)
	}
	if err != nil {
		return backend.Wrap(backend.StoreError, err, "write subscription")
	}
	if err := l.store.Save(); err != nil {
		return backend.Wrap(backend.StoreError, err, "save subscription")
	}
	return nil
}

func (l *Ledger) applied() ([]string, error) {
	var tokens []string
	if _, err := l.store.Get(AppliedKey, &tokens); err != nil {
		return nil, backend.Wrap(backend.StoreError, err, "read applied payments")
	}
	return tokens, nil
}

// Info returns the stored record, nil for the free plan.
func (l *Ledger) Info(_ context.Context) (*backend.SubscriptionInfo, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.info()
}

// Status implements backend.Billing.
func (l *Ledger) Status(_ context.Context) (*backend.SubscriptionStatus, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	info, err := l.info()
	if err != nil {
		return nil, err
	}
	return backend.StatusOf(info, l.now()), nil
}

// Update implements backend.Billing. Buying while a plan is active extends
// it from the current expiry. A token that was already applied leaves the
// record unchanged.
func (l *Ledger) Update(_ context.Context, plan backend.PlanType, customerID, token string) (*backend.SubscriptionStatus, error) {
	p, ok := backend.LookupPlan(plan)
	if !ok {
		return nil, backend.NewError(backend.ValidationError, "unknown plan %q", plan)
	}
	if customerID == "" {
		return nil, backend.NewError(backend.ValidationError, "customer id is required")
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	current, err := l.info()
	if err != nil {
		return nil, err
	}
	now := l.now()

	applied, err := l.applied()
	if err != nil {
		return nil, err
	}
	if token != "" && slices.Contains(applied, token) {
		return backend.StatusOf(current, now), nil
	}

	start := now
	if st := backend.StatusOf(current, now); st.IsActive && st.ExpiresAt != nil {
		start = *st.ExpiresAt
	}
	expires := start.AddDate(0, 0, p.Days)
	info := &backend.SubscriptionInfo{
		PlanType:          plan,
		ExpiresAt:         &expires,
		StripeCustomerID:  customerID,
		VerificationToken: token,
		PurchasedAt:       &now,
	}
	if token != "" {
		if err := l.store.Set(AppliedKey, append(applied, token)); err != nil {
			return nil, backend.Wrap(backend.StoreError, err, "record applied payment")
		}
	}
	if err := l.write(info); err != nil {
		return nil, err
	}
	return backend.StatusOf(info, now), nil
}

// Reset implements backend.Billing.
func (l *Ledger) Reset(_ context.Context) (*backend.SubscriptionStatus, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.write(nil); err != nil {
		return nil, err
	}
	return backend.FreeStatus(), nil
}

// CheckValidity implements backend.Billing: an expired paid plan is reset
// to free.
func (l *Ledger) CheckValidity(_ context.Context) (*backend.SubscriptionStatus, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	info, err := l.info()
	if err != nil {
		return nil, err
	}
	st := backend.StatusOf(info, l.now())
	if st.PlanType != backend.PlanFree && !st.IsActive {
		if err := l.write(nil); err != nil {
			return nil, fmt.Errorf("ledger: reset expired plan: %w", err)
		}
		return backend.FreeStatus(), nil
	}
	return st, nil
}
