// Package screen owns which screen is shown. A Machine reconciles the
// persisted screen with today's usage and subscription activity and persists
// every transition.
package screen

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"tableflip.dev/wordsmith/pkg/backend"
	"tableflip.dev/wordsmith/pkg/store"
)

// StoreKey is the usage.json key holding the last screen.
const StoreKey = "screen_type"

// StatusSource reports the current subscription status.
type StatusSource interface {
	Status(ctx context.Context) (*backend.SubscriptionStatus, error)
}

// UsageSource reports how many requests were made today.
type UsageSource interface {
	TodayCount(ctx context.Context) (int, error)
}

// Observer is called after every in-memory transition.
type Observer func(from, to Type)

// Config wires a Machine.
type Config struct {
	Store  store.Store
	Status StatusSource
	Usage  UsageSource
	// Limit is the daily request allowance for inactive plans.
	Limit  int
	Logger zerolog.Logger
}

// Machine is the single authority for the current screen.
type Machine struct {
	store  store.Store
	status StatusSource
	usage  UsageSource
	limit  int
	log    zerolog.Logger

	mu        sync.RWMutex
	current   Type
	loading   bool
	seq       uint64
	observers []Observer

	// writeMu serializes persistence; written is the seq last on disk.
	writeMu sync.Mutex
	written uint64
	pending sync.WaitGroup
}

// New returns a machine that is loading until Initialize completes.
func New(cfg Config) *Machine {
	return &Machine{
		store:   cfg.Store,
		status:  cfg.Status,
		usage:   cfg.Usage,
		limit:   cfg.Limit,
		log:     cfg.Logger.With().Str("component", "screen").Logger(),
		loading: true,
	}
}

// Observe registers fn for transitions.
func (m *Machine) Observe(fn Observer) {
	m.mu.Lock()
	m.observers = append(m.observers, fn)
	m.mu.Unlock()
}

// Current returns the screen in memory. It is Unknown while loading.
func (m *Machine) Current() Type {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Loading reports whether the first reconciliation is still running.
func (m *Machine) Loading() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loading
}

// Switch makes next current immediately and persists it in the background.
// A failed write is logged; memory keeps next.
func (m *Machine) Switch(next Type) {
	m.mu.Lock()
	from := m.current
	m.current = next
	m.seq++
	seq := m.seq
	observers := append([]Observer(nil), m.observers...)
	m.pending.Add(1)
	m.mu.Unlock()

	go m.persist(seq, next)

	for _, fn := range observers {
		fn(from, next)
	}
}

func (m *Machine) persist(seq uint64, next Type) {
	defer m.pending.Done()
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	// A later Switch already reached disk.
	if seq <= m.written {
		return
	}
	if err := m.store.Set(StoreKey, next.String()); err != nil {
		m.log.Error().Err(err).Str("screen", next.String()).Msg("persist screen")
		return
	}
	if err := m.store.Save(); err != nil {
		m.log.Error().Err(err).Str("screen", next.String()).Msg("persist screen")
		return
	}
	m.written = seq
}

// Flush waits for scheduled writes to finish.
func (m *Machine) Flush() {
	m.pending.Wait()
}

// Initialize runs the first reconciliation and clears Loading.
func (m *Machine) Initialize(ctx context.Context) Type {
	t := m.Reconcile(ctx)
	m.mu.Lock()
	m.loading = false
	m.mu.Unlock()
	return t
}

// Reconcile recomputes the screen from the persisted value, subscription
// activity and today's usage. Every failure degrades to a safe default.
func (m *Machine) Reconcile(ctx context.Context) Type {
	var raw string
	found, err := m.store.Get(StoreKey, &raw)
	if err != nil {
		m.log.Warn().Err(err).Msg("read persisted screen, treating as absent")
		found = false
	}
	persisted := Unknown
	if found {
		persisted, _ = Parse(raw)
	}

	active := false
	if m.status != nil {
		st, err := m.status.Status(ctx)
		switch {
		case err != nil:
			m.log.Warn().Err(err).Msg("subscription status unavailable, treating as inactive")
		case st != nil:
			active = st.IsActive
		}
	}

	today := 0
	if m.usage != nil {
		n, err := m.usage.TodayCount(ctx)
		if err != nil {
			m.log.Warn().Err(err).Msg("usage unavailable, treating as zero")
		} else {
			today = n
		}
	}

	target := Decide(persisted, found, active, today, m.limit)
	m.log.Debug().
		Str("persisted", raw).
		Bool("active", active).
		Int("today", today).
		Str("target", target.String()).
		Msg("reconciled")

	if !found || raw != target.String() {
		m.Switch(target)
		return target
	}

	m.mu.Lock()
	from := m.current
	m.current = target
	observers := append([]Observer(nil), m.observers...)
	m.mu.Unlock()
	if from != target {
		for _, fn := range observers {
			fn(from, target)
		}
	}
	return target
}

// Decide is the reconciliation table. found reports whether a screen was
// persisted at all; an unrecognized persisted value arrives as Unknown.
// First match wins:
//
//	inactive plan and today >= limit          -> LIMIT_EXCEEDED
//	persisted LIMIT_EXCEEDED, limit lifted    -> MAIN
//	otherwise                                 -> persisted
func Decide(persisted Type, found bool, active bool, today, limit int) Type {
	switch {
	case !found:
		persisted = Onboarding
	case !persisted.Valid():
		persisted = Main
	}

	if !active && today >= limit {
		return LimitExceeded
	}
	if persisted == LimitExceeded {
		return Main
	}
	return persisted
}
