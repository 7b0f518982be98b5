package screen

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"tableflip.dev/wordsmith/pkg/backend"
	"tableflip.dev/wordsmith/pkg/store/storetest"
)

const limit = 20

type fakeStatus struct {
	active bool
	err    error
}

func (f *fakeStatus) Status(context.Context) (*backend.SubscriptionStatus, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.active {
		return &backend.SubscriptionStatus{PlanType: backend.PlanMonthly, IsActive: true, DaysRemaining: 30}, nil
	}
	return backend.FreeStatus(), nil
}

type fakeUsage struct {
	count int
	err   error
}

func (f *fakeUsage) TodayCount(context.Context) (int, error) {
	return f.count, f.err
}

func newMachine(st *storetest.Memory, status *fakeStatus, usage *fakeUsage) *Machine {
	return New(Config{Store: st, Status: status, Usage: usage, Limit: limit, Logger: zerolog.Nop()})
}

func persistedScreen(t *testing.T, st *storetest.Memory) string {
	t.Helper()
	var raw string
	if !st.SavedValue(StoreKey, &raw) {
		return ""
	}
	return raw
}

func TestDecide(t *testing.T) {
	tests := []struct {
		name      string
		persisted Type
		found     bool
		active    bool
		today     int
		want      Type
	}{
		{name: "first run", found: false, want: Onboarding},
		{name: "first run at limit", found: false, today: 20, want: LimitExceeded},
		{name: "unknown value", persisted: Unknown, found: true, want: Main},
		{name: "under limit keeps login", persisted: Login, found: true, today: 19, want: Login},
		{name: "at limit overrides", persisted: Subscription, found: true, today: 20, want: LimitExceeded},
		{name: "over limit overrides", persisted: Main, found: true, today: 99, want: LimitExceeded},
		{name: "active ignores limit", persisted: Main, found: true, active: true, today: 99, want: Main},
		{name: "limit lifted by plan", persisted: LimitExceeded, found: true, active: true, today: 99, want: Main},
		{name: "limit lifted by new day", persisted: LimitExceeded, found: true, today: 0, want: Main},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Decide(tt.persisted, tt.found, tt.active, tt.today, limit); got != tt.want {
				t.Fatalf("Decide = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestReconcileKeepsPersistedUnderLimit(t *testing.T) {
	for _, typ := range Types() {
		if typ == LimitExceeded {
			continue
		}
		t.Run(typ.String(), func(t *testing.T) {
			st := storetest.NewMemory("usage.json").Seed(StoreKey, typ.String())
			m := newMachine(st, &fakeStatus{}, &fakeUsage{count: limit - 1})
			if got := m.Initialize(context.Background()); got != typ {
				t.Fatalf("reconciled %v, want %v", got, typ)
			}
			m.Flush()
			if st.Saves() != 0 {
				t.Fatalf("expected no redundant write, got %d saves", st.Saves())
			}
		})
	}
}

func TestReconcileAtLimitAlwaysLimitExceeded(t *testing.T) {
	for _, typ := range Types() {
		for _, count := range []int{limit, limit + 1, 1000} {
			st := storetest.NewMemory("usage.json").Seed(StoreKey, typ.String())
			m := newMachine(st, &fakeStatus{}, &fakeUsage{count: count})
			if got := m.Initialize(context.Background()); got != LimitExceeded {
				t.Fatalf("persisted %v count %d: got %v", typ, count, got)
			}
		}
	}
}

func TestFreshInstallIsOnboarding(t *testing.T) {
	st := storetest.NewMemory("usage.json")
	m := newMachine(st, &fakeStatus{}, &fakeUsage{})
	if !m.Loading() {
		t.Fatal("machine should be loading before Initialize")
	}
	if got := m.Initialize(context.Background()); got != Onboarding {
		t.Fatalf("got %v, want ONBOARDING", got)
	}
	if m.Loading() {
		t.Fatal("machine should not be loading after Initialize")
	}
}

func TestLimitThenPurchaseScenario(t *testing.T) {
	ctx := context.Background()
	st := storetest.NewMemory("usage.json").Seed(StoreKey, Main.String())
	status := &fakeStatus{}
	usage := &fakeUsage{count: 20}

	m := newMachine(st, status, usage)
	if got := m.Initialize(ctx); got != LimitExceeded {
		t.Fatalf("got %v, want LIMIT_EXCEEDED", got)
	}
	m.Flush()
	if got := persistedScreen(t, st); got != "LIMIT_EXCEEDED" {
		t.Fatalf("persisted %q", got)
	}

	status.active = true
	if got := m.Reconcile(ctx); got != Main {
		t.Fatalf("after purchase got %v, want MAIN", got)
	}
	m.Flush()
	if got := m.Reconcile(ctx); got != Main {
		t.Fatalf("re-running reconciliation got %v, want MAIN", got)
	}
}

func TestSwitchIsSynchronousInMemory(t *testing.T) {
	st := storetest.NewMemory("usage.json")
	m := newMachine(st, &fakeStatus{}, &fakeUsage{})
	for _, typ := range Types() {
		m.Switch(typ)
		if got := m.Current(); got != typ {
			t.Fatalf("Current() = %v immediately after Switch(%v)", got, typ)
		}
	}
	m.Flush()
}

func TestSwitchRoundTripAfterReload(t *testing.T) {
	ctx := context.Background()
	st := storetest.NewMemory("usage.json")
	m := newMachine(st, &fakeStatus{}, &fakeUsage{count: 3})
	m.Initialize(ctx)
	m.Switch(Subscription)
	m.Flush()

	if _, err := st.Reload(); err != nil {
		t.Fatalf("reload: %v", err)
	}
	relaunched := newMachine(st, &fakeStatus{}, &fakeUsage{count: 3})
	if got := relaunched.Initialize(ctx); got != Subscription {
		t.Fatalf("relaunch got %v, want SUBSCRIPTION", got)
	}
}

func TestLastSwitchWinsOnDisk(t *testing.T) {
	st := storetest.NewMemory("usage.json")
	m := newMachine(st, &fakeStatus{}, &fakeUsage{})
	for i := 0; i < 50; i++ {
		m.Switch(Login)
		m.Switch(Register)
	}
	m.Switch(EmailVerification)
	m.Flush()
	if got := persistedScreen(t, st); got != "EMAIL_VERIFICATION" {
		t.Fatalf("persisted %q, want EMAIL_VERIFICATION", got)
	}
}

func TestSwitchWriteFailureKeepsMemory(t *testing.T) {
	st := storetest.NewMemory("usage.json")
	st.SaveErr = errors.New("read-only filesystem")
	m := newMachine(st, &fakeStatus{}, &fakeUsage{})
	m.Switch(Login)
	m.Flush()
	if got := m.Current(); got != Login {
		t.Fatalf("Current() = %v, want LOGIN", got)
	}
}

func TestMalformedPersistedValueFallsBackToMain(t *testing.T) {
	st := storetest.NewMemory("usage.json").Seed(StoreKey, "SETTINGS")
	m := newMachine(st, &fakeStatus{}, &fakeUsage{})
	if got := m.Initialize(context.Background()); got != Main {
		t.Fatalf("got %v, want MAIN", got)
	}
	m.Flush()
	if got := persistedScreen(t, st); got != "MAIN" {
		t.Fatalf("persisted %q, want MAIN", got)
	}
}

func TestBackendFailuresDegrade(t *testing.T) {
	st := storetest.NewMemory("usage.json").Seed(StoreKey, Main.String())
	m := newMachine(st, &fakeStatus{err: errors.New("offline")}, &fakeUsage{count: 20})
	if got := m.Initialize(context.Background()); got != LimitExceeded {
		t.Fatalf("status error must not grant unlimited usage: got %v", got)
	}

	st = storetest.NewMemory("usage.json").Seed(StoreKey, Login.String())
	m = newMachine(st, &fakeStatus{}, &fakeUsage{err: errors.New("corrupt")})
	if got := m.Initialize(context.Background()); got != Login {
		t.Fatalf("usage error should count as zero: got %v", got)
	}

	st = storetest.NewMemory("usage.json")
	st.GetErr = errors.New("unreadable")
	m = newMachine(st, &fakeStatus{}, &fakeUsage{})
	if got := m.Initialize(context.Background()); got != Onboarding {
		t.Fatalf("unreadable store should behave as absent: got %v", got)
	}
}

func TestObserverSeesTransitions(t *testing.T) {
	st := storetest.NewMemory("usage.json").Seed(StoreKey, Main.String())
	m := newMachine(st, &fakeStatus{}, &fakeUsage{})

	var mu sync.Mutex
	var seen [][2]Type
	m.Observe(func(from, to Type) {
		mu.Lock()
		seen = append(seen, [2]Type{from, to})
		mu.Unlock()
	})
	m.Initialize(context.Background())
	m.Switch(Subscription)
	m.Flush()

	mu.Lock()
	defer mu.Unlock()
	want := [][2]Type{{Unknown, Main}, {Main, Subscription}}
	if len(seen) != len(want) {
		t.Fatalf("seen %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("seen %v, want %v", seen, want)
		}
	}
}

func TestParse(t *testing.T) {
	for _, typ := range Types() {
		got, ok := Parse(typ.String())
		if !ok || got != typ {
			t.Errorf("Parse(%q) = %v, %v", typ.String(), got, ok)
		}
	}
	if _, ok := Parse("main"); ok {
		t.Error("Parse must be case sensitive")
	}
	if Unknown.Valid() {
		t.Error("Unknown must not be valid")
	}
}
