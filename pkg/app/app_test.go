package app

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"tableflip.dev/wordsmith/pkg/backend"
	"tableflip.dev/wordsmith/pkg/backend/ledger"
	"tableflip.dev/wordsmith/pkg/backend/stripe"
	"tableflip.dev/wordsmith/pkg/config"
	"tableflip.dev/wordsmith/pkg/events"
	"tableflip.dev/wordsmith/pkg/metrics"
	"tableflip.dev/wordsmith/pkg/screen"
	"tableflip.dev/wordsmith/pkg/store/storetest"
	"tableflip.dev/wordsmith/pkg/usage"
)

var now = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

type fakeTransformer struct {
	fn func(text string) (string, error)
}

func (f *fakeTransformer) Transform(_ context.Context, text string, _ backend.ConvertType) (string, error) {
	if f.fn != nil {
		return f.fn(text)
	}
	return strings.ToUpper(text), nil
}

// fakeAuth is never reached: every test starts logged out.
type fakeAuth struct {
	backend.Authenticator
}

type fixture struct {
	app        *App
	usageStore *storetest.Memory
	tr         *fakeTransformer
}

func newFixture(t *testing.T, mutate func(*config.Config)) *fixture {
	t.Helper()
	cfg := &config.Config{
		GenerationLimit:           20,
		MaxLength:                 5000,
		Shortcut:                  "ctrl+n",
		AuthCheckInterval:         time.Minute,
		SubscriptionCheckInterval: time.Hour,
	}
	if mutate != nil {
		mutate(cfg)
	}
	f := &fixture{
		usageStore: storetest.NewMemory(usage.StoreName),
		tr:         &fakeTransformer{},
	}
	clock := func() time.Time { return now }
	f.app = Assemble(Deps{
		Config:        cfg,
		Logger:        zerolog.Nop(),
		Now:           clock,
		UsageStore:    f.usageStore,
		AuthStore:     storetest.NewMemory("auth.json"),
		Transformer:   f.tr,
		Authenticator: fakeAuth{},
		Billing:       ledger.New(f.usageStore, clock),
		Payments:      stripe.NewMock("wordsmith://payment-success?session_id={CHECKOUT_SESSION_ID}"),
		Metrics:       metrics.New(),
	})
	t.Cleanup(f.app.Stop)
	return f
}

// next waits for the first event of type T on ch.
func next[T events.Event](t *testing.T, ch <-chan events.Event) T {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				t.Fatal("hub closed")
			}
			if e, ok := ev.(T); ok {
				return e
			}
		case <-timeout:
			var zero T
			t.Fatalf("timed out waiting for %T", zero)
		}
	}
}

func TestConvertUpdatesOutput(t *testing.T) {
	f := newFixture(t, nil)
	ch, cancel := f.app.Hub.Subscribe()
	defer cancel()

	out, err := f.app.Convert(context.Background(), "hello", backend.Revision)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if out != "HELLO" || f.app.Output() != "HELLO" {
		t.Fatalf("out = %q, Output() = %q", out, f.app.Output())
	}
	if got := next[events.ConversionCompleted](t, ch); got.Output != "HELLO" || got.ID == "" {
		t.Fatalf("completed event = %+v", got)
	}
	if n, _ := f.app.Usage.TodayCount(context.Background()); n != 1 {
		t.Fatalf("today = %d, want 1", n)
	}
}

func TestConvertLimitShowsLimitScreen(t *testing.T) {
	f := newFixture(t, nil)
	f.usageStore.Seed("request_count", map[string]int{usage.DateKey(now): 20})
	f.app.Screen.Switch(screen.Main)

	_, err := f.app.Convert(context.Background(), "hello", backend.Revision)
	if !backend.IsLimitExceeded(err) {
		t.Fatalf("err = %v, want limit_exceeded", err)
	}
	if got := f.app.Screen.Current(); got != screen.LimitExceeded {
		t.Fatalf("screen = %s, want LIMIT_EXCEEDED", got)
	}
	got := testutil.ToFloat64(f.app.Metrics.Conversions.WithLabelValues("revision", "limit_exceeded"))
	if got != 1 {
		t.Fatalf("limit metric = %v, want 1", got)
	}
}

func TestConvertErrorNotifies(t *testing.T) {
	f := newFixture(t, nil)
	f.tr.fn = func(string) (string, error) {
		return "", backend.NewError(backend.HTTPError, "backend unavailable")
	}
	f.app.Screen.Switch(screen.Main)
	ch, cancel := f.app.Hub.Subscribe()
	defer cancel()

	if _, err := f.app.Convert(context.Background(), "hello", backend.Revision); err == nil {
		t.Fatal("want error")
	}
	n := next[events.Notification](t, ch)
	if n.Level != events.LevelError || n.Message != "backend unavailable" {
		t.Fatalf("notification = %+v", n)
	}
	if got := f.app.Screen.Current(); got != screen.Main {
		t.Fatalf("screen = %s, want MAIN", got)
	}
}

func TestStaleConversionIsSuperseded(t *testing.T) {
	f := newFixture(t, nil)
	entered := make(chan struct{})
	release := make(chan struct{})
	f.tr.fn = func(text string) (string, error) {
		if text == "slow" {
			close(entered)
			<-release
		}
		return strings.ToUpper(text), nil
	}

	errCh := make(chan error, 1)
	go func() {
		_, err := f.app.Convert(context.Background(), "slow", backend.Revision)
		errCh <- err
	}()
	<-entered

	if _, err := f.app.Convert(context.Background(), "fast", backend.Revision); err != nil {
		t.Fatalf("Convert fast: %v", err)
	}
	close(release)

	if err := <-errCh; !errors.Is(err, ErrSuperseded) {
		t.Fatalf("slow err = %v, want ErrSuperseded", err)
	}
	if got := f.app.Output(); got != "FAST" {
		t.Fatalf("Output() = %q, want FAST", got)
	}
}

func TestPurchaseAndRedirectSuccess(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.app.Screen.Switch(screen.Subscription)

	co, err := f.app.Purchase(ctx, backend.PlanMonthly)
	if err != nil {
		t.Fatalf("Purchase: %v", err)
	}
	r, err := f.app.HandleRedirect(ctx, co.URL)
	if err != nil {
		t.Fatalf("HandleRedirect(%q): %v", co.URL, err)
	}
	if r.SessionID != co.SessionID {
		t.Fatalf("session = %q, want %q", r.SessionID, co.SessionID)
	}
	if got := f.app.Screen.Current(); got != screen.Main {
		t.Fatalf("screen = %s, want MAIN", got)
	}
	st := f.app.Subscription.Status()
	if st == nil || !st.IsActive || st.PlanType != backend.PlanMonthly {
		t.Fatalf("status = %+v, want active monthly", st)
	}
}

func TestReplayedRedirectDoesNotExtendPlan(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	co, err := f.app.Purchase(ctx, backend.PlanWeekly)
	if err != nil {
		t.Fatalf("Purchase: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := f.app.HandleRedirect(ctx, co.URL); err != nil {
			t.Fatalf("HandleRedirect #%d: %v", i+1, err)
		}
	}
	st := f.app.Subscription.Status()
	if st == nil || !st.IsActive || st.DaysRemaining != 7 {
		t.Fatalf("status = %+v, want weekly with 7 days", st)
	}
}

func TestRedirectCancel(t *testing.T) {
	f := newFixture(t, nil)
	f.app.Screen.Switch(screen.Main)

	if _, err := f.app.HandleRedirect(context.Background(), "wordsmith://payment-cancel"); err != nil {
		t.Fatalf("HandleRedirect: %v", err)
	}
	if got := f.app.Screen.Current(); got != screen.Subscription {
		t.Fatalf("screen = %s, want SUBSCRIPTION", got)
	}
}

func TestRedirectVerificationFailureKeepsScreen(t *testing.T) {
	f := newFixture(t, nil)
	f.app.Screen.Switch(screen.Subscription)
	ch, cancel := f.app.Hub.Subscribe()
	defer cancel()

	_, err := f.app.HandleRedirect(context.Background(), "wordsmith://payment-success?session_id=bogus")
	if err == nil {
		t.Fatal("want verification error")
	}
	if got := f.app.Screen.Current(); got != screen.Subscription {
		t.Fatalf("screen = %s, want SUBSCRIPTION", got)
	}
	if n := next[events.Notification](t, ch); n.Level != events.LevelError {
		t.Fatalf("notification = %+v", n)
	}
}

func TestRedirectUnknown(t *testing.T) {
	f := newFixture(t, nil)
	if _, err := f.app.HandleRedirect(context.Background(), "https://example.com/elsewhere"); !errors.Is(err, ErrUnknownRedirect) {
		t.Fatalf("err = %v, want ErrUnknownRedirect", err)
	}
}

func TestStartShortcutConvertsSelection(t *testing.T) {
	f := newFixture(t, nil)
	f.app.SetSelection(func() string { return "selected" })
	if err := f.app.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if got := f.app.Screen.Current(); got != screen.Onboarding {
		t.Fatalf("first screen = %s, want ONBOARDING", got)
	}
	ch, cancel := f.app.Hub.Subscribe()
	defer cancel()

	if !f.app.Shortcuts.Trigger("Ctrl+N") {
		t.Fatal("shortcut not registered")
	}
	if got := next[events.ConversionCompleted](t, ch); got.Output != "SELECTED" {
		t.Fatalf("output = %q", got.Output)
	}
}

func TestInputEventsAreThrottled(t *testing.T) {
	f := newFixture(t, func(c *config.Config) { c.ShortcutRate = time.Hour })
	if err := f.app.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	f.app.Hub.Publish(events.ClipboardProcessed{Text: "one"})
	f.app.Hub.Publish(events.ClipboardProcessed{Text: "two"})

	deadline := time.Now().Add(2 * time.Second)
	for testutil.ToFloat64(f.app.Metrics.ThrottledEvents.WithLabelValues("clipboard")) != 1 {
		if time.Now().After(deadline) {
			t.Fatal("second clipboard event was not throttled")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestStopReleasesInReverse(t *testing.T) {
	f := newFixture(t, nil)
	if err := f.app.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if f.app.Hub.Subscribers() != 1 {
		t.Fatalf("subscribers = %d, want the app listener", f.app.Hub.Subscribers())
	}
	f.app.Stop()

	if got := f.app.Shortcuts.Registered(); len(got) != 0 {
		t.Fatalf("shortcuts still registered: %v", got)
	}
	if f.app.Hub.Subscribers() != 0 {
		t.Fatal("listener still subscribed")
	}
	var raw string
	if !f.usageStore.SavedValue(screen.StoreKey, &raw) || raw != "ONBOARDING" {
		t.Fatalf("persisted screen = %q, want ONBOARDING", raw)
	}
}
