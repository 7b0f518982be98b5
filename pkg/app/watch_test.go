package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"tableflip.dev/wordsmith/pkg/auth"
	"tableflip.dev/wordsmith/pkg/backend/ledger"
	"tableflip.dev/wordsmith/pkg/backend/stripe"
	"tableflip.dev/wordsmith/pkg/config"
	"tableflip.dev/wordsmith/pkg/metrics"
	"tableflip.dev/wordsmith/pkg/screen"
	"tableflip.dev/wordsmith/pkg/store"
	"tableflip.dev/wordsmith/pkg/usage"
)

// newWatchedApp builds an app over real stores in dir with the store watch
// on. today seeds the usage count for now.
func newWatchedApp(t *testing.T, dir string, today int) *App {
	t.Helper()
	cfg := &config.Config{
		Path:                      dir,
		GenerationLimit:           20,
		MaxLength:                 5000,
		Shortcut:                  "ctrl+n",
		AuthCheckInterval:         time.Minute,
		SubscriptionCheckInterval: time.Hour,
	}
	usageStore, err := store.Open(cfg, usage.StoreName)
	if err != nil {
		t.Fatalf("open usage: %v", err)
	}
	authStore, err := store.Open(cfg, auth.StoreName)
	if err != nil {
		t.Fatalf("open auth: %v", err)
	}
	if today > 0 {
		if err := usageStore.Set("request_count", map[string]int{usage.DateKey(now): today}); err != nil {
			t.Fatalf("seed: %v", err)
		}
		if err := usageStore.Save(); err != nil {
			t.Fatalf("save: %v", err)
		}
	}

	clock := func() time.Time { return now }
	a := Assemble(Deps{
		Config:        cfg,
		Logger:        zerolog.Nop(),
		Now:           clock,
		UsageStore:    usageStore,
		AuthStore:     authStore,
		Transformer:   &fakeTransformer{},
		Authenticator: fakeAuth{},
		Billing:       ledger.New(usageStore, clock),
		Payments:      stripe.NewMock("wordsmith://payment-success?session_id={CHECKOUT_SESSION_ID}"),
		Metrics:       metrics.New(),
		Watch:         true,
	})
	t.Cleanup(a.Stop)
	if err := a.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	return a
}

func TestOwnWritesDoNotReconcile(t *testing.T) {
	a := newWatchedApp(t, t.TempDir(), 20)
	if got := a.Screen.Current(); got != screen.LimitExceeded {
		t.Fatalf("start screen = %s, want LIMIT_EXCEEDED", got)
	}

	a.Screen.Switch(screen.Login)
	a.Screen.Flush()

	// Well past the watcher's coalescing delay.
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if got := a.Screen.Current(); got != screen.Login {
			t.Fatalf("screen = %s after own write, want LOGIN", got)
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestExternalEditReconciles(t *testing.T) {
	dir := t.TempDir()
	a := newWatchedApp(t, dir, 0)
	a.Screen.Switch(screen.Main)
	a.Screen.Flush()

	// Stage outside the watched directory and rename in, as an atomic
	// writer in another process would.
	staged := filepath.Join(t.TempDir(), "usage.json")
	doc := fmt.Sprintf(`{"screen_type":"MAIN","request_count":{%q:20}}`, usage.DateKey(now))
	if err := os.WriteFile(staged, []byte(doc), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.Rename(staged, filepath.Join(dir, usage.StoreName)); err != nil {
		t.Fatalf("rename: %v", err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for a.Screen.Current() != screen.LimitExceeded {
		if time.Now().After(deadline) {
			t.Fatalf("screen = %s, want LIMIT_EXCEEDED after external edit", a.Screen.Current())
		}
		time.Sleep(20 * time.Millisecond)
	}
}
