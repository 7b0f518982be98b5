package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"tableflip.dev/wordsmith/pkg/events"
	"tableflip.dev/wordsmith/pkg/update"
)

func TestCheckForUpdateNotifies(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"Version":"v1.3.0"}`))
	}))
	defer srv.Close()

	f := newFixture(t, nil)
	ch, cancel := f.app.Hub.Subscribe()
	defer cancel()

	f.app.CheckForUpdate(context.Background(), &update.Checker{URL: srv.URL, Current: "v1.2.0", Client: srv.Client()})
	n := next[events.Notification](t, ch)
	if n.Level != events.LevelInfo || !strings.Contains(n.Message, "v1.3.0") {
		t.Fatalf("notification = %+v", n)
	}
}

func TestCheckForUpdateQuietWhenCurrent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"Version":"v1.3.0"}`))
	}))
	defer srv.Close()

	f := newFixture(t, nil)
	ch, cancel := f.app.Hub.Subscribe()
	defer cancel()

	f.app.CheckForUpdate(context.Background(), &update.Checker{URL: srv.URL, Current: "v1.3.0", Client: srv.Client()})
	select {
	case ev := <-ch:
		t.Fatalf("unexpected event %T", ev)
	default:
	}
}
