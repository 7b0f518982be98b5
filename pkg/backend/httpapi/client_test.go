package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"tableflip.dev/wordsmith/pkg/backend"
)

func TestTransform(t *testing.T) {
	var got request
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"generatedText":"polished"}`))
	}))
	defer srv.Close()

	c := New(Config{URL: srv.URL, Token: func() string { return "tok" }})
	out, err := c.Transform(context.Background(), "draft", backend.Formalize)
	if err != nil {
		t.Fatalf("transform: %v", err)
	}
	if out != "polished" {
		t.Fatalf("out = %q", out)
	}
	if got.Text != "draft" || got.Type != backend.Formalize || !strings.Contains(got.Prompt, "draft") {
		t.Fatalf("request = %+v", got)
	}
	if auth != "Bearer tok" {
		t.Fatalf("authorization = %q", auth)
	}
}

func TestTransformErrors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantType backend.ErrorType
	}{
		{name: "limit payload", status: http.StatusTooManyRequests, body: `{"type":"limit_exceeded","message":"no more today"}`, wantType: backend.LimitExceeded},
		{name: "plain 500", status: http.StatusInternalServerError, body: "oops", wantType: backend.HTTPError},
		{name: "bad json", status: http.StatusOK, body: "not json", wantType: backend.ParseErrorType},
		{name: "missing field", status: http.StatusOK, body: `{"text":"x"}`, wantType: backend.APIError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := New(Config{URL: srv.URL}).Transform(context.Background(), "x", backend.Revision)
			be, ok := backend.ParseError(err)
			if !ok || be.Type != tt.wantType {
				t.Fatalf("err = %v, want %s", err, tt.wantType)
			}
		})
	}
}

func TestTransformWithoutURL(t *testing.T) {
	_, err := New(Config{}).Transform(context.Background(), "x", backend.Revision)
	if be, ok := backend.ParseError(err); !ok || be.Type != backend.EnvError {
		t.Fatalf("err = %v, want env_error", err)
	}
}
