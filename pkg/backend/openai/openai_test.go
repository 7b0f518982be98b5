package openai

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
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("path = %s", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"  Summary.  "},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	tr := New(Config{APIKey: "sk-test", BaseURL: srv.URL})
	out, err := tr.Transform(context.Background(), "long text", backend.Summarize)
	if err != nil {
		t.Fatalf("transform: %v", err)
	}
	if out != "Summary." {
		t.Fatalf("out = %q", out)
	}
	if body["model"] != "gpt-4o-mini" {
		t.Fatalf("model = %v", body["model"])
	}
}

func TestTransformAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	_, err := New(Config{APIKey: "sk-bad", BaseURL: srv.URL}).Transform(context.Background(), "x", backend.Revision)
	if be, ok := backend.ParseError(err); !ok || be.Type != backend.APIError {
		t.Fatalf("err = %v, want api_error", err)
	}
}

func TestTransformWithoutKey(t *testing.T) {
	_, err := New(Config{}).Transform(context.Background(), "x", backend.Revision)
	if be, ok := backend.ParseError(err); !ok || be.Type != backend.EnvError {
		t.Fatalf("err = %v, want env_error", err)
	}
}
