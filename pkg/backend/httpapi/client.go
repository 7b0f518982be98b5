// Package httpapi is the text transformation backend served over HTTP: it
// POSTs a prompt and reads back generatedText.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"tableflip.dev/wordsmith/pkg/backend"
)

// Config holds the client configuration.
type Config struct {
	// URL is the generation endpoint.
	URL     string
	Timeout time.Duration
	// Token returns a bearer token for the request, empty for none.
	Token      func() string
	HTTPClient *http.Client
}

// Client implements backend.Transformer.
type Client struct {
	url        string
	token      func() string
	httpClient *http.Client
}

var _ backend.Transformer = (*Client)(nil)

// New returns a client for cfg.
func New(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{url: cfg.URL, token: cfg.Token, httpClient: httpClient}
}

type request struct {
	Prompt string              `json:"prompt"`
	Text   string              `json:"text"`
	Type   backend.ConvertType `json:"type"`
}

type response struct {
	GeneratedText *string `json:"generatedText"`
}

// Transform implements backend.Transformer.
func (c *Client) Transform(ctx context.Context, text string, ct backend.ConvertType) (string, error) {
	if c.url == "" {
		return "", backend.NewError(backend.EnvError, "API_URL is not configured")
	}

	body, err := json.Marshal(request{Prompt: backend.Prompt(text, ct), Text: text, Type: ct})
	if err != nil {
		return "", backend.Wrap(backend.ParseErrorType, err, "encode request")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", backend.Wrap(backend.HTTPError, err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.token != nil {
		if tok := c.token(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", backend.Wrap(backend.HTTPError, err, "request failed")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", backend.Wrap(backend.HTTPError, err, "read response")
	}

	if resp.StatusCode >= 400 {
		// The service reports structured failures, limit_exceeded included.
		if be, ok := backend.ParsePayload(string(respBody)); ok {
			return "", be
		}
		return "", backend.NewError(backend.HTTPError, "status %d: %s", resp.StatusCode, truncate(string(respBody), 200))
	}

	var out response
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", backend.Wrap(backend.ParseErrorType, err, "decode response")
	}
	if out.GeneratedText == nil {
		return "", backend.NewError(backend.APIError, "response has no generatedText")
	}
	return *out.GeneratedText, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return fmt.Sprintf("%s...", string(r[:n]))
}
