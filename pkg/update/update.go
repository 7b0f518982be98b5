// Package update finds the newest published wordsmith release and installs
// it with the go tool.
package update

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/exec"
	"strings"
	"time"

	"golang.org/x/mod/semver"
)

const (
	// Module is the module path releases are published under.
	Module = "tableflip.dev/wordsmith"
	// DefaultURL is the module proxy endpoint describing the latest release.
	DefaultURL = "https://proxy.golang.org/" + Module + "/@latest"

	installPath = Module + "/cmd/wordsmith"
	maxBody     = 1 << 16
)

// ErrNoVersion is returned when the release feed names no usable version.
var ErrNoVersion = errors.New("update: release has no semantic version")

// Release is the module proxy's description of a version.
type Release struct {
	Version string    `json:"Version"`
	Time    time.Time `json:"Time"`
}

// Checker compares the running version with the latest release.
type Checker struct {
	// URL serves a Release as JSON. Empty uses DefaultURL.
	URL string
	// Current is the running version, e.g. "v1.2.0" or "dev".
	Current string
	Client  *http.Client
	// Run executes a command and returns its combined output. Nil runs it
	// with os/exec.
	Run func(ctx context.Context, name string, args ...string) ([]byte, error)
}

// Latest fetches the newest release.
func (c *Checker) Latest(ctx context.Context) (*Release, error) {
	url := c.URL
	if url == "" {
		url = DefaultURL
	}
	client := c.Client
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("update: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("update: fetch %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("update: fetch %s: unexpected status %s", url, resp.Status)
	}

	var rel Release
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBody)).Decode(&rel); err != nil {
		return nil, fmt.Errorf("update: decode release: %w", err)
	}
	rel.Version = canonical(rel.Version)
	if !semver.IsValid(rel.Version) {
		return nil, ErrNoVersion
	}
	return &rel, nil
}

// Check returns the latest release and whether it is newer than Current. A
// Current that is not a semantic version, such as a dev build, is never
// behind.
func (c *Checker) Check(ctx context.Context) (*Release, bool, error) {
	rel, err := c.Latest(ctx)
	if err != nil {
		return nil, false, err
	}
	current := canonical(c.Current)
	if !semver.IsValid(current) {
		return rel, false, nil
	}
	return rel, semver.Compare(rel.Version, current) > 0, nil
}

// Install runs go install for version and returns the command line it ran.
func (c *Checker) Install(ctx context.Context, version string) (string, error) {
	if version == "" {
		version = "latest"
	}
	args := []string{"install", installPath + "@" + version}
	line := "go " + strings.Join(args, " ")

	run := c.Run
	if run == nil {
		run = runCommand
	}
	out, err := run(ctx, "go", args...)
	if err != nil {
		msg := strings.TrimSpace(string(out))
		if msg == "" {
			return line, fmt.Errorf("update: %s: %w", line, err)
		}
		return line, fmt.Errorf("update: %s: %w: %s", line, err, msg)
	}
	return line, nil
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

func canonical(v string) string {
	v = strings.TrimSpace(v)
	if v != "" && !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	return v
}
