package commands

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"github.com/mitchellh/go-homedir"
)

func TestCommandTree(t *testing.T) {
	root := New()
	for _, path := range [][]string{
		{"ui"},
		{"convert"},
		{"usage", "show"},
		{"usage", "prune"},
		{"screen", "get"},
		{"screen", "set"},
		{"screen", "reconcile"},
		{"auth", "login"},
		{"auth", "logout"},
		{"auth", "register"},
		{"auth", "verify"},
		{"auth", "status"},
		{"auth", "refresh"},
		{"subscription", "status"},
		{"subscription", "plans"},
		{"subscription", "purchase"},
		{"subscription", "reset"},
		{"subscription", "check"},
		{"open"},
		{"mcp"},
		{"config", "show"},
		{"upgrade"},
		{"version"},
	} {
		cmd, rest, err := root.Find(path)
		if err != nil || len(rest) != 0 || cmd.Name() != path[len(path)-1] {
			t.Errorf("Find(%v) = %v, %v, %v", path, cmd, rest, err)
		}
	}
}

func TestConfigFlagsArePersistent(t *testing.T) {
	root := New()
	cmd, _, err := root.Find([]string{"usage", "show"})
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"config", "env-file", "verbose"} {
		if cmd.InheritedFlags().Lookup(name) == nil {
			t.Errorf("usage show does not inherit --%s", name)
		}
	}
}

func TestConvertTypeCompletions(t *testing.T) {
	if got, want := convertTypeCompletions("tr"), []string{"translate"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("completions = %v, want %v", got, want)
	}
	if got := convertTypeCompletions(""); len(got) != 6 {
		t.Fatalf("completions = %v, want all six types", got)
	}
}

func TestScreenNames(t *testing.T) {
	names := screenNames()
	if len(names) != 7 || names[0] != "ONBOARDING" {
		t.Fatalf("names = %v", names)
	}
}

func TestUpgradeCheck(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"Version":"v1.3.0"}`))
	}))
	defer srv.Close()

	dir := t.TempDir()
	homedir.DisableCache = true
	t.Setenv("HOME", dir)
	t.Setenv("WORDSMITH_CONFIG_PATH", dir)
	t.Setenv("WORDSMITH_PATH", dir)
	t.Setenv("WORDSMITH_UPDATE_URL", srv.URL)
	t.Chdir(dir)

	root := New()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"upgrade", "--check"})
	if err := root.Execute(); err != nil {
		t.Fatalf("upgrade --check: %v", err)
	}
	// Test builds report version "dev", which is never behind.
	if got := out.String(); !strings.Contains(got, "dev is up to date (latest v1.3.0)") {
		t.Fatalf("output = %q", got)
	}
}
