package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mitchellh/go-homedir"

	"tableflip.dev/wordsmith/pkg/update"
)

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	homedir.DisableCache = true
	t.Setenv(PathOverrideEnv, dir)
	t.Setenv("HOME", dir)
	t.Chdir(dir)

	cfg, err := Load(Options{EnvFile: filepath.Join(dir, "missing.env")})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.GenerationLimit != 20 {
		t.Errorf("generation_limit = %d, want 20", cfg.GenerationLimit)
	}
	if cfg.MaxLength != 5000 {
		t.Errorf("max_length = %d, want 5000", cfg.MaxLength)
	}
	if cfg.Backend != "http" {
		t.Errorf("backend = %q, want http", cfg.Backend)
	}
	if cfg.AuthCheckInterval != time.Minute || cfg.SubscriptionCheckInterval != time.Hour {
		t.Errorf("intervals = %v/%v", cfg.AuthCheckInterval, cfg.SubscriptionCheckInterval)
	}
	if !cfg.Update.Check || cfg.Update.URL != update.DefaultURL {
		t.Errorf("update = %+v, want check on against the module proxy", cfg.Update)
	}
	if want := filepath.Join(dir, ".wordsmith"); cfg.BasePath() != want {
		t.Errorf("path = %q, want %q", cfg.BasePath(), want)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, ".wordsmith.yaml")
	body := "path: " + filepath.Join(dir, "data") + "\ngeneration_limit: 5\nbackend: openai\nopenai:\n  model: gpt-4o\n"
	if err := os.WriteFile(file, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	envFile := filepath.Join(dir, "test.env")
	if err := os.WriteFile(envFile, []byte("WORDSMITH_TEST_DOTENV_API_URL=unused\n"), 0o644); err != nil {
		t.Fatalf("write env: %v", err)
	}
	t.Setenv("WORDSMITH_GENERATION_LIMIT", "7")
	t.Setenv("API_URL", "https://api.example.test/generate")

	cfg, err := Load(Options{File: file, EnvFile: envFile})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.GenerationLimit != 7 {
		t.Errorf("env should override file: generation_limit = %d", cfg.GenerationLimit)
	}
	if cfg.Backend != "openai" || cfg.OpenAI.Model != "gpt-4o" {
		t.Errorf("backend/model = %q/%q", cfg.Backend, cfg.OpenAI.Model)
	}
	if cfg.APIURL != "https://api.example.test/generate" {
		t.Errorf("api_url = %q", cfg.APIURL)
	}
	if cfg.File != file {
		t.Errorf("file = %q, want %q", cfg.File, file)
	}
	if os.Getenv("WORDSMITH_TEST_DOTENV_API_URL") != "unused" {
		t.Error("expected .env values to be exported")
	}
	os.Unsetenv("WORDSMITH_TEST_DOTENV_API_URL")
}

func TestValidate(t *testing.T) {
	base := Config{Path: "/tmp/x", MaxLength: 5000, Backend: "http", AuthCheckInterval: time.Minute, SubscriptionCheckInterval: time.Hour}
	tests := map[string]func(c *Config){
		"empty path":     func(c *Config) { c.Path = "" },
		"negative limit": func(c *Config) { c.GenerationLimit = -1 },
		"zero length":    func(c *Config) { c.MaxLength = 0 },
		"bad backend":    func(c *Config) { c.Backend = "grpc" },
		"zero interval":  func(c *Config) { c.AuthCheckInterval = 0 },
	}
	if err := base.Validate(); err != nil {
		t.Fatalf("base config should validate: %v", err)
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			c := base
			mutate(&c)
			if err := c.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}
