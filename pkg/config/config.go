// Package config loads wordsmith settings from a .wordsmith yaml file, the
// environment, and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"

	"tableflip.dev/wordsmith/pkg/update"
)

const (
	// EnvPrefix prefixes every environment override, e.g. WORDSMITH_PATH.
	EnvPrefix = "WORDSMITH"
	// PathOverrideEnv names a directory searched first for .wordsmith.yaml.
	PathOverrideEnv = "WORDSMITH_CONFIG_PATH"
)

// Config holds all application configuration.
type Config struct {
	Path            string `json:"path"`
	GenerationLimit int    `json:"generation_limit"`
	MaxLength       int    `json:"max_length"`
	Backend         string `json:"backend"`
	APIURL          string `json:"api_url"`

	OpenAI  OpenAIConfig  `json:"openai"`
	Cognito CognitoConfig `json:"cognito"`
	Stripe  StripeConfig  `json:"stripe"`
	Log     LogConfig     `json:"log"`
	Update  UpdateConfig  `json:"update"`

	AuthCheckInterval         time.Duration `json:"auth_check_interval"`
	SubscriptionCheckInterval time.Duration `json:"subscription_check_interval"`
	Shortcut                  string        `json:"shortcut"`
	ShortcutRate              time.Duration `json:"shortcut_rate"`
	MetricsAddr               string        `json:"metrics_addr"`

	// File is the config file that was read, empty if none was found.
	File string `json:"file,omitempty"`
}

// OpenAIConfig configures the OpenAI text backend.
type OpenAIConfig struct {
	APIKey string `json:"api_key"`
	Model  string `json:"model"`
}

// CognitoConfig configures the AWS Cognito auth backend.
type CognitoConfig struct {
	ClientID string `json:"client_id"`
	Region   string `json:"region"`
}

// StripeConfig configures checkout. An empty SecretKey selects the offline
// mock gateway.
type StripeConfig struct {
	SecretKey    string `json:"secret_key"`
	PriceWeekly  string `json:"price_weekly"`
	PriceMonthly string `json:"price_monthly"`
	SuccessURL   string `json:"success_url"`
	CancelURL    string `json:"cancel_url"`
}

// LogConfig configures pkg/logging.
type LogConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
	File   string `json:"file"`
}

// UpdateConfig controls the release check.
type UpdateConfig struct {
	// Check enables the check when the user interface starts.
	Check bool   `json:"check"`
	URL   string `json:"url"`
}

// BasePath implements store.Config.
func (c *Config) BasePath() string {
	return c.Path
}

// Options control where Load looks.
type Options struct {
	// File is an explicit config file; search paths are skipped when set.
	File string
	// EnvFile is a dotenv file loaded before reading the environment.
	// Defaults to ".env"; a missing file is ignored.
	EnvFile string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("path", "~/.wordsmith")
	v.SetDefault("generation_limit", 20)
	v.SetDefault("max_length", 5000)
	v.SetDefault("backend", "http")
	v.SetDefault("api_url", "")
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("cognito.region", "ap-northeast-1")
	v.SetDefault("stripe.success_url", "wordsmith://payment-success?session_id={CHECKOUT_SESSION_ID}")
	v.SetDefault("stripe.cancel_url", "wordsmith://payment-cancel")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.file", "")
	v.SetDefault("auth_check_interval", time.Minute)
	v.SetDefault("subscription_check_interval", time.Hour)
	v.SetDefault("shortcut", "ctrl+n")
	v.SetDefault("shortcut_rate", time.Second)
	v.SetDefault("metrics_addr", "")
	v.SetDefault("update.check", true)
	v.SetDefault("update.url", update.DefaultURL)
}

// Load reads configuration. Precedence: environment, config file, defaults.
func Load(opts Options) (*Config, error) {
	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: load %s: %w", envFile, err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Unprefixed names used by the hosted deployment.
	_ = v.BindEnv("api_url", "API_URL")
	_ = v.BindEnv("openai.api_key", "OPENAI_API_KEY")
	_ = v.BindEnv("stripe.secret_key", "STRIPE_SECRET_KEY")

	if opts.File != "" {
		v.SetConfigFile(opts.File)
	} else {
		v.SetConfigName(".wordsmith") // .yaml is implicit
		if override := os.Getenv(PathOverrideEnv); override != "" {
			v.AddConfigPath(override)
		}
		v.AddConfigPath("./")
		if home, err := homedir.Dir(); err == nil {
			v.AddConfigPath(home)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: read config file: %w", err)
		}
	}

	cfg := &Config{
		Path:            v.GetString("path"),
		GenerationLimit: v.GetInt("generation_limit"),
		MaxLength:       v.GetInt("max_length"),
		Backend:         strings.ToLower(v.GetString("backend")),
		APIURL:          v.GetString("api_url"),
		OpenAI: OpenAIConfig{
			APIKey: v.GetString("openai.api_key"),
			Model:  v.GetString("openai.model"),
		},
		Cognito: CognitoConfig{
			ClientID: v.GetString("cognito.client_id"),
			Region:   v.GetString("cognito.region"),
		},
		Stripe: StripeConfig{
			SecretKey:    v.GetString("stripe.secret_key"),
			PriceWeekly:  v.GetString("stripe.price_weekly"),
			PriceMonthly: v.GetString("stripe.price_monthly"),
			SuccessURL:   v.GetString("stripe.success_url"),
			CancelURL:    v.GetString("stripe.cancel_url"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			File:   v.GetString("log.file"),
		},
		Update: UpdateConfig{
			Check: v.GetBool("update.check"),
			URL:   v.GetString("update.url"),
		},
		AuthCheckInterval:         v.GetDuration("auth_check_interval"),
		SubscriptionCheckInterval: v.GetDuration("subscription_check_interval"),
		Shortcut:                  v.GetString("shortcut"),
		ShortcutRate:              v.GetDuration("shortcut_rate"),
		MetricsAddr:               v.GetString("metrics_addr"),
		File:                      v.ConfigFileUsed(),
	}

	var err error
	if cfg.Path, err = homedir.Expand(cfg.Path); err != nil {
		return nil, fmt.Errorf("config: expand path: %w", err)
	}
	if cfg.Log.File, err = homedir.Expand(cfg.Log.File); err != nil {
		return nil, fmt.Errorf("config: expand log.file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the application cannot run with.
func (c *Config) Validate() error {
	if c.Path == "" {
		return errors.New("config: path must not be empty")
	}
	if c.GenerationLimit < 0 {
		return fmt.Errorf("config: generation_limit must be >= 0, got %d", c.GenerationLimit)
	}
	if c.MaxLength <= 0 {
		return fmt.Errorf("config: max_length must be > 0, got %d", c.MaxLength)
	}
	switch c.Backend {
	case "http", "openai":
	default:
		return fmt.Errorf("config: unknown backend %q (want http or openai)", c.Backend)
	}
	if c.AuthCheckInterval <= 0 || c.SubscriptionCheckInterval <= 0 {
		return errors.New("config: check intervals must be positive")
	}
	return nil
}
