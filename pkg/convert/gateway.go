// Package convert guards text transformation with input validation and the
// daily usage limit.
package convert

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"tableflip.dev/wordsmith/pkg/backend"
)

// DefaultMaxLength is the longest accepted input, in characters.
const DefaultMaxLength = 5000

// Counter is the part of the usage counter the gateway needs.
type Counter interface {
	Increment(ctx context.Context) (int, error)
	IncrementIfBelow(ctx context.Context, limit int) (int, bool, error)
}

// Config wires a Gateway.
type Config struct {
	Transformer backend.Transformer
	Billing     backend.Billing
	Counter     Counter
	Limit       int
	MaxLength   int
	Logger      zerolog.Logger
}

// Gateway is the single entry point for conversions from every surface.
type Gateway struct {
	transformer backend.Transformer
	billing     backend.Billing
	counter     Counter
	limit       int
	maxLength   int
	log         zerolog.Logger
}

// New returns a gateway.
func New(cfg Config) *Gateway {
	g := &Gateway{
		transformer: cfg.Transformer,
		billing:     cfg.Billing,
		counter:     cfg.Counter,
		limit:       cfg.Limit,
		maxLength:   cfg.MaxLength,
		log:         cfg.Logger.With().Str("component", "convert").Logger(),
	}
	if g.maxLength <= 0 {
		g.maxLength = DefaultMaxLength
	}
	return g
}

// Limit returns the daily allowance for inactive plans.
func (g *Gateway) Limit() int {
	return g.limit
}

// Validate checks text and ct without touching any backend.
func (g *Gateway) Validate(text string, ct backend.ConvertType) error {
	if strings.TrimSpace(text) == "" {
		return backend.NewError(backend.ValidationError, "enter some text to convert")
	}
	if n := utf8.RuneCountInString(text); n > g.maxLength {
		return backend.NewError(backend.ValidationError, "text is %d characters, the maximum is %d", n, g.maxLength)
	}
	if _, ok := backend.ParseConvertType(string(ct)); !ok {
		return backend.NewError(backend.ValidationError, "unknown conversion type %q", ct)
	}
	return nil
}

// Convert validates, enforces the daily limit for inactive plans, counts the
// request and transforms text. Errors are *backend.Error values.
func (g *Gateway) Convert(ctx context.Context, text string, ct backend.ConvertType) (string, error) {
	if err := g.Validate(text, ct); err != nil {
		return "", err
	}

	var (
		count int
		err   error
	)
	if g.unlimited(ctx) {
		count, err = g.counter.Increment(ctx)
	} else {
		var counted bool
		count, counted, err = g.counter.IncrementIfBelow(ctx, g.limit)
		if err == nil && !counted {
			return "", backend.NewError(backend.LimitExceeded,
				"you have used all %d free conversions for today", g.limit)
		}
	}
	if err != nil {
		return "", backend.Wrap(backend.StoreError, err, "record usage")
	}
	g.log.Debug().Int("today", count).Str("type", string(ct)).Msg("converting")

	out, err := g.transformer.Transform(ctx, text, ct)
	if err != nil {
		if _, ok := backend.ParseError(err); ok {
			return "", err
		}
		return "", backend.Wrap(backend.APIError, err, "conversion failed")
	}
	return out, nil
}

// unlimited reports whether an active plan lifts the limit. A billing error
// never grants unlimited use.
func (g *Gateway) unlimited(ctx context.Context) bool {
	if g.billing == nil {
		return false
	}
	st, err := g.billing.Status(ctx)
	if err != nil {
		g.log.Warn().Err(err).Msg("subscription status unavailable, enforcing limit")
		return false
	}
	return st != nil && st.IsActive
}
