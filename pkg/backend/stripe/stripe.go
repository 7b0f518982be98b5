// Package stripe creates and verifies plan purchases with Stripe Checkout.
// Without a secret key a Mock gateway stands in.
package stripe

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v72"
	"github.com/stripe/stripe-go/v72/client"

	"tableflip.dev/wordsmith/pkg/backend"
)

const metadataPlan = "plan_type"

// Config configures checkout.
type Config struct {
	SecretKey string
	// Prices maps plans to Stripe price ids. Plans without a price use
	// inline price data from the plan catalog.
	Prices     map[backend.PlanType]string
	SuccessURL string
	CancelURL  string
}

// New returns a Stripe gateway, or a Mock when no secret key is set.
func New(cfg Config) backend.PaymentGateway {
	if cfg.SecretKey == "" {
		return NewMock(cfg.SuccessURL)
	}
	sc := &client.API{}
	sc.Init(cfg.SecretKey, nil)
	return &Gateway{api: sc, cfg: cfg}
}

// Gateway implements backend.PaymentGateway against the Stripe API.
type Gateway struct {
	api *client.API
	cfg Config
}

// CreateCheckout implements backend.PaymentGateway.
func (g *Gateway) CreateCheckout(ctx context.Context, plan backend.PlanType) (*backend.Checkout, error) {
	params, err := checkoutParams(g.cfg, plan)
	if err != nil {
		return nil, err
	}
	params.Context = ctx
	s, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, backend.Wrap(backend.APIError, err, "create checkout session")
	}
	return &backend.Checkout{SessionID: s.ID, URL: s.URL}, nil
}

// VerifySession implements backend.PaymentGateway.
func (g *Gateway) VerifySession(ctx context.Context, sessionID string) (*backend.Verification, error) {
	if sessionID == "" {
		return nil, backend.NewError(backend.ValidationError, "session id is required")
	}
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	s, err := g.api.CheckoutSessions.Get(sessionID, params)
	if err != nil {
		return nil, backend.Wrap(backend.APIError, err, "retrieve checkout session")
	}
	return verificationOf(s)
}

func verificationOf(s *stripe.CheckoutSession) (*backend.Verification, error) {
	v := &backend.Verification{
		SessionID: s.ID,
		PlanType:  backend.PlanType(s.Metadata[metadataPlan]),
		Paid:      s.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid,
	}
	if s.Customer != nil {
		v.CustomerID = s.Customer.ID
	}
	if s.PaymentIntent != nil {
		v.PaymentIntent = s.PaymentIntent.ID
	}
	if !v.Paid {
		return nil, backend.NewError(backend.APIError, "payment for session %s is not complete", s.ID)
	}
	if v.CustomerID == "" {
		// One-time payments without a customer record still need an id.
		v.CustomerID = "guest_" + s.ID
	}
	return v, nil
}

func checkoutParams(cfg Config, plan backend.PlanType) (*stripe.CheckoutSessionParams, error) {
	p, ok := backend.LookupPlan(plan)
	if !ok {
		return nil, backend.NewError(backend.ValidationError, "unknown plan %q", plan)
	}
	item := &stripe.CheckoutSessionLineItemParams{Quantity: stripe.Int64(1)}
	if price := cfg.Prices[plan]; price != "" {
		item.Price = stripe.String(price)
	} else {
		item.PriceData = &stripe.CheckoutSessionLineItemPriceDataParams{
			// JPY is a zero-decimal currency.
			Currency:   stripe.String(string(stripe.CurrencyJPY)),
			UnitAmount: stripe.Int64(int64(p.PriceJPY)),
			ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
				Name:        stripe.String("wordsmith " + p.Name),
				Description: stripe.String(p.Description),
			},
		}
	}

	params := &stripe.CheckoutSessionParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems:          []*stripe.CheckoutSessionLineItemParams{item},
		SuccessURL:         stripe.String(withPlan(cfg.SuccessURL, plan)),
		CancelURL:          stripe.String(cfg.CancelURL),
	}
	params.AddMetadata(metadataPlan, string(plan))
	return params, nil
}

// withPlan appends plan_type to a redirect URL.
func withPlan(rawURL string, plan backend.PlanType) string {
	sep := "?"
	if strings.Contains(rawURL, "?") {
		sep = "&"
	}
	return rawURL + sep + "plan_type=" + string(plan)
}

// Mock is an offline gateway. Sessions it creates verify as paid.
type Mock struct {
	successURL string

	mu       sync.Mutex
	sessions map[string]backend.PlanType
}

// NewMock returns a mock gateway that redirects to successURL.
func NewMock(successURL string) *Mock {
	return &Mock{successURL: successURL, sessions: map[string]backend.PlanType{}}
}

// MockSessionPrefix marks session ids the mock accepts.
const MockSessionPrefix = "cs_test_"

// CreateCheckout implements backend.PaymentGateway.
func (m *Mock) CreateCheckout(_ context.Context, plan backend.PlanType) (*backend.Checkout, error) {
	if _, ok := backend.LookupPlan(plan); !ok {
		return nil, backend.NewError(backend.ValidationError, "unknown plan %q", plan)
	}
	id := MockSessionPrefix + strings.ReplaceAll(uuid.NewString(), "-", "")
	m.mu.Lock()
	m.sessions[id] = plan
	m.mu.Unlock()

	url := strings.ReplaceAll(withPlan(m.successURL, plan), "{CHECKOUT_SESSION_ID}", id)
	return &backend.Checkout{SessionID: id, URL: url}, nil
}

// VerifySession implements backend.PaymentGateway. Any id with the mock
// prefix verifies; the plan is known only for sessions this mock created.
func (m *Mock) VerifySession(_ context.Context, sessionID string) (*backend.Verification, error) {
	if !strings.HasPrefix(sessionID, MockSessionPrefix) {
		return nil, backend.NewError(backend.APIError, "unknown checkout session %q", sessionID)
	}
	m.mu.Lock()
	plan := m.sessions[sessionID]
	m.mu.Unlock()
	suffix := strings.TrimPrefix(sessionID, MockSessionPrefix)
	return &backend.Verification{
		SessionID:     sessionID,
		CustomerID:    fmt.Sprintf("cus_mock_%s", suffix),
		PlanType:      plan,
		PaymentIntent: fmt.Sprintf("pi_mock_%s", suffix),
		Paid:          true,
	}, nil
}
