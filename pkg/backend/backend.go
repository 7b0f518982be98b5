// Package backend defines the contracts wordsmith uses to reach its text
// transformation, auth, billing and payment services, and the error payload
// they share.
package backend

import (
	"context"
	"time"
)

// ConvertType selects the text transformation.
type ConvertType string

const (
	Translate ConvertType = "translate"
	Revision  ConvertType = "revision"
	Summarize ConvertType = "summarize"
	Formalize ConvertType = "formalize"
	Heartful  ConvertType = "heartful"
	Spark     ConvertType = "spark"
)

// DefaultConvertType is used when no preference has been stored.
const DefaultConvertType = Revision

// ConvertTypes lists every transformation in menu order.
func ConvertTypes() []ConvertType {
	return []ConvertType{Translate, Revision, Summarize, Formalize, Heartful, Spark}
}

// ParseConvertType reports whether s names a known transformation.
func ParseConvertType(s string) (ConvertType, bool) {
	for _, ct := range ConvertTypes() {
		if string(ct) == s {
			return ct, true
		}
	}
	return "", false
}

// Label is the human readable name shown in menus.
func (c ConvertType) Label() string {
	switch c {
	case Translate:
		return "Translate"
	case Revision:
		return "Revise"
	case Summarize:
		return "Summarize"
	case Formalize:
		return "Formalize"
	case Heartful:
		return "Heartful"
	case Spark:
		return "Spark"
	}
	return string(c)
}

// Transformer converts text with a transformation type.
type Transformer interface {
	Transform(ctx context.Context, text string, ct ConvertType) (string, error)
}

// Session is what the auth service hands back on login or refresh.
type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	IDToken      string `json:"id_token,omitempty"`
	TokenType    string `json:"token_type"`
	// ExpiresIn is the access token lifetime in seconds.
	ExpiresIn int `json:"expires_in"`
}

// Authenticator talks to the account service.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*Session, error)
	Register(ctx context.Context, email, password string) error
	VerifyEmail(ctx context.Context, email, code string) error
	VerifyEmailAndLogin(ctx context.Context, email, password, code string) (*Session, error)
	// Refresh exchanges a refresh token for a new session. The returned
	// session may carry an empty RefreshToken, meaning "keep the old one".
	Refresh(ctx context.Context, refreshToken string) (*Session, error)
}

// Billing is the subscription service of record. Every call returns the
// authoritative status after the operation.
type Billing interface {
	Status(ctx context.Context) (*SubscriptionStatus, error)
	Update(ctx context.Context, plan PlanType, customerID, token string) (*SubscriptionStatus, error)
	Reset(ctx context.Context) (*SubscriptionStatus, error)
	CheckValidity(ctx context.Context) (*SubscriptionStatus, error)
}

// Checkout is a payment session the user completes in a browser.
type Checkout struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
}

// Verification is the result of confirming a completed checkout.
type Verification struct {
	SessionID     string   `json:"session_id"`
	CustomerID    string   `json:"customer_id"`
	PlanType      PlanType `json:"plan_type"`
	PaymentIntent string   `json:"payment_intent"`
	Paid          bool     `json:"paid"`
}

// PaymentGateway starts and verifies plan purchases.
type PaymentGateway interface {
	CreateCheckout(ctx context.Context, plan PlanType) (*Checkout, error)
	VerifySession(ctx context.Context, sessionID string) (*Verification, error)
}

// Clock returns the current time. Components default to time.Now.
type Clock func() time.Time
