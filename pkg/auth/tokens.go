package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"tableflip.dev/wordsmith/pkg/backend"
)

// defaultLifetime applies when neither expires_in nor an exp claim is known.
const defaultLifetime = time.Hour

// Tokens is the session persisted under auth.json "tokens".
type Tokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	IDToken      string `json:"id_token,omitempty"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	// ExpiresAt is unix milliseconds.
	ExpiresAt int64  `json:"expires_at"`
	UserEmail string `json:"user_email,omitempty"`
}

// Expired reports whether the access token has expired at now.
func (t *Tokens) Expired(now time.Time) bool {
	return t == nil || now.UnixMilli() >= t.ExpiresAt
}

// Expiry returns ExpiresAt as a time.
func (t *Tokens) Expiry() time.Time {
	return time.UnixMilli(t.ExpiresAt)
}

type idClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// claimsOf reads token claims without verifying the signature. The service
// already verified them; we only need exp and email.
func claimsOf(token string) *idClaims {
	if token == "" {
		return nil
	}
	claims := &idClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil
	}
	return claims
}

func newTokens(s *backend.Session, email string, now time.Time) *Tokens {
	t := &Tokens{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		IDToken:      s.IDToken,
		TokenType:    s.TokenType,
		ExpiresIn:    s.ExpiresIn,
		UserEmail:    email,
	}
	if t.TokenType == "" {
		t.TokenType = "Bearer"
	}

	expiry := now.Add(defaultLifetime)
	if s.ExpiresIn > 0 {
		expiry = now.Add(time.Duration(s.ExpiresIn) * time.Second)
	} else if c := claimsOf(s.AccessToken); c != nil && c.ExpiresAt != nil {
		expiry = c.ExpiresAt.Time
	}
	t.ExpiresAt = expiry.UnixMilli()

	if t.UserEmail == "" {
		if c := claimsOf(s.IDToken); c != nil {
			t.UserEmail = c.Email
		}
	}
	return t
}
