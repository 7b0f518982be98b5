// Package payment recognizes the redirects a checkout returns to.
package payment

import (
	"net/url"
	"strings"

	"tableflip.dev/wordsmith/pkg/backend"
)

// Kind classifies a redirect.
type Kind int

const (
	None Kind = iota
	Success
	Cancel
)

func (k Kind) String() string {
	switch k {
	case Success:
		return "success"
	case Cancel:
		return "cancel"
	}
	return "none"
}

const (
	SuccessPath = "/payment-success"
	CancelPath  = "/payment-cancel"
)

// Redirect is a parsed redirect.
type Redirect struct {
	Kind      Kind
	SessionID string
	Plan      backend.PlanType
}

// Parse classifies rawURL. It accepts http(s) URLs, custom scheme URLs such
// as wordsmith://payment-success?..., and bare paths.
func Parse(rawURL string) Redirect {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return Redirect{}
	}
	path := u.Path
	// wordsmith://payment-success puts the route in the host.
	if u.Scheme != "" && u.Scheme != "http" && u.Scheme != "https" && u.Host != "" {
		path = "/" + u.Host + u.Path
	}
	path = "/" + strings.Trim(path, "/")

	switch path {
	case SuccessPath:
		q := u.Query()
		return Redirect{
			Kind:      Success,
			SessionID: q.Get("session_id"),
			Plan:      backend.PlanType(q.Get("plan_type")),
		}
	case CancelPath:
		return Redirect{Kind: Cancel}
	}
	return Redirect{}
}
