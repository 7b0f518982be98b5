// Package mcp provides the Model Context Protocol server integration for
// wordsmith.
package mcp

import (
	"context"
	"errors"
	"strings"
	"time"

	"tableflip.dev/wordsmith/pkg/app"
	"tableflip.dev/wordsmith/pkg/backend"
	"tableflip.dev/wordsmith/pkg/subscription"
	"tableflip.dev/wordsmith/pkg/usage"
)

// Converter runs conversions. *app.App satisfies it.
type Converter interface {
	Convert(ctx context.Context, text string, ct backend.ConvertType) (string, error)
}

// UsageSource is the part of the usage counter the server reads.
type UsageSource interface {
	Records(ctx context.Context) (map[string]int, error)
	TodayCount(ctx context.Context) (int, error)
	ConvertType(ctx context.Context) (backend.ConvertType, error)
	SetConvertType(ctx context.Context, ct backend.ConvertType) error
}

// StatusSource returns the mirrored subscription status.
type StatusSource interface {
	Status() *backend.SubscriptionStatus
}

// Service coordinates the operations shared by the MCP tools and resources.
type Service struct {
	Converter    Converter
	Usage        UsageSource
	Subscription StatusSource
	Limit        int
	Now          func() time.Time
}

// ErrNotConfigured is returned when a collaborator is missing.
var ErrNotConfigured = errors.New("mcp: service is not configured")

// NewService builds a service over a running application.
func NewService(a *app.App) *Service {
	return &Service{
		Converter:    a,
		Usage:        a.Usage,
		Subscription: a.Subscription,
		Limit:        a.Config().GenerationLimit,
		Now:          time.Now,
	}
}

// ConversionDTO is the result of convert_text.
type ConversionDTO struct {
	Type   backend.ConvertType `json:"type"`
	Output string              `json:"output"`
	Today  int                 `json:"today"`
	Limit  int                 `json:"limit"`
}

// UsageDTO summarizes usage.json.
type UsageDTO struct {
	Today       int                 `json:"today"`
	Limit       int                 `json:"limit"`
	Remaining   int                 `json:"remaining"`
	Unlimited   bool                `json:"unlimited"`
	ConvertType backend.ConvertType `json:"convertType"`
	Days        []DayDTO            `json:"days"`
}

// DayDTO is one request_count entry.
type DayDTO struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// SubscriptionDTO is the mirrored status with its display text.
type SubscriptionDTO struct {
	Known         bool             `json:"known"`
	PlanType      backend.PlanType `json:"planType,omitempty"`
	IsActive      bool             `json:"isActive"`
	DaysRemaining int              `json:"daysRemaining"`
	ExpiresAt     string           `json:"expiresAt,omitempty"`
	ExpiringSoon  bool             `json:"expiringSoon"`
	Expired       bool             `json:"expired"`
	Text          string           `json:"text"`
}

// ParseConvertType resolves name, falling back to def when name is empty.
func ParseConvertType(name string, def backend.ConvertType) (backend.ConvertType, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return def, nil
	}
	ct, ok := backend.ParseConvertType(name)
	if !ok {
		return "", backend.NewError(backend.ValidationError, "unknown convert type %q", name)
	}
	return ct, nil
}

// ConvertText converts text with typeName, or the stored preference when
// typeName is empty.
func (s *Service) ConvertText(ctx context.Context, text, typeName string) (ConversionDTO, error) {
	if s.Converter == nil || s.Usage == nil {
		return ConversionDTO{}, ErrNotConfigured
	}
	def, err := s.Usage.ConvertType(ctx)
	if err != nil {
		def = backend.DefaultConvertType
	}
	ct, err := ParseConvertType(typeName, def)
	if err != nil {
		return ConversionDTO{}, err
	}
	out, err := s.Converter.Convert(ctx, text, ct)
	if err != nil {
		return ConversionDTO{}, err
	}
	today, _ := s.Usage.TodayCount(ctx)
	return ConversionDTO{Type: ct, Output: out, Today: today, Limit: s.Limit}, nil
}

// UsageSummary reports today's count and the history.
func (s *Service) UsageSummary(ctx context.Context) (UsageDTO, error) {
	if s.Usage == nil {
		return UsageDTO{}, ErrNotConfigured
	}
	records, err := s.Usage.Records(ctx)
	if err != nil {
		return UsageDTO{}, err
	}
	ct, err := s.Usage.ConvertType(ctx)
	if err != nil {
		ct = backend.DefaultConvertType
	}
	today := records[usage.DateKey(s.now())]
	dto := UsageDTO{
		Today:       today,
		Limit:       s.Limit,
		ConvertType: ct,
		Unlimited:   s.active(),
		Days:        make([]DayDTO, 0, len(records)),
	}
	if !dto.Unlimited {
		dto.Remaining = max(s.Limit-today, 0)
	}
	for _, d := range usage.Days(records) {
		dto.Days = append(dto.Days, DayDTO{Date: d, Count: records[d]})
	}
	return dto, nil
}

// SetConvertType stores the default convert type.
func (s *Service) SetConvertType(ctx context.Context, typeName string) (backend.ConvertType, error) {
	if s.Usage == nil {
		return "", ErrNotConfigured
	}
	ct, ok := backend.ParseConvertType(strings.ToLower(strings.TrimSpace(typeName)))
	if !ok {
		return "", backend.NewError(backend.ValidationError, "unknown convert type %q", typeName)
	}
	return ct, s.Usage.SetConvertType(ctx, ct)
}

// SubscriptionSummary describes the mirrored subscription.
func (s *Service) SubscriptionSummary() SubscriptionDTO {
	var st *backend.SubscriptionStatus
	if s.Subscription != nil {
		st = s.Subscription.Status()
	}
	dto := SubscriptionDTO{Text: subscription.StatusText(st, s.Limit)}
	if st == nil {
		return dto
	}
	v := subscription.Validate(st)
	dto.Known = true
	dto.PlanType = st.PlanType
	dto.IsActive = st.IsActive
	dto.DaysRemaining = st.DaysRemaining
	dto.ExpiringSoon = v.ExpiringSoon
	dto.Expired = v.Expired
	if st.ExpiresAt != nil {
		dto.ExpiresAt = st.ExpiresAt.UTC().Format(time.RFC3339)
	}
	return dto
}

// Plans returns the purchasable plans.
func (s *Service) Plans() []backend.Plan {
	return backend.Plans()
}

func (s *Service) active() bool {
	if s.Subscription == nil {
		return false
	}
	st := s.Subscription.Status()
	return st != nil && st.IsActive
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

// errorText renders err for a tool result, as a {type, message} payload
// when it carries one.
func errorText(err error) string {
	if be, ok := backend.ParseError(err); ok {
		return be.Payload()
	}
	return err.Error()
}
