package backend

import (
	"math"
	"time"
)

// PlanType names a subscription plan.
type PlanType string

const (
	PlanFree    PlanType = "free"
	PlanWeekly  PlanType = "weekly"
	PlanMonthly PlanType = "monthly"
)

// Plan is an entry in the plan catalog.
type Plan struct {
	Type        PlanType `json:"type"`
	Name        string   `json:"name"`
	Days        int      `json:"days"`
	PriceJPY    int      `json:"price_jpy"`
	Description string   `json:"description"`
}

var plans = []Plan{
	{Type: PlanWeekly, Name: "Weekly", Days: 7, PriceJPY: 150, Description: "Unlimited conversions for 7 days"},
	{Type: PlanMonthly, Name: "Monthly", Days: 30, PriceJPY: 490, Description: "Unlimited conversions for 30 days"},
}

// Plans returns the purchasable plans.
func Plans() []Plan {
	out := make([]Plan, len(plans))
	copy(out, plans)
	return out
}

// LookupPlan returns the purchasable plan with type t.
func LookupPlan(t PlanType) (Plan, bool) {
	for _, p := range plans {
		if p.Type == t {
			return p, true
		}
	}
	return Plan{}, false
}

// SubscriptionStatus is the subscription state reported by Billing.
type SubscriptionStatus struct {
	PlanType      PlanType   `json:"plan_type"`
	IsActive      bool       `json:"is_active"`
	DaysRemaining int        `json:"days_remaining"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
}

// SubscriptionInfo is the stored record a status is computed from.
type SubscriptionInfo struct {
	PlanType          PlanType   `json:"plan_type"`
	ExpiresAt         *time.Time `json:"expires_at,omitempty"`
	StripeCustomerID  string     `json:"stripe_customer_id,omitempty"`
	VerificationToken string     `json:"verification_token,omitempty"`
	PurchasedAt       *time.Time `json:"purchased_at,omitempty"`
}

// FreeStatus is the status of a user without a plan.
func FreeStatus() *SubscriptionStatus {
	return &SubscriptionStatus{PlanType: PlanFree}
}

// StatusOf computes the status of info at now. A free plan is never active;
// a paid plan is active only while its expiry is in the future.
func StatusOf(info *SubscriptionInfo, now time.Time) *SubscriptionStatus {
	if info == nil || info.PlanType == "" || info.PlanType == PlanFree {
		return FreeStatus()
	}
	st := &SubscriptionStatus{PlanType: info.PlanType}
	if info.ExpiresAt == nil {
		return st
	}
	exp := *info.ExpiresAt
	st.ExpiresAt = &exp
	st.IsActive = exp.After(now)
	st.DaysRemaining = DaysRemaining(exp, now)
	return st
}

// DaysRemaining rounds the time left up to whole days, never below zero.
func DaysRemaining(expiresAt, now time.Time) int {
	diff := expiresAt.Sub(now)
	if diff <= 0 {
		return 0
	}
	return int(math.Ceil(diff.Hours() / 24))
}
