package subscription

import (
	"fmt"

	"tableflip.dev/wordsmith/pkg/backend"
)

// Validation summarizes a status for display.
type Validation struct {
	Valid         bool   `json:"valid"`
	Expired       bool   `json:"expired"`
	ExpiringSoon  bool   `json:"expiring_soon"`
	DaysRemaining int    `json:"days_remaining"`
	Message       string `json:"message,omitempty"`
}

// Validate classifies st. A nil status is treated as free.
func Validate(st *backend.SubscriptionStatus) Validation {
	if st == nil || st.PlanType == backend.PlanFree {
		return Validation{Message: "You are on the free plan"}
	}
	if !st.IsActive {
		return Validation{Expired: true, Message: "Your subscription has expired"}
	}
	v := Validation{
		Valid:         true,
		DaysRemaining: st.DaysRemaining,
		ExpiringSoon:  st.DaysRemaining <= ExpiringSoonDays,
	}
	if v.ExpiringSoon {
		v.Message = fmt.Sprintf("Your subscription ends in %d day(s)", st.DaysRemaining)
	}
	return v
}

// StatusText is the one-line plan description shown in the UI.
func StatusText(st *backend.SubscriptionStatus, limit int) string {
	v := Validate(st)
	switch {
	case st == nil || st.PlanType == backend.PlanFree:
		return fmt.Sprintf("Free plan (%d conversions/day)", limit)
	case v.Expired:
		return "Premium plan expired"
	case v.ExpiringSoon:
		return fmt.Sprintf("Premium plan (%d day(s) left)", v.DaysRemaining)
	}
	name := string(st.PlanType)
	if plan, ok := backend.LookupPlan(st.PlanType); ok {
		name = plan.Name
	}
	return fmt.Sprintf("%s plan (%d day(s) left)", name, v.DaysRemaining)
}
