package app

import (
	"context"
	"errors"
	"fmt"

	"tableflip.dev/wordsmith/pkg/backend"
	"tableflip.dev/wordsmith/pkg/events"
	"tableflip.dev/wordsmith/pkg/payment"
	"tableflip.dev/wordsmith/pkg/screen"
)

// ErrUnknownRedirect is returned for URLs that are not payment redirects.
var ErrUnknownRedirect = errors.New("app: not a payment redirect")

// Purchase starts a checkout for plan. The returned URL is opened by the
// user; the checkout redirects back to HandleRedirect.
func (a *App) Purchase(ctx context.Context, plan backend.PlanType) (*backend.Checkout, error) {
	if _, ok := backend.LookupPlan(plan); !ok {
		return nil, backend.NewError(backend.ValidationError, "unknown plan %q", plan)
	}
	co, err := a.Payments.CreateCheckout(ctx, plan)
	if err != nil {
		a.log.Error().Err(err).Str("plan", string(plan)).Msg("create checkout")
		a.notify(events.Notify(events.LevelError, "Checkout failed", backend.Message(err)))
		return nil, err
	}
	a.log.Info().Str("plan", string(plan)).Str("session", co.SessionID).Msg("checkout created")
	return co, nil
}

// HandleRedirect applies a payment redirect. A verified success applies the
// plan and shows MAIN; a cancel shows SUBSCRIPTION. Failures are published
// as notifications and leave the screen unchanged.
func (a *App) HandleRedirect(ctx context.Context, rawURL string) (payment.Redirect, error) {
	r := payment.Parse(rawURL)
	switch r.Kind {
	case payment.Cancel:
		a.Screen.Switch(screen.Subscription)
		a.notify(events.Notify(events.LevelInfo, "Payment cancelled", "No charge was made."))
		return r, nil
	case payment.Success:
		if err := a.completePurchase(ctx, r); err != nil {
			return r, err
		}
		return r, nil
	}
	return r, fmt.Errorf("%w: %q", ErrUnknownRedirect, rawURL)
}

func (a *App) completePurchase(ctx context.Context, r payment.Redirect) error {
	log := a.log.With().Str("session", r.SessionID).Logger()

	v, err := a.Payments.VerifySession(ctx, r.SessionID)
	if err != nil {
		log.Error().Err(err).Msg("verify checkout session")
		a.notify(events.Notify(events.LevelError, "Payment verification failed", backend.Message(err)))
		return err
	}
	plan := v.PlanType
	if plan == "" {
		plan = r.Plan
	}
	token := v.PaymentIntent
	if token == "" {
		token = v.SessionID
	}

	st, err := a.Subscription.UpdatePlan(ctx, plan, v.CustomerID, token)
	if err != nil {
		log.Error().Err(err).Str("plan", string(plan)).Msg("apply purchased plan")
		a.notify(events.Notify(events.LevelError, "Subscription update failed", backend.Message(err)))
		return err
	}

	a.Screen.Switch(screen.Main)
	msg := fmt.Sprintf("%s plan active.", plan)
	if p, ok := backend.LookupPlan(plan); ok {
		msg = fmt.Sprintf("%s plan active for %d day(s).", p.Name, st.DaysRemaining)
	}
	log.Info().Str("plan", string(plan)).Msg("purchase applied")
	a.notify(events.Notify(events.LevelSuccess, "Payment complete", msg))
	return nil
}
