package services

import (
	"encoding/json"
	"time"

	"emiho-marketplace/internal/models"
	"emiho-marketplace/pkg/logging"

	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/webhook"
)

// Checkout event types the reconciler acts on
const (
	eventCheckoutCompleted             = "checkout.session.completed"
	eventCheckoutAsyncPaymentSucceeded = "checkout.session.async_payment_succeeded"
	eventCheckoutAsyncPaymentFailed    = "checkout.session.async_payment_failed"
)

// EventVerifier authenticates processor confirmation events. It only ever
// sees the raw request bytes; re-encoded JSON would not match the signature.
type EventVerifier struct {
	secret    string
	tolerance time.Duration
}

// NewEventVerifier creates a verifier for the endpoint's signing secret
func NewEventVerifier(secret string) *EventVerifier {
	return &EventVerifier{
		secret:    secret,
		tolerance: webhook.DefaultTolerance,
	}
}

// Verify checks signatureHeader against payload and decodes the event
func (v *EventVerifier) Verify(payload []byte, signatureHeader string) (*models.PaymentEvent, error) {
	if v.secret == "" {
		return nil, newError(KindConfiguration, "webhook secret is not configured", nil)
	}
	if signatureHeader == "" {
		return nil, newError(KindConfiguration, "missing Stripe-Signature header", nil)
	}

	event, err := webhook.ConstructEventWithOptions(payload, signatureHeader, v.secret, webhook.ConstructEventOptions{
		Tolerance:                v.tolerance,
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, newError(KindInvalidSignature, "signature verification failed", err)
	}

	return eventFromStripe(event)
}

func eventFromStripe(event stripe.Event) (*models.PaymentEvent, error) {
	pe := &models.PaymentEvent{
		ID:   event.ID,
		Type: string(event.Type),
		Kind: models.EventIgnored,
	}

	switch pe.Type {
	case eventCheckoutCompleted, eventCheckoutAsyncPaymentSucceeded, eventCheckoutAsyncPaymentFailed:
	default:
		return pe, nil
	}

	// Unreadable signed events are acknowledged as ignored.
	if event.Data == nil {
		logging.Warnf("Event %s (%s) has no data, ignoring", event.ID, pe.Type)
		return pe, nil
	}
	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		logging.Warnf("Event %s (%s) carries an unreadable checkout session, ignoring: %v", event.ID, pe.Type, err)
		return pe, nil
	}

	gs := sessionFromStripe(&session)
	pe.SessionID = gs.ID
	pe.PaymentReference = gs.IdempotencyKey()
	pe.AmountTotal = gs.AmountTotal
	pe.Currency = gs.Currency
	pe.PaymentStatus = gs.PaymentStatus
	pe.CustomerEmail = gs.CustomerEmail
	pe.Metadata = gs.Metadata

	switch pe.Type {
	case eventCheckoutCompleted:
		if gs.IsPaid() {
			pe.Kind = models.EventPaymentCompleted
		} else {
			pe.Kind = models.EventPaymentPending
		}
	case eventCheckoutAsyncPaymentSucceeded:
		pe.Kind = models.EventPaymentCompleted
	case eventCheckoutAsyncPaymentFailed:
		pe.Kind = models.EventPaymentFailed
	}
	return pe, nil
}
