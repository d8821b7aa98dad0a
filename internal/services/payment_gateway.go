package services

import (
	"context"
	"errors"
	"net"

	"github.com/stripe/stripe-go/v81"
)

// PaymentGateway is the hosted payment processor as seen by the marketplace
type PaymentGateway interface {
	CreateCheckoutSession(ctx context.Context, input CheckoutSessionInput) (*GatewaySession, error)
	GetCheckoutSession(ctx context.Context, sessionID string) (*GatewaySession, error)
	CreatePayoutAccount(ctx context.Context, email string) (string, error)
	CreateOnboardingLink(ctx context.Context, accountID string) (string, error)
	CreateLoginLink(ctx context.Context, accountID string) (string, error)
}

// CheckoutSessionInput describes a single-item hosted checkout whose
// application fee is retained by the platform and whose remainder is
// transferred to DestinationAccount by the processor at settlement.
type CheckoutSessionInput struct {
	Currency             string
	UnitAmount           int64
	ProductName          string
	ProductDescription   string
	CustomerEmail        string
	ApplicationFeeAmount int64
	DestinationAccount   string
	SuccessURL           string
	CancelURL            string
	Metadata             map[string]string
}

// GatewaySession is the processor's view of a checkout session
type GatewaySession struct {
	ID               string
	URL              string
	PaymentStatus    string
	PaymentReference string
	AmountTotal      int64
	Currency         string
	CustomerEmail    string
	Metadata         map[string]string
}

// Session payment statuses reported by the processor
const (
	PaymentStatusPaid              = string(stripe.CheckoutSessionPaymentStatusPaid)
	PaymentStatusUnpaid            = string(stripe.CheckoutSessionPaymentStatusUnpaid)
	PaymentStatusNoPaymentRequired = string(stripe.CheckoutSessionPaymentStatusNoPaymentRequired)
)

// IsPaid reports whether the session's payment has settled
func (s *GatewaySession) IsPaid() bool {
	return s.PaymentStatus == PaymentStatusPaid || s.PaymentStatus == PaymentStatusNoPaymentRequired
}

// IdempotencyKey is the key transactions are deduplicated on: the payment
// intent id, or the session id for sessions that carry no payment intent.
func (s *GatewaySession) IdempotencyKey() string {
	if s.PaymentReference != "" {
		return s.PaymentReference
	}
	return s.ID
}

// describeUpstream extracts the processor's own message from err
func describeUpstream(err error) string {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) && stripeErr.Msg != "" {
		return stripeErr.Msg
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "payment processor timed out"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "payment processor timed out"
	}
	return err.Error()
}
