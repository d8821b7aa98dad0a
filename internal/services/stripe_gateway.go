package services

import (
	"context"
	"net/http"
	"time"

	"emiho-marketplace/internal/config"

	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/client"
)

// StripeGateway implements PaymentGateway with Stripe Checkout and Connect
type StripeGateway struct {
	api     *client.API
	timeout time.Duration
	country string
	appURL  string
}

// NewStripeGateway builds a Stripe client whose HTTP calls are bounded by
// cfg.StripeTimeout.
func NewStripeGateway(cfg *config.Config) *StripeGateway {
	httpClient := &http.Client{Timeout: cfg.StripeTimeout}
	return &StripeGateway{
		api:     client.New(cfg.StripeSecretKey, stripe.NewBackends(httpClient)),
		timeout: cfg.StripeTimeout,
		country: cfg.StripeConnectCountry,
		appURL:  cfg.AppURL,
	}
}

func (g *StripeGateway) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, g.timeout)
}

// CreateCheckoutSession creates a hosted checkout with a destination charge
func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, input CheckoutSessionInput) (*GatewaySession, error) {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	productData := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
		Name: stripe.String(input.ProductName),
	}
	if input.ProductDescription != "" {
		productData.Description = stripe.String(input.ProductDescription)
	}

	params := &stripe.CheckoutSessionParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:    stripe.String(input.Currency),
					ProductData: productData,
					UnitAmount:  stripe.Int64(input.UnitAmount),
				},
				Quantity: stripe.Int64(1),
			},
		},
		CustomerEmail: stripe.String(input.CustomerEmail),
		SuccessURL:    stripe.String(input.SuccessURL),
		CancelURL:     stripe.String(input.CancelURL),
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			ApplicationFeeAmount: stripe.Int64(input.ApplicationFeeAmount),
			TransferData: &stripe.CheckoutSessionPaymentIntentDataTransferDataParams{
				Destination: stripe.String(input.DestinationAccount),
			},
			Metadata: input.Metadata,
		},
	}
	for key, value := range input.Metadata {
		params.AddMetadata(key, value)
	}
	params.Context = ctx

	session, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, err
	}
	return sessionFromStripe(session), nil
}

// GetCheckoutSession retrieves a session with its payment intent expanded
func (g *StripeGateway) GetCheckoutSession(ctx context.Context, sessionID string) (*GatewaySession, error) {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	params := &stripe.CheckoutSessionParams{}
	params.AddExpand("payment_intent")
	params.Context = ctx

	session, err := g.api.CheckoutSessions.Get(sessionID, params)
	if err != nil {
		return nil, err
	}
	return sessionFromStripe(session), nil
}

// CreatePayoutAccount creates an Express connected account for a seller
func (g *StripeGateway) CreatePayoutAccount(ctx context.Context, email string) (string, error) {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	params := &stripe.AccountParams{
		Type:    stripe.String(string(stripe.AccountTypeExpress)),
		Country: stripe.String(g.country),
		Email:   stripe.String(email),
	}
	params.Context = ctx

	account, err := g.api.Accounts.New(params)
	if err != nil {
		return "", err
	}
	return account.ID, nil
}

// CreateOnboardingLink creates the hosted onboarding link for an account
func (g *StripeGateway) CreateOnboardingLink(ctx context.Context, accountID string) (string, error) {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	params := &stripe.AccountLinkParams{
		Account:    stripe.String(accountID),
		RefreshURL: stripe.String(g.appURL + "/onboarding/refresh"),
		ReturnURL:  stripe.String(g.appURL + "/onboarding/success"),
		Type:       stripe.String("account_onboarding"),
	}
	params.Context = ctx

	link, err := g.api.AccountLinks.New(params)
	if err != nil {
		return "", err
	}
	return link.URL, nil
}

// CreateLoginLink creates an Express dashboard login link
func (g *StripeGateway) CreateLoginLink(ctx context.Context, accountID string) (string, error) {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	params := &stripe.LoginLinkParams{
		Account: stripe.String(accountID),
	}
	params.Context = ctx

	link, err := g.api.LoginLinks.New(params)
	if err != nil {
		return "", err
	}
	return link.URL, nil
}

func sessionFromStripe(s *stripe.CheckoutSession) *GatewaySession {
	gs := &GatewaySession{
		ID:            s.ID,
		URL:           s.URL,
		PaymentStatus: string(s.PaymentStatus),
		AmountTotal:   s.AmountTotal,
		Currency:      string(s.Currency),
		CustomerEmail: s.CustomerEmail,
		Metadata:      s.Metadata,
	}
	if s.PaymentIntent != nil {
		gs.PaymentReference = s.PaymentIntent.ID
	}
	if s.CustomerDetails != nil && s.CustomerDetails.Email != "" {
		gs.CustomerEmail = s.CustomerDetails.Email
	}
	return gs
}
