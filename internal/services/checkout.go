package services

import (
	"context"
	"strings"

	"emiho-marketplace/internal/config"
	"emiho-marketplace/internal/models"
	"emiho-marketplace/pkg/logging"
	"emiho-marketplace/pkg/validator"
)

// CheckoutRequest is a buyer's request to pay for a listing
type CheckoutRequest struct {
	ProductID  string
	BuyerEmail string
}

// CheckoutSession is the provisional session the buyer is redirected to
type CheckoutSession struct {
	CheckoutURL string
	SessionID   string
	Split       Split
}

// CheckoutService builds hosted checkout sessions with a platform fee split
type CheckoutService struct {
	store    Store
	gateway  PaymentGateway
	currency string
	appURL   string
}

// NewCheckoutService creates a new checkout service
func NewCheckoutService(cfg *config.Config, store Store, gateway PaymentGateway) *CheckoutService {
	return &CheckoutService{
		store:    store,
		gateway:  gateway,
		currency: cfg.Currency,
		appURL:   cfg.AppURL,
	}
}

// CreateSession validates the purchase and asks the processor for a session.
// Nothing is written locally; the sale is recorded when payment settles.
func (s *CheckoutService) CreateSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	req.BuyerEmail = strings.TrimSpace(req.BuyerEmail)
	if req.ProductID == "" || req.BuyerEmail == "" {
		return nil, invalidRequest("Missing productId or buyerEmail")
	}
	if !validator.Email(req.BuyerEmail) {
		return nil, invalidRequest("buyerEmail is not a valid email address")
	}
	productID, err := parseID("productId", req.ProductID)
	if err != nil {
		return nil, err
	}

	product, err := s.store.GetActiveProduct(ctx, productID)
	if err != nil {
		return nil, lookupError("Product", err)
	}

	seller, err := s.store.GetProfile(ctx, product.SellerID)
	if err != nil {
		return nil, lookupError("Seller", err)
	}
	if !seller.CanReceivePayouts() {
		return nil, newError(KindSellerNotPayable, "Seller does not have a connected Stripe account", nil)
	}

	split, err := CalculateSplit(product.Price)
	if err != nil {
		return nil, err
	}

	logging.Infof("Payment split - product: %s, total: %d, platform_fee: %d, seller_amount: %d",
		product.ID, split.Total, split.PlatformFee, split.SellerAmount)

	session, err := s.gateway.CreateCheckoutSession(ctx, CheckoutSessionInput{
		Currency:             s.currency,
		UnitAmount:           split.Total,
		ProductName:          product.Title,
		ProductDescription:   product.Description,
		CustomerEmail:        req.BuyerEmail,
		ApplicationFeeAmount: split.PlatformFee,
		DestinationAccount:   *seller.StripeAccountID,
		SuccessURL:           s.appURL + "/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:            s.appURL + "/marketplace",
		Metadata: map[string]string{
			models.MetadataProductID:   product.ID.String(),
			models.MetadataSellerID:    product.SellerID.String(),
			models.MetadataBuyerEmail:  req.BuyerEmail,
			models.MetadataSellerEmail: seller.Email,
			models.MetadataSellerName:  seller.DisplayName(),
		},
	})
	if err != nil {
		logging.Errorf("Failed to create checkout session for product %s: %v", product.ID, err)
		return nil, upstream(describeUpstream(err), err)
	}

	logging.Infof("Checkout session created - session: %s, product: %s", session.ID, product.ID)

	return &CheckoutSession{
		CheckoutURL: session.URL,
		SessionID:   session.ID,
		Split:       split,
	}, nil
}
