package services

import (
	"context"
	"strings"

	"emiho-marketplace/internal/models"
	"emiho-marketplace/pkg/logging"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PurchasedProduct is what the buyer's success page shows
type PurchasedProduct struct {
	ID          uuid.UUID        `json:"id"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	MediaURLs   []string         `json:"media_urls"`
	MediaType   models.MediaType `json:"media_type"`
	Price       decimal.Decimal  `json:"price"`
}

// PurchaseResolver answers "what did I just buy" after the checkout redirect.
// The redirect can arrive before the confirmation event, so it records the
// sale itself under the same payment reference the reconciler uses.
type PurchaseResolver struct {
	store      Store
	gateway    PaymentGateway
	reconciler *Reconciler
}

// NewPurchaseResolver creates a purchase resolver
func NewPurchaseResolver(store Store, gateway PaymentGateway, reconciler *Reconciler) *PurchaseResolver {
	return &PurchaseResolver{
		store:      store,
		gateway:    gateway,
		reconciler: reconciler,
	}
}

// Resolve looks the session up at the processor and returns the product
func (r *PurchaseResolver) Resolve(ctx context.Context, sessionID string) (*PurchasedProduct, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, invalidRequest("Session ID is required")
	}

	session, err := r.gateway.GetCheckoutSession(ctx, sessionID)
	if err != nil {
		logging.Errorf("Failed to retrieve checkout session %s: %v", sessionID, err)
		return nil, upstream(describeUpstream(err), err)
	}

	if !session.IsPaid() {
		return nil, newError(KindPaymentNotCompleted, "Payment not completed", nil)
	}

	pc, ok := models.PurchaseContextFromMetadata(session.Metadata)
	if !ok {
		return nil, invalidRequest("Missing required metadata")
	}
	productID, err := parseID("productId", pc.ProductID)
	if err != nil {
		return nil, err
	}
	sellerID, err := parseID("sellerId", pc.SellerID)
	if err != nil {
		return nil, err
	}

	buyer, err := r.store.GetProfileByEmail(ctx, pc.BuyerEmail)
	if err != nil {
		return nil, lookupError("Buyer", err)
	}

	outcome, err := r.reconciler.RecordPurchase(ctx, PurchaseRecord{
		PaymentReference: session.IdempotencyKey(),
		SessionID:        session.ID,
		ProductID:        productID,
		SellerID:         sellerID,
		BuyerID:          buyer.ID,
		BuyerEmail:       pc.BuyerEmail,
		AmountTotal:      session.AmountTotal,
		Currency:         session.Currency,
		Status:           models.TransactionCompleted,
	})
	if err != nil {
		// The confirmation event will record the sale on redelivery.
		logging.Errorf("Error recording purchase for session %s: %v", session.ID, err)
	} else {
		logging.Infof("Purchase resolved - session: %s, outcome: %s", session.ID, outcome)
	}

	product, err := r.store.GetProduct(ctx, productID)
	if err != nil {
		return nil, lookupError("Product", err)
	}

	return &PurchasedProduct{
		ID:          product.ID,
		Title:       product.Title,
		Description: product.Description,
		MediaURLs:   product.MediaURLs,
		MediaType:   product.MediaType,
		Price:       product.Price,
	}, nil
}
