package models

// EventKind is the discriminator of a verified payment event
type EventKind string

const (
	EventPaymentCompleted EventKind = "payment_completed"
	EventPaymentPending   EventKind = "payment_pending"
	EventPaymentFailed    EventKind = "payment_failed"
	EventIgnored          EventKind = "ignored"
)

// Metadata keys written onto checkout sessions. They are the only way a
// confirmation event can be tied back to marketplace records.
const (
	MetadataProductID   = "productId"
	MetadataSellerID    = "sellerId"
	MetadataBuyerEmail  = "buyerEmail"
	MetadataSellerEmail = "sellerEmail"
	MetadataSellerName  = "sellerName"
)

// PaymentEvent is a signature-verified confirmation event from the processor
type PaymentEvent struct {
	ID               string            `json:"id"`
	Type             string            `json:"type"`
	Kind             EventKind         `json:"kind"`
	SessionID        string            `json:"session_id"`
	PaymentReference string            `json:"payment_reference"`
	AmountTotal      int64             `json:"amount_total"` // minor units
	Currency         string            `json:"currency"`
	PaymentStatus    string            `json:"payment_status"`
	CustomerEmail    string            `json:"customer_email"`
	Metadata         map[string]string `json:"metadata"`
}

// PurchaseContext is the marketplace context recovered from session metadata
type PurchaseContext struct {
	ProductID  string
	SellerID   string
	BuyerEmail string
}

// PurchaseContextFromMetadata extracts the purchase context. ok is false when
// any of the required keys is missing.
func PurchaseContextFromMetadata(metadata map[string]string) (PurchaseContext, bool) {
	pc := PurchaseContext{
		ProductID:  metadata[MetadataProductID],
		SellerID:   metadata[MetadataSellerID],
		BuyerEmail: metadata[MetadataBuyerEmail],
	}
	if pc.ProductID == "" || pc.SellerID == "" || pc.BuyerEmail == "" {
		return pc, false
	}
	return pc, true
}
