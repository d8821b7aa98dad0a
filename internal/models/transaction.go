package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionStatus is the settlement state of a sale
type TransactionStatus string

const (
	TransactionPending   TransactionStatus = "pending"
	TransactionCompleted TransactionStatus = "completed"
	TransactionFailed    TransactionStatus = "failed"
)

// CanTransitionTo reports whether a status change is allowed.
// Only pending rows move, and only forward.
func (s TransactionStatus) CanTransitionTo(next TransactionStatus) bool {
	return s == TransactionPending && (next == TransactionCompleted || next == TransactionFailed)
}

// Transaction is one recorded sale.
// One row per settled payment; ExternalPaymentReference is the idempotency key.
type Transaction struct {
	BaseModel

	ProductID uuid.UUID `json:"product_id" gorm:"type:uuid;not null;index"`
	Product   *Product  `json:"product,omitempty" gorm:"foreignKey:ProductID;references:ID"`
	BuyerID   uuid.UUID `json:"buyer_id" gorm:"type:uuid;not null;index"`
	Buyer     *Profile  `json:"-" gorm:"foreignKey:BuyerID;references:ID"`
	SellerID  uuid.UUID `json:"seller_id" gorm:"type:uuid;not null;index"`
	Seller    *Profile  `json:"-" gorm:"foreignKey:SellerID;references:ID"`

	// Processor identifiers
	ExternalPaymentReference string `json:"external_payment_reference" gorm:"not null;size:255;uniqueIndex"`
	CheckoutSessionID        string `json:"checkout_session_id" gorm:"size:255;index"`

	// Amounts, TotalAmount == PlatformFee + SellerAmount
	TotalAmount  decimal.Decimal `json:"total_amount" gorm:"type:decimal(12,2);not null"`
	PlatformFee  decimal.Decimal `json:"platform_fee" gorm:"type:decimal(12,2);not null"`
	SellerAmount decimal.Decimal `json:"seller_amount" gorm:"type:decimal(12,2);not null"`
	Currency     string          `json:"currency" gorm:"size:3"`

	Status     TransactionStatus `json:"status" gorm:"not null;size:20;index"`
	BuyerEmail string            `json:"buyer_email" gorm:"size:255"`
}

// TableName sets the table name
func (Transaction) TableName() string {
	return "transactions"
}
