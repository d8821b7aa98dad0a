package services

import (
	"context"
	"errors"

	"emiho-marketplace/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Store is the persistence the services need; *database.Store implements it
type Store interface {
	GetProfile(ctx context.Context, id uuid.UUID) (*models.Profile, error)
	GetProfileByEmail(ctx context.Context, email string) (*models.Profile, error)
	UpsertProfile(ctx context.Context, profile *models.Profile) error
	SetStripeAccountID(ctx context.Context, profileID uuid.UUID, accountID string) error

	GetActiveProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	CreateProduct(ctx context.Context, product *models.Product) error
	ListActiveProducts(ctx context.Context, limit, offset int) ([]models.Product, error)
	ListProductsBySeller(ctx context.Context, sellerID uuid.UUID) ([]models.Product, error)

	FindTransactionByReference(ctx context.Context, reference string) (*models.Transaction, error)
	InsertTransactionIfAbsent(ctx context.Context, transaction *models.Transaction) (bool, error)
	TransitionTransaction(ctx context.Context, reference string, from, to models.TransactionStatus) (bool, error)
	ListSales(ctx context.Context, sellerID uuid.UUID) ([]models.Transaction, error)
	ListPurchases(ctx context.Context, buyerID uuid.UUID) ([]models.Transaction, error)
	SellerEarnings(ctx context.Context, sellerID uuid.UUID) (decimal.Decimal, error)
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// lookupError maps a store read failure onto NotFound or PersistenceError
func lookupError(what string, err error) *Error {
	if isNotFound(err) {
		return notFound(what)
	}
	return persistence("failed to load "+what, err)
}

func parseID(field, value string) (uuid.UUID, error) {
	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, invalidRequest("%s must be a valid id", field)
	}
	return id, nil
}
