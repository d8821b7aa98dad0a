package database

import (
	"context"
	"strings"

	"emiho-marketplace/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store is the relational store for profiles, products and transactions.
// Lookups that find nothing return gorm.ErrRecordNotFound.
type Store struct {
	db *gorm.DB
}

// NewStore wraps an open gorm connection
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying connection for health checks and tests
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Ping checks the database connection
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// GetProfile returns the profile with the given id
func (s *Store) GetProfile(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	var profile models.Profile
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&profile).Error
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// GetProfileByEmail looks a profile up by normalized email
func (s *Store) GetProfileByEmail(ctx context.Context, email string) (*models.Profile, error) {
	var profile models.Profile
	err := s.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).First(&profile).Error
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// UpsertProfile creates the profile or refreshes its email and name. The
// payout account is never touched here.
func (s *Store) UpsertProfile(ctx context.Context, profile *models.Profile) error {
	profile.Email = normalizeEmail(profile.Email)
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"email", "full_name", "updated_at"}),
	}).Create(profile).Error
}

// SetStripeAccountID stores the seller's connected payout account
func (s *Store) SetStripeAccountID(ctx context.Context, profileID uuid.UUID, accountID string) error {
	result := s.db.WithContext(ctx).Model(&models.Profile{}).
		Where("id = ?", profileID).
		Update("stripe_account_id", accountID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// GetActiveProduct returns the product only while it is on sale
func (s *Store) GetActiveProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := s.db.WithContext(ctx).
		Where("id = ? AND status = ?", id, models.ProductActive).
		First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// GetProduct returns the product in any status, with its seller
func (s *Store) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := s.db.WithContext(ctx).Preload("Seller").Where("id = ?", id).First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// CreateProduct stores a new listing
func (s *Store) CreateProduct(ctx context.Context, product *models.Product) error {
	return s.db.WithContext(ctx).Omit(clause.Associations).Create(product).Error
}

// ListActiveProducts returns the marketplace listing, newest first
func (s *Store) ListActiveProducts(ctx context.Context, limit, offset int) ([]models.Product, error) {
	var products []models.Product
	err := s.db.WithContext(ctx).Preload("Seller").
		Where("status = ?", models.ProductActive).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&products).Error
	return products, err
}

// ListProductsBySeller returns every listing of a seller regardless of status
func (s *Store) ListProductsBySeller(ctx context.Context, sellerID uuid.UUID) ([]models.Product, error) {
	var products []models.Product
	err := s.db.WithContext(ctx).
		Where("seller_id = ?", sellerID).
		Order("created_at DESC").
		Find(&products).Error
	return products, err
}

// FindTransactionByReference returns the transaction for a payment reference
func (s *Store) FindTransactionByReference(ctx context.Context, reference string) (*models.Transaction, error) {
	var transaction models.Transaction
	err := s.db.WithContext(ctx).Where("external_payment_reference = ?", reference).First(&transaction).Error
	if err != nil {
		return nil, err
	}
	return &transaction, nil
}

// InsertTransactionIfAbsent inserts the transaction unless one with the same
// external payment reference exists. The unique index decides races between
// concurrent writers; inserted is false for the losers.
func (s *Store) InsertTransactionIfAbsent(ctx context.Context, transaction *models.Transaction) (bool, error) {
	result := s.db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "external_payment_reference"}},
			DoNothing: true,
		}).
		Create(transaction)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// TransitionTransaction moves a transaction from one status to another. The
// WHERE clause makes the move conditional, so a row that already left
// `from` is left untouched and moved is false.
func (s *Store) TransitionTransaction(ctx context.Context, reference string, from, to models.TransactionStatus) (bool, error) {
	if !from.CanTransitionTo(to) {
		return false, nil
	}
	result := s.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("external_payment_reference = ? AND status = ?", reference, from).
		Update("status", to)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// ListSales returns the seller's transactions with their products
func (s *Store) ListSales(ctx context.Context, sellerID uuid.UUID) ([]models.Transaction, error) {
	var transactions []models.Transaction
	err := s.db.WithContext(ctx).Preload("Product").
		Where("seller_id = ?", sellerID).
		Order("created_at DESC").
		Find(&transactions).Error
	return transactions, err
}

// ListPurchases returns the buyer's transactions with their products
func (s *Store) ListPurchases(ctx context.Context, buyerID uuid.UUID) ([]models.Transaction, error) {
	var transactions []models.Transaction
	err := s.db.WithContext(ctx).Preload("Product").
		Where("buyer_id = ?", buyerID).
		Order("created_at DESC").
		Find(&transactions).Error
	return transactions, err
}

// SellerEarnings sums seller_amount over completed sales
func (s *Store) SellerEarnings(ctx context.Context, sellerID uuid.UUID) (decimal.Decimal, error) {
	var amounts []decimal.Decimal
	err := s.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("seller_id = ? AND status = ?", sellerID, models.TransactionCompleted).
		Pluck("seller_amount", &amounts).Error
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, amount := range amounts {
		total = total.Add(amount)
	}
	return total, nil
}
