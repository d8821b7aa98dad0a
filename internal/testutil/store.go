// Package testutil provides an isolated database and seed data for tests.
package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"emiho-marketplace/internal/database"
	"emiho-marketplace/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm/logger"
)

var dbCounter atomic.Int64

// NewStore opens a private in-memory SQLite database, migrates it and closes
// it when the test ends.
func NewStore(t *testing.T) *database.Store {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, dbCounter.Add(1))

	db, err := database.OpenSQLite(dsn, logger.Silent)
	if err != nil {
		t.Fatalf("Failed to open sqlite: %v", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}
	t.Cleanup(func() { database.Close(db, nil) })

	return database.NewStore(db)
}

// Fixture holds a seller with a payout account, a buyer and one active listing
type Fixture struct {
	Seller  *models.Profile
	Buyer   *models.Profile
	Product *models.Product
}

// Seed creates the standard fixture: a 10.00 image listing by a payable seller.
func Seed(t *testing.T, store *database.Store) *Fixture {
	t.Helper()

	seller := SeedProfile(t, store, "seller@example.com", "Sam Seller", "acct_seller123")
	buyer := SeedProfile(t, store, "buyer@example.com", "Bea Buyer", "")
	product := SeedProduct(t, store, seller.ID, "10.00")

	return &Fixture{Seller: seller, Buyer: buyer, Product: product}
}

// SeedProfile creates a profile; an empty accountID leaves the seller unpayable
func SeedProfile(t *testing.T, store *database.Store, email, name, accountID string) *models.Profile {
	t.Helper()

	profile := &models.Profile{Email: email, FullName: name}
	profile.ID = uuid.New()
	if accountID != "" {
		profile.StripeAccountID = &accountID
	}
	if err := store.DB().Create(profile).Error; err != nil {
		t.Fatalf("Failed to seed profile %s: %v", email, err)
	}
	return profile
}

// SeedProduct creates an active image listing with the given price
func SeedProduct(t *testing.T, store *database.Store, sellerID uuid.UUID, price string) *models.Product {
	t.Helper()

	product := &models.Product{
		SellerID:    sellerID,
		Title:       "Golden hour pack",
		Description: "Ten sunset photographs",
		Price:       decimal.RequireFromString(price),
		MediaURLs:   datatypes.JSONSlice[string]{"https://cdn.example.com/a.jpg", "https://cdn.example.com/b.jpg"},
		MediaType:   models.MediaImages,
		Status:      models.ProductActive,
	}
	if err := store.CreateProduct(context.Background(), product); err != nil {
		t.Fatalf("Failed to seed product: %v", err)
	}
	return product
}

// CountTransactions returns the number of transaction rows
func CountTransactions(t *testing.T, store *database.Store) int64 {
	t.Helper()

	var count int64
	if err := store.DB().Model(&models.Transaction{}).Count(&count).Error; err != nil {
		t.Fatalf("Failed to count transactions: %v", err)
	}
	return count
}
