package services

import (
	"context"
	"strings"

	"emiho-marketplace/internal/models"
	"emiho-marketplace/pkg/logging"
	"emiho-marketplace/pkg/validator"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// ProfileInput mirrors an identity-provider user into the marketplace
type ProfileInput struct {
	ID       string `json:"id" validate:"required,uuid"`
	Email    string `json:"email" validate:"required,email"`
	FullName string `json:"fullName" validate:"max=255"`
}

// ProductInput is a new listing
type ProductInput struct {
	SellerID    string          `json:"sellerId" validate:"required,uuid"`
	Title       string          `json:"title" validate:"required,max=200"`
	Description string          `json:"description" validate:"max=5000"`
	Price       decimal.Decimal `json:"price" validate:"required,money"`
	MediaURLs   []string        `json:"mediaUrls" validate:"required,min=1,dive,url"`
	MediaType   string          `json:"mediaType" validate:"required,oneof=images video"`
}

// Dashboard is a user's view of their own listings and trades
type Dashboard struct {
	Products  []models.Product     `json:"products"`
	Sales     []models.Transaction `json:"sales"`
	Purchases []models.Transaction `json:"purchases"`
	Earnings  decimal.Decimal      `json:"earnings"`
}

// CatalogService manages profiles, listings and dashboards
type CatalogService struct {
	store Store
}

// NewCatalogService creates a catalogue service
func NewCatalogService(store Store) *CatalogService {
	return &CatalogService{store: store}
}

// SaveProfile creates or updates a profile keyed by the identity user id
func (s *CatalogService) SaveProfile(ctx context.Context, input ProfileInput) (*models.Profile, error) {
	input.Email = strings.TrimSpace(input.Email)
	if errs := validator.ValidateStruct(input); len(errs) > 0 {
		return nil, invalidRequest("%s", validator.Summary(errs))
	}

	profile := &models.Profile{
		Email:    strings.ToLower(input.Email),
		FullName: strings.TrimSpace(input.FullName),
	}
	profile.ID = uuid.MustParse(input.ID)

	if err := s.store.UpsertProfile(ctx, profile); err != nil {
		logging.Errorf("Failed to save profile %s: %v", profile.ID, err)
		return nil, persistence("failed to save profile", err)
	}
	return s.store.GetProfile(ctx, profile.ID)
}

// PublishProduct validates and stores a new active listing
func (s *CatalogService) PublishProduct(ctx context.Context, input ProductInput) (*models.Product, error) {
	input.Title = strings.TrimSpace(input.Title)
	if errs := validator.ValidateStruct(input); len(errs) > 0 {
		return nil, invalidRequest("%s", validator.Summary(errs))
	}
	if _, err := ToMinorUnits(input.Price); err != nil {
		return nil, err
	}

	sellerID := uuid.MustParse(input.SellerID)
	if _, err := s.store.GetProfile(ctx, sellerID); err != nil {
		return nil, lookupError("Seller", err)
	}

	product := &models.Product{
		SellerID:    sellerID,
		Title:       input.Title,
		Description: input.Description,
		Price:       input.Price.Round(2),
		MediaURLs:   input.MediaURLs,
		MediaType:   models.MediaType(input.MediaType),
		Status:      models.ProductActive,
	}
	if err := product.ValidateMedia(); err != nil {
		return nil, invalidRequest("%s", err.Error())
	}

	if err := s.store.CreateProduct(ctx, product); err != nil {
		logging.Errorf("Failed to create product for seller %s: %v", sellerID, err)
		return nil, persistence("failed to create product", err)
	}
	logging.Infof("Product published - id: %s, seller: %s, price: %s", product.ID, sellerID, product.Price.StringFixed(2))
	return product, nil
}

// ListProducts returns active listings, newest first
func (s *CatalogService) ListProducts(ctx context.Context, limit, offset int) ([]models.Product, error) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	products, err := s.store.ListActiveProducts(ctx, limit, offset)
	if err != nil {
		return nil, persistence("failed to list products", err)
	}
	return products, nil
}

// GetProduct returns one listing regardless of status
func (s *CatalogService) GetProduct(ctx context.Context, productID string) (*models.Product, error) {
	id, err := parseID("productId", productID)
	if err != nil {
		return nil, err
	}
	product, err := s.store.GetProduct(ctx, id)
	if err != nil {
		return nil, lookupError("Product", err)
	}
	return product, nil
}

// Dashboard collects a user's listings, sales, purchases and earnings
func (s *CatalogService) Dashboard(ctx context.Context, userID string) (*Dashboard, error) {
	id, err := parseID("userId", userID)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.GetProfile(ctx, id); err != nil {
		return nil, lookupError("Profile", err)
	}

	products, err := s.store.ListProductsBySeller(ctx, id)
	if err != nil {
		return nil, persistence("failed to load products", err)
	}
	sales, err := s.store.ListSales(ctx, id)
	if err != nil {
		return nil, persistence("failed to load sales", err)
	}
	purchases, err := s.store.ListPurchases(ctx, id)
	if err != nil {
		return nil, persistence("failed to load purchases", err)
	}
	earnings, err := s.store.SellerEarnings(ctx, id)
	if err != nil {
		return nil, persistence("failed to load earnings", err)
	}

	return &Dashboard{
		Products:  products,
		Sales:     sales,
		Purchases: purchases,
		Earnings:  earnings,
	}, nil
}
