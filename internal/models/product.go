package models

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// MediaType describes what a listing delivers
type MediaType string

const (
	MediaImages MediaType = "images"
	MediaVideo  MediaType = "video"
)

// ProductStatus is the listing lifecycle state
type ProductStatus string

const (
	ProductActive   ProductStatus = "active"
	ProductSold     ProductStatus = "sold"
	ProductInactive ProductStatus = "inactive"
)

const (
	MaxImagesPerProduct = 10
	MaxVideosPerProduct = 1
)

// Product is a digital listing.
// Listings are never edited after publish; only Status changes.
type Product struct {
	BaseModel
	SellerID    uuid.UUID                   `json:"seller_id" gorm:"type:uuid;not null;index"`
	Seller      *Profile                    `json:"seller,omitempty" gorm:"foreignKey:SellerID;references:ID"`
	Title       string                      `json:"title" gorm:"size:200;not null"`
	Description string                      `json:"description" gorm:"type:text"`
	Price       decimal.Decimal             `json:"price" gorm:"type:decimal(12,2);not null"`
	MediaURLs   datatypes.JSONSlice[string] `json:"media_urls" gorm:"column:media_urls;not null"`
	MediaType   MediaType                   `json:"media_type" gorm:"size:10;not null"`
	Status      ProductStatus               `json:"status" gorm:"size:10;not null;default:'active';index"`
}

// TableName sets the table name
func (Product) TableName() string {
	return "products"
}

// ValidateMedia checks the media count rules for the listing's media type.
func (p *Product) ValidateMedia() error {
	n := len(p.MediaURLs)
	if n == 0 {
		return fmt.Errorf("at least one media url is required")
	}
	switch p.MediaType {
	case MediaImages:
		if n > MaxImagesPerProduct {
			return fmt.Errorf("at most %d images are allowed, got %d", MaxImagesPerProduct, n)
		}
	case MediaVideo:
		if n > MaxVideosPerProduct {
			return fmt.Errorf("at most %d video is allowed, got %d", MaxVideosPerProduct, n)
		}
	default:
		return fmt.Errorf("unknown media type %q", p.MediaType)
	}
	return nil
}
