package api

import (
	"net/http"
	"strconv"

	"emiho-marketplace/internal/middleware"
	"emiho-marketplace/internal/models"
	"emiho-marketplace/internal/response"
	"emiho-marketplace/internal/services"

	"github.com/gin-gonic/gin"
)

// productListing is a listing as shown publicly, without seller contact data
type productListing struct {
	models.Product
	SellerName string `json:"seller_name"`
}

func toListing(p models.Product) productListing {
	listing := productListing{Product: p}
	if p.Seller != nil {
		listing.SellerName = p.Seller.DisplayName()
	}
	listing.Product.Seller = nil
	return listing
}

// SaveProfile mirrors the signed-in user into the marketplace
func (h *Handlers) SaveProfile(c *gin.Context) {
	var req services.ProfileInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorJSON(c, http.StatusBadRequest, "Invalid request format")
		return
	}
	if !middleware.ActingAs(c, req.ID) {
		response.ErrorJSON(c, http.StatusForbidden, "Cannot edit another user's profile")
		return
	}

	profile, err := h.Catalog.SaveProfile(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessJSON(c, gin.H{"profile": profile})
}

// CreateProduct publishes a new listing
func (h *Handlers) CreateProduct(c *gin.Context) {
	var req services.ProductInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorJSON(c, http.StatusBadRequest, "Invalid request format")
		return
	}
	if !middleware.ActingAs(c, req.SellerID) {
		response.ErrorJSON(c, http.StatusForbidden, "Cannot publish for another seller")
		return
	}

	product, err := h.Catalog.PublishProduct(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.CreatedJSON(c, gin.H{"product": product})
}

// ListProducts returns active listings, newest first
func (h *Handlers) ListProducts(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	products, err := h.Catalog.ListProducts(c.Request.Context(), limit, offset)
	if err != nil {
		response.Error(c, err)
		return
	}

	listings := make([]productListing, 0, len(products))
	for _, p := range products {
		listings = append(listings, toListing(p))
	}
	response.SuccessJSON(c, gin.H{"products": listings})
}

// GetProduct returns one listing
func (h *Handlers) GetProduct(c *gin.Context) {
	product, err := h.Catalog.GetProduct(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessJSON(c, gin.H{"product": toListing(*product)})
}

// Dashboard returns the user's listings, sales, purchases and earnings
func (h *Handlers) Dashboard(c *gin.Context) {
	userID := c.Param("userId")
	if !middleware.ActingAs(c, userID) {
		response.ErrorJSON(c, http.StatusForbidden, "Cannot view another user's dashboard")
		return
	}

	dashboard, err := h.Catalog.Dashboard(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessJSON(c, gin.H{
		"products":  dashboard.Products,
		"sales":     dashboard.Sales,
		"purchases": dashboard.Purchases,
		"earnings":  dashboard.Earnings,
	})
}
