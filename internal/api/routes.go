package api

import (
	"context"

	"emiho-marketplace/internal/middleware"
	"emiho-marketplace/internal/services"

	"github.com/gin-gonic/gin"
)

// HealthCheck pings one dependency
type HealthCheck func(ctx context.Context) error

// Handlers holds the services behind the HTTP API
type Handlers struct {
	Checkout   *services.CheckoutService
	Verifier   *services.EventVerifier
	Reconciler *services.Reconciler
	Resolver   *services.PurchaseResolver
	Onboarding *services.SellerOnboarding
	Catalog    *services.CatalogService

	ServiceName    string
	IdentitySecret string
	HealthChecks   map[string]HealthCheck
}

// SetupRoutes sets up all routes
func SetupRoutes(r *gin.Engine, h *Handlers) {
	api := r.Group("/api")
	{
		// Buyer checkout flow (no identity required, buyers may be guests)
		api.POST("/create-payment", h.CreatePayment)
		api.POST("/purchase", h.Purchase)

		// Stripe calls this; authenticated by signature only
		api.POST("/webhook", h.Webhook)

		// Public catalogue
		api.GET("/products", h.ListProducts)
		api.GET("/products/:id", h.GetProduct)

		// Routes acting for a signed-in user
		user := api.Group("")
		user.Use(middleware.IdentityAuth(h.IdentitySecret))
		{
			user.POST("/create-seller-account", h.CreateSellerAccount)
			user.POST("/stripe-login-link", h.StripeLoginLink)
			user.POST("/profiles", h.SaveProfile)
			user.POST("/products", h.CreateProduct)
			user.GET("/dashboard/:userId", h.Dashboard)
		}
	}

	// Health check
	r.GET("/health", h.Health)
}
