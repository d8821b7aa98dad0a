package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"emiho-marketplace/internal/api"
	"emiho-marketplace/internal/config"
	"emiho-marketplace/internal/database"
	"emiho-marketplace/internal/services"
	"emiho-marketplace/pkg/logging"

	"github.com/gin-gonic/gin"
)

func main() {
	// Initialize configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to initialize config:", err)
	}

	// Initialize logging
	logging.InitLogging()

	// Initialize database
	db, err := database.Open(cfg)
	if err != nil {
		log.Fatal("Failed to initialize database:", err)
	}
	redisClient, err := database.OpenRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal("Failed to initialize redis:", err)
	}
	defer database.Close(db, redisClient)

	store := database.NewStore(db)
	gateway := services.NewStripeGateway(cfg)
	guard := services.NewReplayGuard(redisClient)
	if mem, ok := guard.(*services.MemoryReplayGuard); ok {
		defer mem.Stop()
	}
	reconciler := services.NewReconciler(store, guard, services.NewReceiptNotifier(cfg))

	if cfg.StripeWebhookSecret == "" {
		logging.Warnf("STRIPE_WEBHOOK_SECRET not set, confirmation events will be rejected")
	}

	healthChecks := map[string]api.HealthCheck{
		"database": store.Ping,
	}
	if redisClient != nil {
		healthChecks["redis"] = func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}
	}

	handlers := &api.Handlers{
		Checkout:       services.NewCheckoutService(cfg, store, gateway),
		Verifier:       services.NewEventVerifier(cfg.StripeWebhookSecret),
		Reconciler:     reconciler,
		Resolver:       services.NewPurchaseResolver(store, gateway, reconciler),
		Onboarding:     services.NewSellerOnboarding(store, gateway),
		Catalog:        services.NewCatalogService(store),
		ServiceName:    cfg.ServiceName,
		IdentitySecret: cfg.IdentityJWTSecret,
		HealthChecks:   healthChecks,
	}

	// Set Gin mode
	gin.SetMode(cfg.Mode)

	// Create Gin engine
	r := gin.Default()

	// Setup routes
	api.SetupRoutes(r, handlers)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logging.Infof("Starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server:", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logging.Infof("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logging.Errorf("Server forced to shutdown: %v", err)
	}
	logging.Infof("Server exited")
}
