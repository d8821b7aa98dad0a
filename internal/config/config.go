package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server configuration
	Port        string
	Mode        string
	ServiceName string
	AppURL      string

	// Database configuration
	DatabaseURL string
	SQLitePath  string

	// Redis configuration
	RedisURL string

	// Stripe configuration
	StripeSecretKey      string
	StripeWebhookSecret  string
	StripeTimeout        time.Duration
	StripeConnectCountry string
	Currency             string

	// Identity provider access tokens (HS256 shared secret)
	IdentityJWTSecret string

	// Brevo email configuration
	BrevoAPIKey    string
	BrevoFromEmail string
	BrevoFromName  string
}

// Load reads configuration from the environment, after loading .env if present
func Load() (*Config, error) {
	// Ignore error if .env file doesn't exist
	_ = godotenv.Load()

	cfg := &Config{
		Port:                 getEnv("PORT", "8080"),
		Mode:                 getEnv("GIN_MODE", "debug"),
		ServiceName:          getEnv("SERVICE_NAME", "emiho-marketplace"),
		AppURL:               strings.TrimRight(getEnv("APP_URL", "http://localhost:3000"), "/"),
		DatabaseURL:          getEnv("DATABASE_URL", ""),
		SQLitePath:           getEnv("SQLITE_PATH", "marketplace.db"),
		RedisURL:             getEnv("REDIS_URL", ""),
		StripeSecretKey:      getEnv("STRIPE_SECRET_KEY", ""),
		StripeWebhookSecret:  getEnv("STRIPE_WEBHOOK_SECRET", ""),
		StripeTimeout:        time.Duration(getEnvInt("STRIPE_TIMEOUT_SECONDS", 15)) * time.Second,
		StripeConnectCountry: getEnv("STRIPE_CONNECT_COUNTRY", "US"),
		Currency:             strings.ToLower(getEnv("CURRENCY", "usd")),
		IdentityJWTSecret:    getEnv("IDENTITY_JWT_SECRET", ""),
		BrevoAPIKey:          getEnv("BREVO_API_KEY", ""),
		BrevoFromEmail:       getEnv("BREVO_FROM_EMAIL", ""),
		BrevoFromName:        getEnv("BREVO_FROM_NAME", "Emiho Marketplace"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks settings the process cannot start without. A missing
// webhook secret is not fatal here: the confirmation endpoint reports it
// per request so the rest of the service stays usable.
func (c *Config) Validate() error {
	if c.StripeSecretKey == "" {
		return fmt.Errorf("STRIPE_SECRET_KEY is not set")
	}
	if c.StripeTimeout <= 0 {
		return fmt.Errorf("STRIPE_TIMEOUT_SECONDS must be positive")
	}
	if len(c.Currency) != 3 {
		return fmt.Errorf("CURRENCY must be an ISO 4217 code, got %q", c.Currency)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
