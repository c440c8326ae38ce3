package internal

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env         string
	Port        int
	LogLevel    string
	DatabaseUrl string

	// When add-on effects land on the listing: "on_purchase" applies them
	// as soon as the purchase is recorded, "on_payment_completed" waits
	// for the admin to settle the payment.
	EffectPolicy string

	// Featured-flag sweeper
	SweepEnabled  bool
	SweepInterval time.Duration

	// Metrics endpoint authentication
	// If both are empty, the /metrics endpoint will be unprotected (not recommended)
	MetricsUsername string
	MetricsPassword string
}

func NewConfig() (*Config, error) {
	// Load .env file if it exists (ignored in production)
	_ = godotenv.Load()

	cfg := &Config{
		Env:      getEnv("ENV", "development"),
		Port:     getEnvInt("PORT", 8080),
		LogLevel: getEnv("LOG_LEVEL", "debug"),

		EffectPolicy: getEnv("EFFECT_POLICY", "on_purchase"),

		SweepEnabled:  getEnvBool("SWEEP_ENABLED", true),
		SweepInterval: getEnvDuration("SWEEP_INTERVAL", 5*time.Minute),

		MetricsUsername: getEnv("METRICS_USERNAME", ""),
		MetricsPassword: getEnv("METRICS_PASSWORD", ""),
	}

	// Required
	cfg.DatabaseUrl = os.Getenv("DATABASE_URL")
	if cfg.DatabaseUrl == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.EffectPolicy != "on_purchase" && cfg.EffectPolicy != "on_payment_completed" {
		return nil, fmt.Errorf("EFFECT_POLICY must be 'on_purchase' or 'on_payment_completed', got: %s", cfg.EffectPolicy)
	}

	if cfg.SweepInterval < time.Second {
		return nil, fmt.Errorf("SWEEP_INTERVAL must be at least 1s, got: %s", cfg.SweepInterval)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
