// Package config handles application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	// Server settings
	Port    int
	BaseURL string

	// Database
	DatabaseURL string

	// CORS
	CORSOrigins []string

	// Insurance / billing
	InsuranceEnabled   bool
	InsuranceProductID string
	StripeSecretKey    string
	PurchaseTimeout    time.Duration // pending purchase slot timeout

	// Identity health rules
	RevivalIH        int // IH force-set by the legacy useInsurance path
	RestoreRevivalIH int // IH applied when restoring from a backup
	QuestPenaltyIH   int // damage per quest missed at day rollover
	QuestRewardIH    int // restoration granted on first quest completion

	// Rollover scheduler
	RolloverPollInterval time.Duration
}

// Load reads configuration from environment variables.
// A .env file in the working directory is loaded first if present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:        getEnvInt("PORT", 8080),
		BaseURL:     getEnv("BASE_URL", "http://localhost:8080"),
		DatabaseURL: getEnv("DATABASE_URL", "file:covenant.db?_journal=WAL&_timeout=5000"),

		CORSOrigins: getEnvSlice("CORS_ORIGINS", []string{"http://localhost:3000"}),

		InsuranceEnabled:   getEnvBool("INSURANCE_ENABLED", true),
		InsuranceProductID: getEnv("INSURANCE_PRODUCT_ID", "covenant.insurance.revival"),
		StripeSecretKey:    getEnv("STRIPE_SECRET_KEY", ""),
		PurchaseTimeout:    getEnvDuration("PURCHASE_TIMEOUT", 15*time.Second),

		RevivalIH:        getEnvInt("REVIVAL_IH", 50),
		RestoreRevivalIH: getEnvInt("RESTORE_REVIVAL_IH", 10),
		QuestPenaltyIH:   getEnvInt("QUEST_PENALTY_IH", 20),
		QuestRewardIH:    getEnvInt("QUEST_REWARD_IH", 5),

		RolloverPollInterval: getEnvDuration("ROLLOVER_POLL_INTERVAL", time.Minute),
	}

	if cfg.RevivalIH < 1 || cfg.RevivalIH > 100 {
		return nil, fmt.Errorf("REVIVAL_IH must be in [1,100], got %d", cfg.RevivalIH)
	}
	if cfg.RestoreRevivalIH < 1 || cfg.RestoreRevivalIH > 100 {
		return nil, fmt.Errorf("RESTORE_REVIVAL_IH must be in [1,100], got %d", cfg.RestoreRevivalIH)
	}
	if cfg.QuestPenaltyIH < 0 {
		return nil, fmt.Errorf("QUEST_PENALTY_IH must be >= 0, got %d", cfg.QuestPenaltyIH)
	}

	return cfg, nil
}

// BillingConfigured returns true if a billing backend is configured.
func (c *Config) BillingConfigured() bool {
	return c.StripeSecretKey != ""
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

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		lower := strings.ToLower(value)
		return lower == "true" || lower == "1" || lower == "yes"
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}
