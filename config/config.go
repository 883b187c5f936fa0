package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds every runtime parameter of the engine.
type Config struct {
	DatabaseURL  string
	JWTSecretKey string
	ServerPort   int

	// Share of collected entry fees that goes into the prize pool.
	PayoutRatio float64

	// Platform services the engine calls out to.
	LedgerBaseURL    string
	InventoryBaseURL string
	BadgeBaseURL     string
	ServiceToken     string

	// S3-compatible storage for tournament banners. Optional: when the
	// bucket is not configured, banner uploads are disabled.
	S3Endpoint        string
	S3Region          string
	S3AccessKeyID     string
	S3SecretAccessKey string
	S3Bucket          string
	S3PublicBaseURL   string
}

// Load reads configuration from environment variables. A .env file is
// loaded first when present, which is convenient for local development.
func Load() (*Config, error) {
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is not set")
	}

	jwtKey := os.Getenv("JWT_SECRET_KEY")
	if jwtKey == "" {
		return nil, fmt.Errorf("JWT_SECRET_KEY environment variable is not set")
	}

	portStr := os.Getenv("SERVER_PORT")
	if portStr == "" {
		portStr = "8080"
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT environment variable: %w", err)
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", port)
	}

	payoutRatio := 0.90
	if ratioStr := os.Getenv("PRIZE_PAYOUT_RATIO"); ratioStr != "" {
		payoutRatio, err = strconv.ParseFloat(ratioStr, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid PRIZE_PAYOUT_RATIO environment variable: %w", err)
		}
		if payoutRatio < 0 || payoutRatio > 1 {
			return nil, fmt.Errorf("PRIZE_PAYOUT_RATIO must be between 0 and 1, got %f", payoutRatio)
		}
	}

	ledgerURL := os.Getenv("LEDGER_BASE_URL")
	if ledgerURL == "" {
		return nil, fmt.Errorf("LEDGER_BASE_URL environment variable is not set")
	}
	inventoryURL := os.Getenv("INVENTORY_BASE_URL")
	if inventoryURL == "" {
		return nil, fmt.Errorf("INVENTORY_BASE_URL environment variable is not set")
	}
	badgeURL := os.Getenv("BADGE_BASE_URL")
	if badgeURL == "" {
		return nil, fmt.Errorf("BADGE_BASE_URL environment variable is not set")
	}
	serviceToken := os.Getenv("SERVICE_TOKEN")
	if serviceToken == "" {
		return nil, fmt.Errorf("SERVICE_TOKEN environment variable is not set")
	}

	cfg := &Config{
		DatabaseURL:       dbURL,
		JWTSecretKey:      jwtKey,
		ServerPort:        port,
		PayoutRatio:       payoutRatio,
		LedgerBaseURL:     ledgerURL,
		InventoryBaseURL:  inventoryURL,
		BadgeBaseURL:      badgeURL,
		ServiceToken:      serviceToken,
		S3Endpoint:        os.Getenv("S3_ENDPOINT"),
		S3Region:          os.Getenv("S3_REGION"),
		S3AccessKeyID:     os.Getenv("S3_ACCESS_KEY_ID"),
		S3SecretAccessKey: os.Getenv("S3_SECRET_ACCESS_KEY"),
		S3Bucket:          os.Getenv("S3_BUCKET"),
		S3PublicBaseURL:   os.Getenv("S3_PUBLIC_BASE_URL"),
	}

	return cfg, nil
}
