// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	// DefaultAuthURL is the ClientLogin endpoint of the finance service.
	DefaultAuthURL = "https://www.google.com/accounts/ClientLogin"
	// DefaultFeedURL is the portfolio collection of the authenticated user.
	DefaultFeedURL = "https://finance.google.com/finance/feeds/default/portfolios"
	// DefaultService is the service name sent with the login request.
	DefaultService = "finance"
	// DefaultSource identifies this client to the service.
	DefaultSource = "gfinance-session-1.0"
)

// Config holds the application configuration.
type Config struct {
	// Service endpoints
	AuthURL string
	FeedURL string

	// Login identification
	Service string
	Source  string

	// Account credentials. Password is usually left empty and prompted for.
	Email    string
	Password string

	// Transport settings
	Timeout           time.Duration
	RequestsPerSecond float64

	// Re-read positions after every accepted transaction.
	RefreshAfterTransaction bool
}

// Load reads configuration from environment variables and an optional .env file.
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	timeout, err := time.ParseDuration(getEnv("GFINANCE_TIMEOUT", "30s"))
	if err != nil {
		return nil, fmt.Errorf("parsing GFINANCE_TIMEOUT: %w", err)
	}

	rps, err := strconv.ParseFloat(getEnv("GFINANCE_REQUESTS_PER_SECOND", "5"), 64)
	if err != nil {
		return nil, fmt.Errorf("parsing GFINANCE_REQUESTS_PER_SECOND: %w", err)
	}
	if rps <= 0 {
		return nil, fmt.Errorf("GFINANCE_REQUESTS_PER_SECOND must be positive, got %v", rps)
	}

	refresh, err := strconv.ParseBool(getEnv("GFINANCE_REFRESH_AFTER_TRANSACTION", "false"))
	if err != nil {
		return nil, fmt.Errorf("parsing GFINANCE_REFRESH_AFTER_TRANSACTION: %w", err)
	}

	return &Config{
		AuthURL:                 getEnv("GFINANCE_AUTH_URL", DefaultAuthURL),
		FeedURL:                 getEnv("GFINANCE_FEED_URL", DefaultFeedURL),
		Service:                 getEnv("GFINANCE_SERVICE", DefaultService),
		Source:                  getEnv("GFINANCE_SOURCE", DefaultSource),
		Email:                   os.Getenv("GFINANCE_EMAIL"),
		Password:                os.Getenv("GFINANCE_PASSWORD"),
		Timeout:                 timeout,
		RequestsPerSecond:       rps,
		RefreshAfterTransaction: refresh,
	}, nil
}

// getEnv returns the value of an environment variable or a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
