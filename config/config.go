package config

import (
	"fmt"
	"os"
	"strconv"
	"sync"
)

// Config holds all application configuration
type Config struct {
	// HTTP configuration
	Port string

	// Database configuration
	DatabaseURL string

	// Auth configuration
	JWTSecret     string
	AdminPassword string

	// Economy configuration
	StartingCoins int64 // balance granted to new users
	TopUpDefault  int64 // coins credited by a top-up with no amount

	// Chat configuration
	HistoryLimit int // messages replayed to a joining session

	// Environment
	Environment string // "development", "production", or "test"
}

var (
	instance *Config
	mu       sync.Mutex
)

// Get returns the global configuration instance
func Get() *Config {
	mu.Lock()
	defer mu.Unlock()
	if instance == nil {
		var err error
		instance, err = load()
		if err != nil {
			panic(fmt.Sprintf("failed to load config: %v", err))
		}
	}
	return instance
}

// load loads configuration from environment variables
func load() (*Config, error) {
	config := &Config{
		Port:        os.Getenv("PORT"),
		DatabaseURL: os.Getenv("DATABASE_URL"),

		JWTSecret:     os.Getenv("JWT_SECRET"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),

		// Economy defaults
		StartingCoins: 100,
		TopUpDefault:  50,

		// Chat defaults
		HistoryLimit: 100,

		Environment: os.Getenv("ENVIRONMENT"),
	}

	// Override defaults if environment variables are set
	if coins := os.Getenv("STARTING_COINS"); coins != "" {
		if parsed, err := strconv.ParseInt(coins, 10, 64); err == nil {
			config.StartingCoins = parsed
		}
	}
	if limit := os.Getenv("HISTORY_LIMIT"); limit != "" {
		if parsed, err := strconv.Atoi(limit); err == nil {
			config.HistoryLimit = parsed
		}
	}

	if config.Port == "" {
		config.Port = "3000"
	}

	// Set default environment if not specified
	if config.Environment == "" {
		config.Environment = "development"
	}

	if config.Environment != "test" {
		// Validate required configuration
		if config.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required")
		}
		if config.JWTSecret == "" {
			return nil, fmt.Errorf("JWT_SECRET is required")
		}
		if config.AdminPassword == "" {
			return nil, fmt.Errorf("ADMIN_PASSWORD is required")
		}
	}

	return config, nil
}

// Test helpers - only use in tests

// SetTestConfig overrides the global config instance for testing
func SetTestConfig(testConfig *Config) {
	mu.Lock()
	defer mu.Unlock()
	instance = testConfig
}

// ResetConfig resets the global config instance for testing
func ResetConfig() {
	mu.Lock()
	defer mu.Unlock()
	instance = nil
}

// NewTestConfig creates a minimal config suitable for unit tests
func NewTestConfig() *Config {
	return &Config{
		Port:          "3000",
		JWTSecret:     "test-secret",
		AdminPassword: "test-admin",
		StartingCoins: 100,
		TopUpDefault:  50,
		HistoryLimit:  100,
		Environment:   "test",
	}
}
