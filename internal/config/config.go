// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir            string // Base directory for the sqlite database (always absolute)
	Port               int
	LogLevel           string
	DevMode            bool
	SettlementCurrency string // Currency all values are reported in
	CryptoCompareKey   string // Optional API key for the crypto price provider
	SeedExampleData    bool   // Insert sample records into an empty database
	SyncDividends      bool   // Enable the daily dividend feed sync job
}

// Load reads configuration from environment variables.
// A .env file in the working directory is honoured if present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	dataDir := getEnv("CARTERA_DATA_DIR", "")
	if dataDir == "" {
		dataDir = "./data"
	}

	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:            absDataDir,
		Port:               getEnvAsInt("PORT", 8080),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		DevMode:            getEnvAsBool("DEV_MODE", false),
		SettlementCurrency: getEnv("SETTLEMENT_CURRENCY", "MXN"),
		CryptoCompareKey:   getEnv("CRYPTOCOMPARE_API_KEY", ""),
		SeedExampleData:    getEnvAsBool("SEED_EXAMPLE_DATA", false),
		SyncDividends:      getEnvAsBool("SYNC_DIVIDENDS", false),
	}

	return cfg, nil
}

// DatabasePath returns the path of the sqlite database file.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "cartera.db")
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
