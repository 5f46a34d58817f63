package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP server
	Port string

	// Wallet API
	WalletToken   string
	WalletBaseURL string
	PageLimit     int
	HTTPTimeout   time.Duration

	// Refresh
	ScanInterval           time.Duration
	WindowDays             int
	ExcludedCategories     []string
	MaxExposedTransactions int

	// Snapshot store (optional, disabled when empty)
	SQLiteDBPath string

	// AMQP (optional, disabled when empty)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Metrics
	MetricsEnabled bool
}

func Load() *Config {
	cfg := &Config{
		Port: getEnv("PORT", "8090"),

		WalletToken:   getEnv("WALLET_TOKEN", ""),
		WalletBaseURL: getEnv("WALLET_BASE_URL", "https://rest.budgetbakers.com/wallet"),
		PageLimit:     getEnvInt("WALLET_PAGE_LIMIT", 100),
		HTTPTimeout:   getEnvDuration("HTTP_TIMEOUT", 30*time.Second),

		ScanInterval:           getEnvDuration("SCAN_INTERVAL", 15*time.Minute),
		WindowDays:             getEnvInt("WINDOW_DAYS", 0),
		ExcludedCategories:     getEnvList("EXCLUDED_CATEGORIES"),
		MaxExposedTransactions: getEnvInt("MAX_EXPOSED_TRANSACTIONS", 1000),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", ""),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "walletmon"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "snapshot_updates"),

		MetricsEnabled: getEnvBool("METRICS_ENABLED", true),
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	// Validate Wallet API settings
	if c.WalletToken == "" {
		errors = append(errors, "WALLET_TOKEN is required")
	}
	if c.WalletBaseURL != "" {
		if parsedURL, err := url.Parse(c.WalletBaseURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid Wallet base URL '%s': %v", c.WalletBaseURL, err))
		} else if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
			errors = append(errors, fmt.Sprintf("invalid Wallet base URL scheme '%s': must be 'http' or 'https'", parsedURL.Scheme))
		}
	}
	if c.PageLimit < 1 || c.PageLimit > 500 {
		errors = append(errors, fmt.Sprintf("invalid page limit %d: must be between 1 and 500", c.PageLimit))
	}
	if c.HTTPTimeout < time.Second || c.HTTPTimeout > 5*time.Minute {
		errors = append(errors, fmt.Sprintf("invalid HTTP timeout %v: must be between 1 second and 5 minutes", c.HTTPTimeout))
	}

	// Validate refresh settings
	if c.ScanInterval < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid scan interval %v: must be at least 1 minute", c.ScanInterval))
	} else if c.ScanInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid scan interval %v: must be at most 24 hours", c.ScanInterval))
	}
	if c.WindowDays < 0 || c.WindowDays > 366 {
		errors = append(errors, fmt.Sprintf("invalid window days %d: must be between 0 and 366", c.WindowDays))
	}
	if c.MaxExposedTransactions < 1 {
		errors = append(errors, fmt.Sprintf("invalid max exposed transactions %d: must be at least 1", c.MaxExposedTransactions))
	}

	// Validate AMQP settings if AMQP is configured
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
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
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}

	var items []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}
