package config

import (
	"os"
	"strconv"
	"time"
)

type LedgerConfig struct {
	AccountNumberPrefix  string
	AccountNumberBase    int
	AccountNumberRetries int
	PageDefaultLimit     int
	PageMaxLimit         int
	BalanceCacheTTL      time.Duration
	// SerializePostings runs each posting under a per-account lock. When off,
	// concurrent postings against one account may read the same prior balance.
	SerializePostings bool
}

func LoadLedgerConfig() *LedgerConfig {
	return &LedgerConfig{
		AccountNumberPrefix:  getEnv("ACCOUNT_NUMBER_PREFIX", "100"),
		AccountNumberBase:    getEnvAsInt("ACCOUNT_NUMBER_BASE", 1000),
		AccountNumberRetries: getEnvAsInt("ACCOUNT_NUMBER_RETRIES", 0),
		PageDefaultLimit:     getEnvAsInt("PAGE_DEFAULT_LIMIT", 100),
		PageMaxLimit:         getEnvAsInt("PAGE_MAX_LIMIT", 1000),
		BalanceCacheTTL:      getEnvAsDuration("BALANCE_CACHE_TTL", 10*time.Minute),
		SerializePostings:    getEnvAsBool("SERIALIZE_POSTINGS", true),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if boolVal, err := strconv.ParseBool(val); err == nil {
			return boolVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if duration, err := time.ParseDuration(val); err == nil {
			return duration
		}
	}
	return defaultVal
}
