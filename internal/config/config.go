// Package config provides configuration loading and management for the application.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	// HTTP server port
	Port string

	// Postgres connection string for the durable store
	DatabaseURL string

	// Redis connection for the snapshot cache
	RedisURL      string
	RedisPassword string

	// Ethereum JSON-RPC endpoint for on-chain reads
	RPCEndpoint string

	// OpenTelemetry endpoint for observability
	OtelEndpoint string

	// Raw JSON overriding the built-in protocol registry
	ProtocolsJSON string

	// Scheduling and timeout settings
	CycleInterval time.Duration
	CallTimeout   time.Duration

	// Read API rate limiting
	RateLimitRPS   float64
	RateLimitBurst int
}

// Load creates a new Config from environment variables
func Load() Config {
	return Config{
		Port:           GetEnvOrDefault("PORT", "8080"),
		DatabaseURL:    GetEnvOrDefault("DATABASE_URL", ""),
		RedisURL:       GetEnvOrDefault("REDIS_URL", "redis://localhost:6379/0"),
		RedisPassword:  GetEnvOrDefault("REDIS_PASSWORD", ""),
		RPCEndpoint:    GetEnvOrDefault("ETH_RPC_ENDPOINT", "https://eth.llamarpc.com"),
		OtelEndpoint:   GetEnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		ProtocolsJSON:  GetEnvOrDefault("PROTOCOLS_JSON", ""),
		CycleInterval:  GetEnvAsDuration("CYCLE_INTERVAL", 10*time.Minute),
		CallTimeout:    GetEnvAsDuration("CALL_TIMEOUT", 5*time.Second),
		RateLimitRPS:   GetEnvAsFloat("RATE_LIMIT_RPS", 10.0),
		RateLimitBurst: GetEnvAsInt("RATE_LIMIT_BURST", 20),
	}
}

// GetEnv retrieves an environment variable and whether it exists
func GetEnv(key string) (string, bool) {
	value, exists := os.LookupEnv(key)
	return value, exists
}

// GetEnvOrDefault retrieves an environment variable or returns the default value if not set
func GetEnvOrDefault(key, defaultValue string) string {
	if value, exists := GetEnv(key); exists {
		return value
	}
	return defaultValue
}

// GetEnvAsInt retrieves an environment variable as an integer with a default value
func GetEnvAsInt(key string, defaultValue int) int {
	if value, exists := GetEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// GetEnvAsFloat retrieves an environment variable as a float with a default value
func GetEnvAsFloat(key string, defaultValue float64) float64 {
	if value, exists := GetEnv(key); exists {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// GetEnvAsDuration retrieves an environment variable as a duration with a default value
func GetEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := GetEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
