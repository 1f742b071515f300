package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration.
// Values are loaded from environment variables with sensible defaults.
type Config struct {
	// Server
	Port     int
	LogLevel string

	// Shipping
	OriginCEP                string // warehouse CEP quotes are computed from
	DefaultShippingProfileID string // fallback for products without a profile
	FreightAPIURL            string // remote rate table; empty = static table
	QuoteCacheTTL            time.Duration

	// Payment gateway
	GatewayURL           string
	GatewayAPIKey        string
	GatewayWebhookSecret string
	PixChargeTTL         time.Duration

	// HTTP client
	HTTPTimeout time.Duration

	// Resilience
	MaxRetries     int
	InitialBackoff time.Duration
	MaxConcurrency int

	// Observability
	OTLPEndpoint string

	// Supabase
	SupabaseURL        string
	SupabaseAnonKey    string
	SupabaseServiceKey string

	// JWT / Auth
	JWTSecret     string
	JWTAccessTTL  time.Duration
	JWTRefreshTTL time.Duration
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	return &Config{
		Port:     getEnvInt("PORT", 8080),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		OriginCEP:                getEnv("ORIGIN_CEP", "01310100"),
		DefaultShippingProfileID: getEnv("DEFAULT_SHIPPING_PROFILE_ID", ""),
		FreightAPIURL:            getEnv("FREIGHT_API_URL", ""),
		QuoteCacheTTL:            getEnvDuration("QUOTE_CACHE_TTL", 5*time.Minute),

		GatewayURL:           getEnv("PAYMENT_GATEWAY_URL", "http://localhost:8091"),
		GatewayAPIKey:        getEnv("PAYMENT_GATEWAY_API_KEY", ""),
		GatewayWebhookSecret: getEnv("PAYMENT_GATEWAY_WEBHOOK_SECRET", ""),
		PixChargeTTL:         getEnvDuration("PIX_CHARGE_TTL", 30*time.Minute),

		HTTPTimeout: getEnvDuration("HTTP_TIMEOUT", 10*time.Second),

		MaxRetries:     getEnvInt("MAX_RETRIES", 3),
		InitialBackoff: getEnvDuration("INITIAL_BACKOFF", 100*time.Millisecond),
		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 50),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),

		SupabaseURL:        getEnv("SUPABASE_URL", ""),
		SupabaseAnonKey:    getEnv("SUPABASE_ANON_KEY", ""),
		SupabaseServiceKey: getEnv("SUPABASE_SERVICE_ROLE_KEY", ""),

		JWTSecret:     getEnv("JWT_SECRET", "storefront-default-dev-secret-change-me"),
		JWTAccessTTL:  getEnvDuration("JWT_ACCESS_TTL", 15*time.Minute),
		JWTRefreshTTL: getEnvDuration("JWT_REFRESH_TTL", 7*24*time.Hour),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
