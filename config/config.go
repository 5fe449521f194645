package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Server configuration
	Port        string
	Environment string

	// Identity of this installation; namespaces the ticket storage key
	AppName  string
	DeviceID string

	// Storage configuration
	StorageBackend string // redis or memory
	RedisURL       string

	// PubNub configuration
	PubNubPublishKey   string
	PubNubSubscribeKey string
	PubNubSecretKey    string
	PubNubUserID       string
	PaymentChannel     string

	// Payment configuration
	PaymentTimeout time.Duration
	Currency       string
	MerchantID     string

	// Signer configuration
	SignerPrivateKey  string
	SignerAutoApprove bool

	// Catalog configuration
	CatalogSource string // static or records

	// Checkout sessions
	CheckoutSessionTTL   time.Duration
	CheckoutSessionLimit int

	// Bcrypt hash of the key door scanners present when redeeming
	ScannerKeyHash string

	// Monitoring
	EnableMetrics bool
	MetricsPort   string
}

func LoadConfig() *Config {
	return &Config{
		// Server
		Port:        getEnv("PORT", "8090"),
		Environment: getEnv("ENVIRONMENT", "development"),

		AppName:  getEnv("APP_NAME", "shreddr"),
		DeviceID: getEnv("DEVICE_ID", hostname()),

		// Storage
		StorageBackend: getEnv("STORAGE_BACKEND", "redis"),
		RedisURL:       getEnv("REDIS_URL", "localhost:6379"),

		// PubNub
		PubNubPublishKey:   getEnv("PUBNUB_PUBLISH_KEY", ""),
		PubNubSubscribeKey: getEnv("PUBNUB_SUBSCRIBE_KEY", ""),
		PubNubSecretKey:    getEnv("PUBNUB_SECRET_KEY", ""),
		PubNubUserID:       getEnv("PUBNUB_USER_ID", "ticket-wallet"),
		PaymentChannel:     getEnv("PAYMENT_CHANNEL", "payment-notifications"),

		// Payment
		PaymentTimeout: getEnvAsDuration("PAYMENT_TIMEOUT", "10m"),
		Currency:       getEnv("CURRENCY", "USD"),
		MerchantID:     getEnv("MERCHANT_ID", "shreddr"),

		// Signer
		SignerPrivateKey:  getEnv("SIGNER_PRIVATE_KEY", ""),
		SignerAutoApprove: getEnvAsBool("SIGNER_AUTO_APPROVE", false),

		CatalogSource: getEnv("CATALOG_SOURCE", "static"),

		// Checkout
		CheckoutSessionTTL:   getEnvAsDuration("CHECKOUT_SESSION_TTL", "30m"),
		CheckoutSessionLimit: getEnvAsInt("CHECKOUT_SESSION_LIMIT", 1000),

		ScannerKeyHash: getEnv("SCANNER_KEY_HASH", ""),

		// Monitoring
		EnableMetrics: getEnvAsBool("ENABLE_METRICS", true),
		MetricsPort:   getEnv("METRICS_PORT", "9090"),
	}
}

// IsDevelopment enables the payment simulation endpoint and strict
// ticket assembly.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func hostname() string {
	name, err := os.Hostname()
	if err != nil || name == "" {
		return "default"
	}
	return name
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}
	// If parsing fails, try to parse default value
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}
