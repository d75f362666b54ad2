package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"freight/internal/domain"
)

// Config holds all configuration for the application.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	NewRelic NewRelicConfig
	Payment  PaymentConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRelicConfig holds New Relic configuration.
type NewRelicConfig struct {
	AppName    string
	LicenseKey string
	Enabled    bool
}

// PaymentConfig holds payment gateway configuration. Amounts are in
// IRR; the currency is fixed per deployment.
type PaymentConfig struct {
	DefaultGateway  domain.PaymentGateway
	Currency        string
	CallbackBaseURL string

	GatewayTimeout time.Duration
	MaxRetries     int

	ZarinpalBaseURL    string
	ZarinpalMerchantID string

	NextPayBaseURL string
	NextPayAPIKey  string

	MellatBaseURL    string
	MellatTerminalID string
	MellatUsername   string
	MellatPassword   string
}

// Load loads configuration from environment variables. A .env file in
// the working directory is read first if present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			ReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 10*time.Second),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "freight"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
		},
		NewRelic: NewRelicConfig{
			AppName:    getEnv("NEW_RELIC_APP_NAME", "freight-service"),
			LicenseKey: getEnv("NEW_RELIC_LICENSE_KEY", ""),
			Enabled:    getBoolEnv("NEW_RELIC_ENABLED", false),
		},
		Payment: PaymentConfig{
			DefaultGateway:  domain.PaymentGateway(getEnv("PAYMENT_DEFAULT_GATEWAY", "zarinpal")),
			Currency:        getEnv("PAYMENT_CURRENCY", "IRR"),
			CallbackBaseURL: getEnv("PAYMENT_CALLBACK_BASE_URL", "http://localhost:8080"),

			GatewayTimeout: getDurationEnv("PAYMENT_GATEWAY_TIMEOUT", 15*time.Second),
			MaxRetries:     getIntEnv("PAYMENT_GATEWAY_MAX_RETRIES", 2),

			ZarinpalBaseURL:    getEnv("ZARINPAL_BASE_URL", "https://payment.zarinpal.com"),
			ZarinpalMerchantID: getEnv("ZARINPAL_MERCHANT_ID", ""),

			NextPayBaseURL: getEnv("NEXTPAY_BASE_URL", "https://nextpay.org"),
			NextPayAPIKey:  getEnv("NEXTPAY_API_KEY", ""),

			MellatBaseURL:    getEnv("MELLAT_BASE_URL", "https://bpm.shaparak.ir"),
			MellatTerminalID: getEnv("MELLAT_TERMINAL_ID", ""),
			MellatUsername:   getEnv("MELLAT_USERNAME", ""),
			MellatPassword:   getEnv("MELLAT_PASSWORD", ""),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
