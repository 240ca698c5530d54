package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string
	LogLevel    string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Provider is the platform-level bank-transfer provider account used
	// when a tenant has no routing config of its own.
	Provider ProviderConfig

	// BankConfigSecret encrypts per-tenant bank routing configs at rest.
	BankConfigSecret string
}

// ProviderConfig carries the bank-transfer provider credentials and the
// platform default routing used for QR generation.
type ProviderConfig struct {
	BaseURL       string
	APIKey        string
	WebhookSecret string
	AccountNumber string
	BankCode      string
	AccountName   string
	// DeepLinkBase, when set, enables banking-app deep links on intents.
	DeepLinkBase string
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		AppName:     getenv("APP_SERVICE", "tabpay"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: getenv("ENVIRONMENT", "development"),
		HTTPAddr:    getenv("HTTP_ADDR", ":8080"),
		LogLevel:    getenv("LOG_LEVEL", "info"),

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "tabpay"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", "postgres"),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 25),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 3600),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 600),

		RedisAddr:     getenv("REDIS_ADDR", ""),
		RedisPassword: getenv("REDIS_PASSWORD", ""),
		RedisDB:       getenvInt("REDIS_DB", 0),

		Provider: ProviderConfig{
			BaseURL:       getenv("PROVIDER_BASE_URL", "https://provider.example.com/userapi"),
			APIKey:        strings.TrimSpace(getenv("PROVIDER_API_KEY", "")),
			WebhookSecret: strings.TrimSpace(getenv("PROVIDER_WEBHOOK_SECRET", "")),
			AccountNumber: strings.TrimSpace(getenv("PROVIDER_ACCOUNT_NUMBER", "")),
			BankCode:      strings.TrimSpace(getenv("PROVIDER_BANK_CODE", "")),
			AccountName:   strings.TrimSpace(getenv("PROVIDER_ACCOUNT_NAME", "")),
			DeepLinkBase:  strings.TrimSpace(getenv("PROVIDER_DEEPLINK_BASE", "")),
		},

		BankConfigSecret: strings.TrimSpace(getenv("BANK_CONFIG_SECRET", "")),
	}
}

// Module wires configuration for the application.
var Module = fx.Module("config",
	fx.Provide(Load),
	fx.Provide(NewTuningHolder),
)

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}
