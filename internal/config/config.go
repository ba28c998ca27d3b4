package config

import (
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Session     SessionConfig
	Checkout    CheckoutConfig
	Reservation ReservationConfig
	Promo       PromoConfig
	RateLimit   RateLimitConfig
	Log         LogConfig
}

type ServerConfig struct {
	Port           string
	Host           string
	Env            string
	AllowedOrigins []string
}

type DatabaseConfig struct {
	Driver   string // "postgres" or "sqlite3"
	URL      string // Full database URL
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	Path     string // SQLite file path
}

type SessionConfig struct {
	Secret      string
	Name        string
	MaxAge      int
	Secure      bool
	IdleTimeout time.Duration
}

type CheckoutConfig struct {
	OrderAPIURL      string
	OrderAPIKey      string
	Timeout          time.Duration
	ConfirmationPath string
}

type ReservationConfig struct {
	TTL          time.Duration
	PollInterval time.Duration
}

type PromoConfig struct {
	CodesFile      string
	RemoteValidate bool
}

// RateLimitConfig bounds promo and order attempts per client
type RateLimitConfig struct {
	Attempts int
	Window   time.Duration
}

type LogConfig struct {
	Level string
}

// IsDevelopment reports whether the server runs with development defaults
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

func Load() (*Config, error) {
	// Load .env files if they exist (try .env.local first, then .env)
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load(".env")

	config := &Config{
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			Host:           getEnv("HOST", "localhost"),
			Env:            getEnv("ENV", "development"),
			AllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		},
		Database: parseDatabaseConfig(),
		Session: SessionConfig{
			Secret:      getEnv("SESSION_SECRET", "your-secret-key-change-in-production"),
			Name:        getEnv("SESSION_NAME", "storefront"),
			MaxAge:      getEnvAsInt("SESSION_MAX_AGE", 86400*30),
			Secure:      getEnvAsBool("SESSION_SECURE", false),
			IdleTimeout: getEnvAsDuration("SESSION_IDLE_TIMEOUT", 2*time.Hour),
		},
		Checkout: CheckoutConfig{
			OrderAPIURL:      strings.TrimRight(getEnv("ORDER_API_URL", "http://localhost:9000/api"), "/"),
			OrderAPIKey:      getEnv("ORDER_API_KEY", ""),
			Timeout:          getEnvAsDuration("ORDER_API_TIMEOUT", 30*time.Second),
			ConfirmationPath: getEnv("CHECKOUT_CONFIRMATION_PATH", "/multumim?order="),
		},
		Reservation: ReservationConfig{
			TTL:          getEnvAsDuration("RESERVATION_TTL", 15*time.Minute),
			PollInterval: getEnvAsDuration("RESERVATION_POLL_INTERVAL", time.Second),
		},
		Promo: PromoConfig{
			CodesFile:      getEnv("PROMO_CODES_FILE", ""),
			RemoteValidate: getEnvAsBool("PROMO_REMOTE_VALIDATE", false),
		},
		RateLimit: RateLimitConfig{
			Attempts: getEnvAsInt("RATE_LIMIT_ATTEMPTS", 10),
			Window:   getEnvAsDuration("RATE_LIMIT_WINDOW", time.Minute),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}

	return config, nil
}

func parseDatabaseConfig() DatabaseConfig {
	driver := getEnv("DB_DRIVER", "postgres")
	if driver == "sqlite3" {
		return DatabaseConfig{
			Driver: driver,
			Path:   getEnv("DB_PATH", "storefront.db"),
		}
	}

	// Check if DATABASE_URL is provided
	databaseURL := getEnv("DATABASE_URL", "")
	if databaseURL != "" {
		return parseDatabaseURL(databaseURL)
	}

	// Fall back to individual environment variables
	return DatabaseConfig{
		Driver:   driver,
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnvAsInt("DB_PORT", 5432),
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", ""),
		DBName:   getEnv("DB_NAME", "storefront"),
		SSLMode:  getEnv("DB_SSLMODE", "disable"),
	}
}

func parseDatabaseURL(databaseURL string) DatabaseConfig {
	config := DatabaseConfig{
		Driver: "postgres",
		URL:    databaseURL,
	}

	u, err := url.Parse(databaseURL)
	if err != nil {
		// If parsing fails, return the URL as-is
		return config
	}

	config.Host = u.Hostname()
	if u.Port() != "" {
		config.Port, _ = strconv.Atoi(u.Port())
	} else {
		config.Port = 5432 // Default PostgreSQL port
	}

	if u.User != nil {
		config.User = u.User.Username()
		config.Password, _ = u.User.Password()
	}

	config.DBName = strings.TrimPrefix(u.Path, "/")

	config.SSLMode = u.Query().Get("sslmode")
	if config.SSLMode == "" {
		config.SSLMode = "disable"
	}

	return config
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil && duration > 0 {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return defaultValue
	}
	return items
}
