package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Oversell policies for stock decrements.
const (
	OversellAllow  = "allow"
	OversellReject = "reject"
)

// Config holds application configuration values.
type Config struct {
	AppEnv         string
	HTTPPort       string
	DatabaseDriver string
	DatabaseDSN    string
	MaxOpenConns   int
	Secret         string
	TokenTTL       time.Duration
	AdminUser      string
	AdminHash      string
	AdminPassword  string
	OversellPolicy string
	SaleTimeout    time.Duration
	StockSeedPath  string
	CORSOrigins    []string
	LogLevel       string
	LogEncoding    string
}

// Load reads configuration from a .env file, when present, and the
// environment, falling back to reasonable defaults.
func Load() Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("unable to read .env file: %v", err)
	}
	return FromEnv()
}

// FromEnv builds a Config from the current environment only.
func FromEnv() Config {
	cfg := Config{
		AppEnv:         getEnv("APP_ENV", "production"),
		HTTPPort:       getEnv("HTTP_PORT", "5001"),
		DatabaseDriver: strings.ToLower(getEnv("DATABASE_DRIVER", "sqlite")),
		DatabaseDSN:    getEnv("DATABASE_DSN", "shopkeep.db"),
		Secret:         getEnv("SECRET", "dev_secret"),
		TokenTTL:       getEnvDuration("TOKEN_TTL", 24*time.Hour),
		AdminUser:      getEnv("ADMIN_USER", "admin"),
		AdminHash:      getEnv("ADMIN_PASSWORD_HASH", ""),
		AdminPassword:  getEnv("ADMIN_PASSWORD", "stock123"),
		OversellPolicy: strings.ToLower(getEnv("OVERSELL_POLICY", OversellAllow)),
		SaleTimeout:    getEnvDuration("SALE_TIMEOUT", 10*time.Second),
		StockSeedPath:  getEnv("STOCK_SEED_PATH", ""),
		CORSOrigins:    getEnvSlice("CORS_ORIGINS", []string{"http://localhost:5173"}),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogEncoding:    getEnv("LOG_ENCODING", "json"),
	}

	defaultConns := 10
	if cfg.DatabaseDriver == "sqlite" {
		// A single connection serialises writers the way SQLite wants.
		defaultConns = 1
	}
	cfg.MaxOpenConns = getEnvInt("DB_MAX_OPEN_CONNS", defaultConns)

	// Validate that port is numeric and never the MySQL port.
	if p, err := strconv.Atoi(cfg.HTTPPort); err != nil || p == 3306 {
		log.Printf("invalid HTTP_PORT value %q, defaulting to 5001", cfg.HTTPPort)
		cfg.HTTPPort = "5001"
	}

	if cfg.OversellPolicy != OversellAllow && cfg.OversellPolicy != OversellReject {
		log.Printf("unknown OVERSELL_POLICY %q, defaulting to %s", cfg.OversellPolicy, OversellAllow)
		cfg.OversellPolicy = OversellAllow
	}

	if cfg.AppEnv == "development" {
		cfg.LogLevel = "debug"
		cfg.LogEncoding = "console"
	}
	return cfg
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil && i > 0 {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}

func getEnvSlice(key string, fallback []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
