package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreFile     = "file"
	StorePostgres = "postgres"
	StoreMemory   = "memory"

	CacheMemory = "memory"
	CacheRedis  = "redis"
	CacheNone   = "none"
)

// Config holds application configuration
type Config struct {
	Port     string
	LogLevel string

	StoreBackend string
	ScenarioDir  string
	DBConn       string

	CacheBackend string
	RedisAddr    string
	CacheTTL     time.Duration

	CBRURL              string
	CBRRefreshSchedule  string
	DiscountRiskPremium float64

	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	SenderEmail  string

	CompareWorkers int
}

// NewConfig loads configuration from a .env file, if any, and environment variables
func NewConfig() (*Config, error) {
	// a missing .env file is fine
	_ = godotenv.Load()

	cfg := &Config{
		Port:     getEnv("PORT", "8080"),
		LogLevel: getEnv("LOG_LEVEL", "INFO"),

		StoreBackend: getEnv("STORE_BACKEND", StoreFile),
		ScenarioDir:  getEnv("SCENARIO_DIR", "scenarios"),
		DBConn:       getEnv("DB_CONN", "host=localhost port=5436 user=test password=test dbname=tea sslmode=disable"),

		CacheBackend: getEnv("CACHE_BACKEND", CacheMemory),
		RedisAddr:    getEnv("REDIS_ADDR", "localhost:6379"),

		CBRURL:             getEnv("CBR_URL", "https://www.cbr.ru/DailyInfoWebServ/DailyInfo.asmx"),
		CBRRefreshSchedule: getEnv("CBR_REFRESH_SCHEDULE", "@every 12h"),

		SMTPHost:     getEnv("SMTP_HOST", "localhost"),
		SMTPPort:     getEnv("SMTP_PORT", "25"),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		SenderEmail:  getEnv("SENDER_EMAIL", "tea-reports@localhost"),
	}

	var err error
	if cfg.CacheTTL, err = time.ParseDuration(getEnv("CACHE_TTL", "1h")); err != nil {
		return nil, fmt.Errorf("invalid CACHE_TTL: %w", err)
	}
	if cfg.DiscountRiskPremium, err = strconv.ParseFloat(getEnv("DISCOUNT_RISK_PREMIUM", "3"), 64); err != nil {
		return nil, fmt.Errorf("invalid DISCOUNT_RISK_PREMIUM: %w", err)
	}
	if cfg.CompareWorkers, err = strconv.Atoi(getEnv("COMPARE_WORKERS", "4")); err != nil {
		return nil, fmt.Errorf("invalid COMPARE_WORKERS: %w", err)
	}

	switch cfg.StoreBackend {
	case StoreFile:
		if cfg.ScenarioDir == "" {
			return nil, fmt.Errorf("SCENARIO_DIR is required for the file store")
		}
	case StorePostgres:
		if cfg.DBConn == "" {
			return nil, fmt.Errorf("DB_CONN is required for the postgres store")
		}
	case StoreMemory:
	default:
		return nil, fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
	}

	switch cfg.CacheBackend {
	case CacheMemory, CacheNone:
	case CacheRedis:
		if cfg.RedisAddr == "" {
			return nil, fmt.Errorf("REDIS_ADDR is required for the redis cache")
		}
	default:
		return nil, fmt.Errorf("unknown CACHE_BACKEND %q", cfg.CacheBackend)
	}

	if cfg.CacheTTL < 0 {
		return nil, fmt.Errorf("CACHE_TTL must not be negative")
	}
	if cfg.DiscountRiskPremium < 0 {
		return nil, fmt.Errorf("DISCOUNT_RISK_PREMIUM must not be negative")
	}
	if cfg.CompareWorkers < 1 {
		return nil, fmt.Errorf("COMPARE_WORKERS must be at least 1")
	}

	return cfg, nil
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}
