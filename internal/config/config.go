package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv         string
	Port           string
	AllowedOrigins string

	DBDriver    string
	DatabaseURL string
	DBHost      string
	DBUser      string
	DBPass      string
	DBName      string
	DBPort      string
	SQLitePath  string
	RedisURL    string

	JWTSecret string
	JWTTTL    time.Duration

	AdminUsername string
	AdminPassword string

	CloudinaryURL          string
	CloudinaryCloudName    string
	CloudinaryUploadFolder string

	CheckoutTaxBps      int64
	CheckoutShippingFee int64
	SubscriptionPeriod  time.Duration

	SweepSchedule string

	RateLimitPost    time.Duration
	RateLimitComment time.Duration
	RateLimitReport  time.Duration
}

func Load() (*Config, error) {
	// Don't fail if .env doesn't exist (might be prod env vars)
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:         getEnv("APP_ENV", "development"),
		Port:           getEnv("PORT", "8080"),
		AllowedOrigins: getEnv("ALLOWED_ORIGINS", "http://localhost:3000"),

		DBDriver:    getEnv("DB_DRIVER", "postgres"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		DBHost:      getEnv("DB_HOST", "localhost"),
		DBUser:      getEnv("DB_USER", "postgres"),
		DBPass:      os.Getenv("DB_PASS"),
		DBName:      getEnv("DB_NAME", "fandomspace"),
		DBPort:      getEnv("DB_PORT", "5432"),
		SQLitePath:  getEnv("SQLITE_PATH", "fandomspace.db"),
		RedisURL:    os.Getenv("REDIS_URL"),

		JWTSecret: getEnv("JWT_SECRET", "change-me"),

		AdminUsername: getEnv("ADMIN_USERNAME", "admin"),
		AdminPassword: getEnv("ADMIN_PASSWORD", "admin123"),

		CloudinaryURL:          os.Getenv("CLOUDINARY_URL"),
		CloudinaryCloudName:    os.Getenv("CLOUDINARY_CLOUD_NAME"),
		CloudinaryUploadFolder: getEnv("CLOUDINARY_UPLOAD_FOLDER", "fandomspace"),

		SweepSchedule: getEnv("SWEEP_SCHEDULE", "@every 1m"),
	}

	if cfg.DBDriver != "postgres" && cfg.DBDriver != "sqlite" {
		return nil, fmt.Errorf("invalid DB_DRIVER %q: want postgres or sqlite", cfg.DBDriver)
	}

	// Parsing durations
	var err error
	if cfg.JWTTTL, err = parseDuration(getEnv("JWT_TTL", "24h")); err != nil {
		return nil, fmt.Errorf("invalid JWT_TTL: %w", err)
	}
	if cfg.SubscriptionPeriod, err = parseDuration(getEnv("SUBSCRIPTION_PERIOD", "720h")); err != nil {
		return nil, fmt.Errorf("invalid SUBSCRIPTION_PERIOD: %w", err)
	}
	if cfg.RateLimitPost, err = parseDuration(getEnv("RATE_LIMIT_POST", "30s")); err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_POST: %w", err)
	}
	if cfg.RateLimitComment, err = parseDuration(getEnv("RATE_LIMIT_COMMENT", "5s")); err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_COMMENT: %w", err)
	}
	if cfg.RateLimitReport, err = parseDuration(getEnv("RATE_LIMIT_REPORT", "10s")); err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_REPORT: %w", err)
	}

	if cfg.CheckoutTaxBps, err = parseInt(getEnv("CHECKOUT_TAX_BPS", "1100")); err != nil {
		return nil, fmt.Errorf("invalid CHECKOUT_TAX_BPS: %w", err)
	}
	if cfg.CheckoutShippingFee, err = parseInt(getEnv("CHECKOUT_SHIPPING_FEE", "15000")); err != nil {
		return nil, fmt.Errorf("invalid CHECKOUT_SHIPPING_FEE: %w", err)
	}
	if cfg.CheckoutTaxBps < 0 || cfg.CheckoutShippingFee < 0 {
		return nil, fmt.Errorf("checkout tax and shipping fee must not be negative")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func parseDuration(s string) (time.Duration, error) {
	return time.ParseDuration(s)
}

func parseInt(s string) (int64, error) {
	return strconv.ParseInt(s, 10, 64)
}
