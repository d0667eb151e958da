package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Store drivers understood by STORE_DRIVER.
const (
	DriverSQLite = "sqlite"
	DriverMongo  = "mongo"
)

// Config holds the configuration for the application.
type Config struct {
	Port            string
	LogLevel        string
	ShutdownTimeout time.Duration
	JWTSecret       string
	MaxPlanDays     int

	// Store
	StoreDriver   string
	DatabasePath  string
	MongoURI      string
	MongoDatabase string

	// Telegram Config
	TelegramBotToken       string
	TelegramWebhookURL     string
	TelegramAllowedUserIDs []int64
}

// NewFromEnv creates a new Config object from environment variables.
// A .env file in the working directory is loaded first when present.
func NewFromEnv() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetDefault("PORT", "8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("SHUTDOWN_TIMEOUT", 10*time.Second)
	v.SetDefault("MAX_PLAN_DAYS", 31)
	v.SetDefault("STORE_DRIVER", DriverSQLite)
	v.SetDefault("DATABASE_PATH", "data/meal-planner.db")
	v.SetDefault("MONGO_DATABASE", "buono")
	v.AutomaticEnv()

	storeDriver := strings.ToLower(v.GetString("STORE_DRIVER"))
	mongoURI := v.GetString("MONGO_URI")
	switch storeDriver {
	case DriverSQLite:
	case DriverMongo:
		if mongoURI == "" {
			return nil, fmt.Errorf("MONGO_URI environment variable not set")
		}
	default:
		return nil, fmt.Errorf("unsupported STORE_DRIVER %q", storeDriver)
	}

	maxPlanDays := v.GetInt("MAX_PLAN_DAYS")
	if maxPlanDays <= 0 {
		return nil, fmt.Errorf("MAX_PLAN_DAYS must be positive, got %d", maxPlanDays)
	}

	allowed, err := parseUserIDs(v.GetString("TELEGRAM_ALLOWED_USER_IDS"))
	if err != nil {
		return nil, fmt.Errorf("invalid TELEGRAM_ALLOWED_USER_IDS: %w", err)
	}

	return &Config{
		Port:                   v.GetString("PORT"),
		LogLevel:               v.GetString("LOG_LEVEL"),
		ShutdownTimeout:        v.GetDuration("SHUTDOWN_TIMEOUT"),
		JWTSecret:              v.GetString("JWT_SECRET"),
		MaxPlanDays:            maxPlanDays,
		StoreDriver:            storeDriver,
		DatabasePath:           v.GetString("DATABASE_PATH"),
		MongoURI:               mongoURI,
		MongoDatabase:          v.GetString("MONGO_DATABASE"),
		TelegramBotToken:       v.GetString("TELEGRAM_BOT_TOKEN"),
		TelegramWebhookURL:     v.GetString("TELEGRAM_WEBHOOK_URL"),
		TelegramAllowedUserIDs: allowed,
	}, nil
}

// RequireJWTSecret reports an error when JWT_SECRET is unset. Only the
// commands that sign or verify API tokens need it.
func (c *Config) RequireJWTSecret() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET environment variable not set")
	}
	return nil
}

// parseUserIDs parses a comma separated list of Telegram user IDs.
func parseUserIDs(s string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
