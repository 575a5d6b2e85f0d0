package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port        string
	MetricsPort string

	// StoreDriver selects the durable backend: "postgres" (default) or
	// "memory" for local runs without a database.
	StoreDriver string

	Database DatabaseConfig
	Redis    RedisConfig
	Reaper   ReaperConfig
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

func (c DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Host, c.Port, c.User, c.Password, c.Name,
	)
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int

	// WebhookTTL bounds how long a webhook delivery is remembered for
	// duplicate suppression.
	WebhookTTL time.Duration
}

type ReaperConfig struct {
	Enabled  bool
	Interval time.Duration

	// TimeoutWindow is how long an order may sit in Pending before the
	// reaper reclaims its reservation.
	TimeoutWindow time.Duration

	// MaxOrdersPerRun caps discovery so a single run stays bounded.
	MaxOrdersPerRun int
	ScanPageSize    int

	BatchSize       int
	ParallelBatches int

	// InventoryConcurrency caps concurrent inventory transactions across
	// the whole run.
	InventoryConcurrency int

	RetryAttempts  int
	RetryBaseDelay time.Duration

	// GroupPause is the breather between successive groups of
	// concurrently processed batches.
	GroupPause time.Duration
}

func Load() *Config {
	return &Config{
		Port:        getEnvOrDefault("PORT", "8001"),
		MetricsPort: getEnvOrDefault("METRICS_PORT", "9101"),
		StoreDriver: getEnvOrDefault("STORE_DRIVER", "postgres"),
		Database: DatabaseConfig{
			Host:     getEnvOrDefault("DB_HOST", "localhost"),
			Port:     getEnvOrDefault("DB_PORT", "5432"),
			User:     getEnvOrDefault("DB_USER", "postgres"),
			Password: getEnvOrDefault("DB_PASSWORD", "postgres"),
			Name:     getEnvOrDefault("DB_NAME", "flash_sale"),
		},
		Redis: RedisConfig{
			Addr:       getEnvOrDefault("REDIS_ADDR", ""),
			Password:   getEnvOrDefault("REDIS_PASSWORD", ""),
			DB:         getEnvInt("REDIS_DB", 0),
			WebhookTTL: getEnvDuration("WEBHOOK_DEDUPE_TTL", 10*time.Minute),
		},
		Reaper: ReaperConfig{
			Enabled:              getEnvBool("REAPER_ENABLED", true),
			Interval:             getEnvDuration("REAPER_INTERVAL", 2*time.Minute),
			TimeoutWindow:        getEnvDuration("ORDER_TIMEOUT", 2*time.Minute),
			MaxOrdersPerRun:      getEnvInt("MAX_ORDERS_PER_RUN", 2000),
			ScanPageSize:         getEnvInt("SCAN_PAGE_SIZE", 1000),
			BatchSize:            getEnvInt("BATCH_SIZE", 50),
			ParallelBatches:      getEnvInt("PARALLEL_BATCHES", 4),
			InventoryConcurrency: getEnvInt("INVENTORY_CONCURRENCY", 5),
			RetryAttempts:        getEnvInt("RETRY_ATTEMPTS", 4),
			RetryBaseDelay:       getEnvDuration("RETRY_BASE_DELAY", 150*time.Millisecond),
			GroupPause:           getEnvDuration("BATCH_GROUP_PAUSE", 200*time.Millisecond),
		},
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
