package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all runtime configuration loaded from environment variables.
// Every field has a sensible default; only DATABASE_URL is required.
type Config struct {
	// Server
	HTTPPort        string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	// Database
	DatabaseURL string
	DBMaxConns  int32
	DBMinConns  int32

	// Redis (dedup cache)
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Delivery providers
	RealtimeBaseURL string
	EmailBaseURL    string
	EmailAPIKey     string
	ProviderTimeout time.Duration

	// Worker pool
	Workers    int
	JobTimeout time.Duration

	// Rate limiting: maximum deliveries per second per channel
	RateLimit int

	// Retry backoff durations: index 0 = first retry delay, etc.
	RetryBackoff []time.Duration

	// Background worker poll intervals
	SchedulerInterval time.Duration
	RetryInterval     time.Duration
	PurgeInterval     time.Duration

	// Publish-time duplicate suppression window
	PublishWindow time.Duration

	// Periodic scanner intervals
	DeadlineScanInterval time.Duration
	ContractScanInterval time.Duration
	DocumentScanInterval time.Duration
	ReminderScanInterval time.Duration

	// Legacy transition
	LegacyOnly         bool
	MigrationBatchSize int
}

func Load() (*Config, error) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return &Config{
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		ReadTimeout:     getDuration("READ_TIMEOUT", 5*time.Second),
		WriteTimeout:    getDuration("WRITE_TIMEOUT", 10*time.Second),
		ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT", 30*time.Second),

		DatabaseURL: dbURL,
		DBMaxConns:  int32(getInt("DB_MAX_CONNS", 25)),
		DBMinConns:  int32(getInt("DB_MIN_CONNS", 5)),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getInt("REDIS_DB", 0),

		RealtimeBaseURL: getEnv("REALTIME_BASE_URL", "http://localhost:3001"),
		EmailBaseURL:    getEnv("EMAIL_BASE_URL", "http://localhost:3002"),
		EmailAPIKey:     getEnv("EMAIL_API_KEY", ""),
		ProviderTimeout: getDuration("PROVIDER_TIMEOUT", 10*time.Second),

		Workers:    getInt("WORKERS", 10),
		JobTimeout: getDuration("JOB_TIMEOUT", 30*time.Second),

		RateLimit: getInt("RATE_LIMIT_PER_CHANNEL", 100),

		RetryBackoff: []time.Duration{
			getDuration("RETRY_BACKOFF_1", 5*time.Second),
			getDuration("RETRY_BACKOFF_2", 30*time.Second),
			getDuration("RETRY_BACKOFF_3", 120*time.Second),
		},

		SchedulerInterval: getDuration("SCHEDULER_INTERVAL", 5*time.Second),
		RetryInterval:     getDuration("RETRY_INTERVAL", 10*time.Second),
		PurgeInterval:     getDuration("PURGE_INTERVAL", time.Hour),

		PublishWindow: getDuration("PUBLISH_WINDOW", 5*time.Minute),

		DeadlineScanInterval: getDuration("DEADLINE_SCAN_INTERVAL", time.Hour),
		ContractScanInterval: getDuration("CONTRACT_SCAN_INTERVAL", 6*time.Hour),
		DocumentScanInterval: getDuration("DOCUMENT_SCAN_INTERVAL", 6*time.Hour),
		ReminderScanInterval: getDuration("REMINDER_SCAN_INTERVAL", 10*time.Minute),

		LegacyOnly:         getBool("LEGACY_ONLY", false),
		MigrationBatchSize: getInt("MIGRATION_BATCH_SIZE", 100),
	}, nil
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}

func getBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultVal
}

func getDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
