package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Database configuration
	Database DatabaseConfig

	// Ingestion pipeline configuration
	Ingestion IngestionConfig

	// Logging configuration
	Log LogConfig
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host         string
	Port         string
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
}

// IngestionConfig holds feed polling and article fetching settings
type IngestionConfig struct {
	FeedPollInterval time.Duration
	JobPollInterval  time.Duration
	JobBatchSize     int
	// RequestDelay is the minimum gap between request starts to one host
	RequestDelay     time.Duration
	FetchTimeout     time.Duration
	FetchMaxBytes    int64
	UserAgent        string
	FeedConcurrency  int // 0 means one goroutine per feed
	StopOnError      bool
	SubscriberBuffer int
	RunInServer      bool
}

// LogConfig holds logging settings
type LogConfig struct {
	Level  string
	Format string // "json" or "pretty"
}

// DefaultUserAgent is sent with every outbound fetch unless USER_AGENT overrides it
const DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36 cryptomonitor/1.0"

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			ReadTimeout:     getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getDurationEnv("SERVER_WRITE_TIMEOUT", 30*time.Second),
			ShutdownTimeout: getDurationEnv("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnv("DB_PORT", "5432"),
			User:         getEnv("DB_USER", "postgres"),
			Password:     getEnv("DB_PASSWORD", "password"),
			Name:         getEnv("DB_NAME", "cryptomonitor"),
			SSLMode:      getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns: getIntEnv("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getIntEnv("DB_MAX_IDLE_CONNS", 5),
			MaxLifetime:  getDurationEnv("DB_MAX_LIFETIME", 5*time.Minute),
		},
		Ingestion: DefaultIngestion(),
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	ing := &cfg.Ingestion
	ing.FeedPollInterval = getDurationEnv("FEED_POLL_INTERVAL", ing.FeedPollInterval)
	ing.JobPollInterval = getDurationEnv("JOB_POLL_INTERVAL", ing.JobPollInterval)
	ing.JobBatchSize = getIntEnv("JOB_BATCH_SIZE", ing.JobBatchSize)
	ing.RequestDelay = getDurationEnv("REQUEST_DELAY", ing.RequestDelay)
	ing.FetchTimeout = getDurationEnv("FETCH_TIMEOUT", ing.FetchTimeout)
	ing.FetchMaxBytes = getInt64Env("FETCH_MAX_BYTES", ing.FetchMaxBytes)
	ing.UserAgent = getEnv("USER_AGENT", ing.UserAgent)
	ing.FeedConcurrency = getIntEnv("FEED_CONCURRENCY", ing.FeedConcurrency)
	ing.StopOnError = getBoolEnv("SCHEDULER_STOP_ON_ERROR", ing.StopOnError)
	ing.SubscriberBuffer = getIntEnv("SUBSCRIBER_BUFFER", ing.SubscriberBuffer)
	ing.RunInServer = getBoolEnv("RUN_INGESTION", ing.RunInServer)

	// Validate required configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// DefaultIngestion returns the ingestion settings used when no overrides are set
func DefaultIngestion() IngestionConfig {
	return IngestionConfig{
		FeedPollInterval: 10 * time.Second,
		JobPollInterval:  10 * time.Second,
		JobBatchSize:     10,
		RequestDelay:     5 * time.Second,
		FetchTimeout:     30 * time.Second,
		FetchMaxBytes:    10 * 1024 * 1024, // 10MB
		UserAgent:        DefaultUserAgent,
		StopOnError:      true,
		SubscriberBuffer: 64,
		RunInServer:      true,
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Database.Host == "" {
		return fmt.Errorf("DB_HOST is required")
	}
	if c.Database.Name == "" {
		return fmt.Errorf("DB_NAME is required")
	}
	if c.Ingestion.FeedPollInterval <= 0 || c.Ingestion.JobPollInterval <= 0 {
		return fmt.Errorf("poll intervals must be positive")
	}
	if c.Ingestion.JobBatchSize <= 0 {
		return fmt.Errorf("JOB_BATCH_SIZE must be positive")
	}
	if c.Ingestion.RequestDelay < 0 {
		return fmt.Errorf("REQUEST_DELAY must not be negative")
	}
	if c.Ingestion.FeedConcurrency < 0 {
		return fmt.Errorf("FEED_CONCURRENCY must not be negative")
	}
	return nil
}

// GetDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// Helper functions for environment variable parsing

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

func getInt64Env(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
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

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
