package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
)

const (
	StoreDriverPocketBase = "pocketbase"
	StoreDriverMemory     = "memory"
)

type Config struct {
	// Server configuration
	Environment string
	StoreDriver string
	TimeZone    string

	// Redis configuration, an empty URL disables Redis
	RedisURL string

	// PubNub configuration
	PubNubPublishKey   string
	PubNubSubscribeKey string
	PubNubSecretKey    string
	PubNubUserID       string
	PubNubChannel      string

	// Kafka configuration
	KafkaEnabled      bool
	KafkaBrokers      []string
	KafkaTopicPrefix  string
	KafkaRetryMax     int
	KafkaRequiredAcks int

	// Queue configuration
	ClaimAttempts   int
	DeskLockTTL     time.Duration
	DeskLockWait    time.Duration
	ServiceTimeMode string
	DisplayWaiting  int

	// Rate limiting for public enqueue
	RateLimitPerMinute int

	// Monitoring
	EnableMetrics bool
	MetricsPort   string

	// Logging
	LogLevel    string
	LogMode     string
	LogEncoding string
}

func LoadConfig() (*Config, error) {
	// A missing .env file is fine.
	_ = godotenv.Load()

	cfg := &Config{
		// Server
		Environment: getEnv("ENVIRONMENT", "development"),
		StoreDriver: getEnv("STORE_DRIVER", StoreDriverPocketBase),
		TimeZone:    getEnv("TIME_ZONE", "Local"),

		// Redis
		RedisURL: getEnv("REDIS_URL", ""),

		// PubNub
		PubNubPublishKey:   getEnv("PUBNUB_PUBLISH_KEY", ""),
		PubNubSubscribeKey: getEnv("PUBNUB_SUBSCRIBE_KEY", ""),
		PubNubSecretKey:    getEnv("PUBNUB_SECRET_KEY", ""),
		PubNubUserID:       getEnv("PUBNUB_USER_ID", "printqueue-server"),
		PubNubChannel:      getEnv("PUBNUB_CHANNEL", "printqueue-display"),

		// Kafka
		KafkaEnabled:      getEnvAsBool("KAFKA_ENABLED", false),
		KafkaBrokers:      getEnvAsSlice("KAFKA_BROKERS", []string{"localhost:9092"}),
		KafkaTopicPrefix:  getEnv("KAFKA_TOPIC_PREFIX", "printqueue"),
		KafkaRetryMax:     getEnvAsInt("KAFKA_PRODUCER_RETRY_MAX", 3),
		KafkaRequiredAcks: getEnvAsInt("KAFKA_PRODUCER_REQUIRED_ACKS", 1),

		// Queue
		ClaimAttempts:   getEnvAsInt("QUEUE_CLAIM_ATTEMPTS", 5),
		DeskLockTTL:     getEnvAsDuration("QUEUE_DESK_LOCK_TTL", 10*time.Second),
		DeskLockWait:    getEnvAsDuration("QUEUE_DESK_LOCK_WAIT", 5*time.Second),
		ServiceTimeMode: getEnv("QUEUE_SERVICE_TIME_MODE", "arrival"),
		DisplayWaiting:  getEnvAsInt("QUEUE_DISPLAY_WAITING", 10),

		// Rate limiting
		RateLimitPerMinute: getEnvAsInt("RATE_LIMIT_PER_MINUTE", 10),

		// Monitoring
		EnableMetrics: getEnvAsBool("ENABLE_METRICS", true),
		MetricsPort:   getEnv("METRICS_PORT", "9090"),

		// Logging
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogMode:     getEnv("LOG_MODE", "development"),
		LogEncoding: getEnv("LOG_ENCODING", "console"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.StoreDriver {
	case StoreDriverPocketBase, StoreDriverMemory:
	default:
		return fmt.Errorf("invalid store driver: %q", c.StoreDriver)
	}

	switch c.ServiceTimeMode {
	case "arrival", "serving":
	default:
		return fmt.Errorf("invalid service time mode: %q", c.ServiceTimeMode)
	}

	if c.ClaimAttempts <= 0 {
		return fmt.Errorf("claim attempts must be positive: %d", c.ClaimAttempts)
	}
	if c.DeskLockTTL <= 0 {
		return fmt.Errorf("desk lock ttl must be positive: %s", c.DeskLockTTL)
	}
	if c.DisplayWaiting <= 0 {
		return fmt.Errorf("display waiting count must be positive: %d", c.DisplayWaiting)
	}
	if c.RateLimitPerMinute < 0 {
		return fmt.Errorf("rate limit must not be negative: %d", c.RateLimitPerMinute)
	}

	if _, err := c.Location(); err != nil {
		return err
	}

	if c.KafkaEnabled && len(c.KafkaBrokers) == 0 {
		return fmt.Errorf("kafka brokers are required when kafka is enabled")
	}

	if c.EnableMetrics {
		port := cast.ToInt(c.MetricsPort)
		if port <= 0 || port > 65535 {
			return fmt.Errorf("invalid metrics port: %q", c.MetricsPort)
		}
	}

	if c.Environment == "production" && c.StoreDriver == StoreDriverMemory {
		return fmt.Errorf("memory store is not allowed in production")
	}
	return nil
}

// Location resolves TimeZone. Day and hour buckets are computed in it.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("invalid time zone %q: %w", c.TimeZone, err)
	}
	return loc, nil
}

// PubNubEnabled reports whether display publishing is configured.
func (c *Config) PubNubEnabled() bool {
	return c.PubNubPublishKey != "" && c.PubNubSubscribeKey != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := cast.ToIntE(valueStr); err == nil && valueStr != "" {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := cast.ToBoolE(valueStr); err == nil && valueStr != "" {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, v := range strings.Split(valueStr, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
