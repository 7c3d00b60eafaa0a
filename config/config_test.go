package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("TIME_ZONE", "UTC")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, StoreDriverPocketBase, cfg.StoreDriver)
	assert.Empty(t, cfg.RedisURL)
	assert.False(t, cfg.KafkaEnabled)
	assert.Equal(t, 5, cfg.ClaimAttempts)
	assert.Equal(t, 10*time.Second, cfg.DeskLockTTL)
	assert.Equal(t, "arrival", cfg.ServiceTimeMode)
	assert.Equal(t, 10, cfg.DisplayWaiting)
	assert.Equal(t, 10, cfg.RateLimitPerMinute)
	assert.Equal(t, "9090", cfg.MetricsPort)
	assert.False(t, cfg.PubNubEnabled())

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)
}

func TestLoadConfig_FromEnv(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("QUEUE_CLAIM_ATTEMPTS", "8")
	t.Setenv("QUEUE_DESK_LOCK_TTL", "30s")
	t.Setenv("QUEUE_SERVICE_TIME_MODE", "serving")
	t.Setenv("TIME_ZONE", "Asia/Vientiane")
	t.Setenv("PUBNUB_PUBLISH_KEY", "pub")
	t.Setenv("PUBNUB_SUBSCRIBE_KEY", "sub")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, StoreDriverMemory, cfg.StoreDriver)
	assert.Equal(t, "redis://localhost:6379/0", cfg.RedisURL)
	assert.True(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 8, cfg.ClaimAttempts)
	assert.Equal(t, 30*time.Second, cfg.DeskLockTTL)
	assert.Equal(t, "serving", cfg.ServiceTimeMode)
	assert.True(t, cfg.PubNubEnabled())
}

func TestLoadConfig_IgnoresUnparsableNumbers(t *testing.T) {
	t.Setenv("TIME_ZONE", "UTC")
	t.Setenv("QUEUE_CLAIM_ATTEMPTS", "many")
	t.Setenv("ENABLE_METRICS", "maybe")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.ClaimAttempts)
	assert.True(t, cfg.EnableMetrics)
}

func validConfig() Config {
	return Config{
		Environment:     "development",
		StoreDriver:     StoreDriverPocketBase,
		TimeZone:        "UTC",
		ClaimAttempts:   5,
		DeskLockTTL:     time.Second,
		ServiceTimeMode: "arrival",
		DisplayWaiting:  10,
		EnableMetrics:   true,
		MetricsPort:     "9090",
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"valid", func(*Config) {}, ""},
		{"store driver", func(c *Config) { c.StoreDriver = "postgres" }, "invalid store driver"},
		{"service time mode", func(c *Config) { c.ServiceTimeMode = "never" }, "invalid service time mode"},
		{"claim attempts", func(c *Config) { c.ClaimAttempts = 0 }, "claim attempts"},
		{"lock ttl", func(c *Config) { c.DeskLockTTL = 0 }, "desk lock ttl"},
		{"display waiting", func(c *Config) { c.DisplayWaiting = -1 }, "display waiting"},
		{"rate limit", func(c *Config) { c.RateLimitPerMinute = -5 }, "rate limit"},
		{"time zone", func(c *Config) { c.TimeZone = "Mars/Olympus" }, "invalid time zone"},
		{"kafka brokers", func(c *Config) { c.KafkaEnabled = true; c.KafkaBrokers = nil }, "kafka brokers"},
		{"metrics port", func(c *Config) { c.MetricsPort = "70000" }, "invalid metrics port"},
		{"metrics disabled skips port", func(c *Config) { c.EnableMetrics = false; c.MetricsPort = "" }, ""},
		{"memory in production", func(c *Config) { c.Environment = "production"; c.StoreDriver = StoreDriverMemory }, "memory store"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.errMsg)
		})
	}
}
