package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	HTTPAddr    string
	PostgresDSN string
	LogLevel    string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	ClaimCodeSalt string

	RateLimitMaxKeys     int
	RateLimitFailClosed  bool
	SweepIntervalSeconds int
	SweepMaxIdleSeconds  int

	FulfillmentTimeoutSeconds int
	FulfillmentRetrySeconds   int
	FulfillmentMaxAttempts    int

	ModerationBundlePath string
}

func FromEnv() Config {
	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	return Config{
		HTTPAddr:                  addr,
		PostgresDSN:               os.Getenv("POSTGRES_DSN"),
		LogLevel:                  envDefault("LOG_LEVEL", "info"),
		RedisAddr:                 os.Getenv("REDIS_ADDR"),
		RedisPassword:             os.Getenv("REDIS_PASSWORD"),
		RedisDB:                   envIntDefault("REDIS_DB", 0),
		ClaimCodeSalt:             os.Getenv("CLAIM_CODE_SALT"),
		RateLimitMaxKeys:          envIntDefault("RATE_LIMIT_MAX_KEYS", 10000),
		RateLimitFailClosed:       envBoolDefault("RATE_LIMIT_FAIL_CLOSED", false),
		SweepIntervalSeconds:      envIntDefault("RATE_LIMIT_SWEEP_INTERVAL_SECONDS", 300),
		SweepMaxIdleSeconds:       envIntDefault("RATE_LIMIT_SWEEP_MAX_IDLE_SECONDS", 3600),
		FulfillmentTimeoutSeconds: envIntDefault("FULFILLMENT_TIMEOUT_SECONDS", 15),
		FulfillmentRetrySeconds:   envIntDefault("FULFILLMENT_RETRY_INTERVAL_SECONDS", 30),
		FulfillmentMaxAttempts:    envIntDefault("FULFILLMENT_MAX_ATTEMPTS", 5),
		ModerationBundlePath:      os.Getenv("MODERATION_BUNDLE_PATH"),
	}
}

func (c Config) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalSeconds) * time.Second
}

func (c Config) SweepMaxIdle() time.Duration {
	return time.Duration(c.SweepMaxIdleSeconds) * time.Second
}

func (c Config) FulfillmentTimeout() time.Duration {
	return time.Duration(c.FulfillmentTimeoutSeconds) * time.Second
}

func (c Config) FulfillmentRetryInterval() time.Duration {
	return time.Duration(c.FulfillmentRetrySeconds) * time.Second
}

func envDefault(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func envIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parsed, err := strconv.Atoi(v)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func envBoolDefault(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	switch v {
	case "1", "true", "TRUE", "True", "yes", "YES", "Yes":
		return true
	case "0", "false", "FALSE", "False", "no", "NO", "No":
		return false
	default:
		return def
	}
}
