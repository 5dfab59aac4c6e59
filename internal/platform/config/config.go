// Package config builds runtime configuration from environment variables so
// main stays lean.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// RedisConfig captures connection settings for the summary cache backend.
// An empty URL disables Redis; the in-process cache is used instead.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Config captures server-level configuration.
type Config struct {
	Addr          string
	JWTSigningKey string
	JWTIssuer     string
	JWTAudience   string

	// DatabaseURL selects the PostgreSQL store; empty keeps the in-memory
	// store (development and tests only).
	DatabaseURL string

	Redis RedisConfig

	// KafkaBrokers enables the registration event publisher when non-empty.
	KafkaBrokers []string
	KafkaTopic   string

	// PaymentURL points at the payment service; empty selects the mock
	// client.
	PaymentURL     string
	PaymentTimeout time.Duration

	// SummaryCacheTTL bounds retention of cached account listings.
	SummaryCacheTTL time.Duration

	RequestTimeout time.Duration
}

// FromEnv builds a Config from environment variables.
func FromEnv() Config {
	cfg := Config{
		Addr:            envOr("MHREG_ADDR", ":8080"),
		JWTSigningKey:   envOr("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		JWTIssuer:       envOr("JWT_ISSUER", "mhreg"),
		JWTAudience:     envOr("JWT_AUDIENCE", "mhreg-api"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		PaymentURL:      os.Getenv("PAYMENT_SVC_URL"),
		PaymentTimeout:  envDurationOr("PAYMENT_TIMEOUT", 5*time.Second),
		KafkaTopic:      envOr("KAFKA_TOPIC", "mhr.registration.created"),
		SummaryCacheTTL: envDurationOr("SUMMARY_CACHE_TTL", 5*time.Minute),
		RequestTimeout:  envDurationOr("REQUEST_TIMEOUT", 30*time.Second),
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envIntOr("REDIS_POOL_SIZE", 10),
			MinIdleConns: envIntOr("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDurationOr("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDurationOr("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDurationOr("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
	}
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		for _, broker := range strings.Split(brokers, ",") {
			if broker = strings.TrimSpace(broker); broker != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, broker)
			}
		}
	}
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
