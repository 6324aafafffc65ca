package config

import (
	"fmt"
	"os"
)

type Config struct {
	Port             string
	Env              string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresHost     string
	PostgresPort     string
	PostgresSSLMode  string
	PostgresTimeZone string

	StripeSecretKey     string
	StripeWebhookSecret string // optional; unsigned webhooks are accepted when empty (dev only)

	FrontendURL   string
	AuthVerifyURL string
	AuthAPIKey    string

	AdminJWTSecret string

	RedisAddr     string
	RedisPassword string

	KafkaBrokers    string // comma separated; event publishing is disabled when empty
	KafkaOrderTopic string
}

func LoadConfig() (*Config, error) {
	cfg := &Config{
		Port:             getEnv("PORT", "8080"),
		Env:              getEnv("APP_ENV", "development"),
		PostgresUser:     os.Getenv("POSTGRES_USER"),
		PostgresPassword: os.Getenv("POSTGRES_PASSWORD"),
		PostgresDB:       os.Getenv("POSTGRES_DB"),
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		PostgresTimeZone: getEnv("POSTGRES_TIMEZONE", "Europe/Athens"),

		StripeSecretKey:     os.Getenv("STRIPE_SECRET_KEY"),
		StripeWebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),

		FrontendURL:   getEnv("FRONTEND_URL", "http://localhost:3000"),
		AuthVerifyURL: os.Getenv("CLERK_VERIFY_URL"),
		AuthAPIKey:    os.Getenv("CLERK_SECRET_KEY"),

		AdminJWTSecret: os.Getenv("ADMIN_JWT_SECRET"),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		KafkaBrokers:    os.Getenv("KAFKA_BROKERS"),
		KafkaOrderTopic: getEnv("KAFKA_ORDER_TOPIC", "order-events"),
	}

	if cfg.PostgresUser == "" || cfg.PostgresPassword == "" || cfg.PostgresDB == "" {
		return nil, fmt.Errorf("missing required postgres environment variables")
	}
	if cfg.StripeSecretKey == "" {
		return nil, fmt.Errorf("missing required STRIPE_SECRET_KEY")
	}
	if cfg.AdminJWTSecret == "" {
		return nil, fmt.Errorf("missing required ADMIN_JWT_SECRET")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
