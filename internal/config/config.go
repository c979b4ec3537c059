package config

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

type Config struct {
	HTTPAddr string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	RedisAddr string
	RedisPass string

	KorapayBaseURL       string
	KorapaySecretKey     string
	KorapayWebhookSecret string

	TapBaseURL        string
	TapConsumerKey    string
	TapConsumerSecret string
	TapWebhookSecret  string

	SudoBaseURL       string
	SudoAPIKey        string
	SudoWebhookSecret string
}

func Load() *Config {
	return &Config{
		HTTPAddr: getEnv("HTTP_ADDR", ":8030"),

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", "postgres"),
		DBName:     getEnv("DB_NAME", "wingside"),

		RedisAddr: getEnv("REDIS_ADDR", "redis:6379"),
		RedisPass: getEnv("REDIS_PASS", ""),

		KorapayBaseURL:       getEnv("KORAPAY_BASE_URL", "https://api.korapay.com"),
		KorapaySecretKey:     getEnv("KORAPAY_SECRET_KEY", ""),
		KorapayWebhookSecret: getEnv("KORAPAY_WEBHOOK_SECRET", ""),

		TapBaseURL:        getEnv("TAP_BASE_URL", "https://api.tap.company"),
		TapConsumerKey:    getEnv("TAP_CONSUMER_KEY", ""),
		TapConsumerSecret: getEnv("TAP_CONSUMER_SECRET", ""),
		TapWebhookSecret:  getEnv("TAP_WEBHOOK_SECRET", ""),

		SudoBaseURL:       getEnv("SUDO_BASE_URL", "https://api.sudo.africa"),
		SudoAPIKey:        getEnv("SUDO_API_KEY", ""),
		SudoWebhookSecret: getEnv("SUDO_WEBHOOK_SECRET", ""),
	}
}

func ConnectDB(cfg *Config) (*pgxpool.Pool, error) {
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("db pool init failed: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("db unreachable: %w", err)
	}
	return pool, nil
}

func ConnectRedis(cfg *Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPass,
	})
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
