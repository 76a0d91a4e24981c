package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Sms       SmsConfig
	Auth      AuthConfig
	Retention RetentionConfig
}

type ServerConfig struct {
	Address string
}

type DatabaseConfig struct {
	PostgresURL string
}

type RedisConfig struct {
	Enabled  bool
	Address  string
	Password string
	DB       int
	TTL      time.Duration
}

type SmsConfig struct {
	WebhookURL string
}

type AuthConfig struct {
	// WebhookURL points at the approval service. When empty, a static
	// authenticator with StaticDecision is used instead.
	WebhookURL     string
	StaticDecision string
}

type RetentionConfig struct {
	Interval time.Duration
	MaxAge   time.Duration
}

func LoadAll() (*Config, error) {
	postgresURL, err := requireEnv("POSTGRES_URL")
	if err != nil {
		return nil, err
	}
	smsURL, err := requireEnv("SMS_WEBHOOK_URL")
	if err != nil {
		return nil, err
	}

	retentionInterval, err := getEnvInt("RETENTION_INTERVAL_SECONDS", 3600)
	if err != nil {
		return nil, err
	}
	retentionMaxAge, err := getEnvInt("RETENTION_MAX_AGE_DAYS", 90)
	if err != nil {
		return nil, err
	}

	redisCfg, err := loadRedisConfig()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Address: getEnv("SERVER_ADDRESS", ":8080"),
		},
		Database: DatabaseConfig{
			PostgresURL: postgresURL,
		},
		Sms: SmsConfig{
			WebhookURL: smsURL,
		},
		Auth: AuthConfig{
			WebhookURL:     getEnv("AUTH_WEBHOOK_URL", ""),
			StaticDecision: getEnv("AUTH_STATIC_DECISION", "approved"),
		},
		Retention: RetentionConfig{
			Interval: time.Duration(retentionInterval) * time.Second,
			MaxAge:   time.Duration(retentionMaxAge) * 24 * time.Hour,
		},
		Redis: redisCfg,
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadRedisConfig() (RedisConfig, error) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		return RedisConfig{Enabled: false}, nil
	}

	db, err := getEnvInt("REDIS_DB", 0)
	if err != nil {
		return RedisConfig{}, err
	}
	ttl, err := getEnvInt("REDIS_TTL_SECONDS", 300)
	if err != nil {
		return RedisConfig{}, err
	}

	return RedisConfig{
		Enabled:  true,
		Address:  addr,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       db,
		TTL:      time.Duration(ttl) * time.Second,
	}, nil
}

func validate(cfg *Config) error {
	if cfg.Retention.Interval <= 0 {
		return fmt.Errorf("RETENTION_INTERVAL_SECONDS must be > 0")
	}
	if cfg.Retention.MaxAge <= 0 {
		return fmt.Errorf("RETENTION_MAX_AGE_DAYS must be > 0")
	}
	switch cfg.Auth.StaticDecision {
	case "approved", "denied", "cancelled":
	default:
		return fmt.Errorf("AUTH_STATIC_DECISION must be approved, denied or cancelled, got %q", cfg.Auth.StaticDecision)
	}
	if cfg.Redis.Enabled && cfg.Redis.TTL <= 0 {
		return fmt.Errorf("REDIS_TTL_SECONDS must be > 0")
	}
	return nil
}

func requireEnv(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("missing required env var: %s", key)
	}
	return val, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid int for env %s: %s", key, v)
	}
	return i, nil
}
