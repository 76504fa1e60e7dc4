package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPPort int

	DBConfig struct {
		Host     string
		Port     int
		User     string
		Password string
		Name     string
		SSLMode  string
	}
	MigrationsPath string

	RedisAddr      string
	SecretCacheTTL time.Duration

	KafkaBrokerURL         string
	KafkaNotificationTopic string

	OutboxPollInterval time.Duration
	OutboxPollTimeout  time.Duration

	// WebhookSharedSecret signs the generic gateway payloads (X-Signature).
	// StripeWebhookSecret signs the Stripe-Signature scheme.
	WebhookSharedSecret string
	StripeWebhookSecret string
	StripeTolerance     time.Duration

	GatewayBaseURL string
	GatewayAPIKey  string
	GatewayTimeout time.Duration

	JWTSecret string
}

func LoadConfig() (*Config, error) {
	// Local development overlay; absent file is fine.
	_ = godotenv.Load()

	cfg := &Config{}

	cfg.HTTPPort = getEnvAsInt("COURSEPAY_HTTP_PORT", 8080)

	cfg.DBConfig.Host = getEnvOrDefault("COURSEPAY_DB_HOST", "localhost")
	cfg.DBConfig.Port = getEnvAsInt("COURSEPAY_DB_PORT", 5432)
	cfg.DBConfig.User = getEnvOrDefault("COURSEPAY_DB_USER", "user")
	cfg.DBConfig.Password = getEnvOrDefault("COURSEPAY_DB_PASSWORD", "password")
	cfg.DBConfig.Name = getEnvOrDefault("COURSEPAY_DB_NAME", "coursepay_db")
	cfg.DBConfig.SSLMode = getEnvOrDefault("COURSEPAY_DB_SSLMODE", "disable")
	cfg.MigrationsPath = getEnvOrDefault("COURSEPAY_MIGRATIONS_PATH", "file://migrations")

	cfg.RedisAddr = getEnvOrDefault("COURSEPAY_REDIS_ADDR", "localhost:6379")
	cfg.SecretCacheTTL = getEnvAsDuration("COURSEPAY_SECRET_CACHE_TTL", 15*time.Minute)

	cfg.KafkaBrokerURL = getEnvOrDefault("KAFKA_BROKER_URL", "localhost:9092")
	cfg.KafkaNotificationTopic = getEnvOrDefault("KAFKA_NOTIFICATION_TOPIC", "coursepay_notifications")

	cfg.OutboxPollInterval = getEnvAsDuration("OUTBOX_POLL_INTERVAL", 1*time.Second)
	cfg.OutboxPollTimeout = getEnvAsDuration("OUTBOX_POLL_TIMEOUT", 500*time.Millisecond)

	// No default: an empty secret makes the webhook verifiers reject
	// everything, and main refuses to start without one.
	cfg.WebhookSharedSecret = getEnvOrDefault("WEBHOOK_SHARED_SECRET", "")
	cfg.StripeWebhookSecret = getEnvOrDefault("STRIPE_WEBHOOK_SECRET", "")
	cfg.StripeTolerance = getEnvAsDuration("STRIPE_WEBHOOK_TOLERANCE", 5*time.Minute)

	cfg.GatewayBaseURL = getEnvOrDefault("GATEWAY_BASE_URL", "https://api.gateway.localhost")
	cfg.GatewayAPIKey = getEnvOrDefault("GATEWAY_API_KEY", "")
	cfg.GatewayTimeout = getEnvAsDuration("GATEWAY_TIMEOUT", 10*time.Second)

	cfg.JWTSecret = getEnvOrDefault("JWT_SECRET", "dev-secret")

	return cfg, nil
}

func (c *Config) GetDBConnectionString() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DBConfig.Host, c.DBConfig.Port, c.DBConfig.User, c.DBConfig.Password, c.DBConfig.Name, c.DBConfig.SSLMode)
}

func (c *Config) GetDBMigrationConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DBConfig.User, c.DBConfig.Password, c.DBConfig.Host, c.DBConfig.Port, c.DBConfig.Name, c.DBConfig.SSLMode)
}

func (c *Config) GetKafkaBrokers() []string {
	return strings.Split(c.KafkaBrokerURL, ",")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnvOrDefault(key, strconv.Itoa(defaultValue))
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnvOrDefault(key, defaultValue.String())
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
