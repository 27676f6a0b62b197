package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds application configuration
type Config struct {
	MongoDB   MongoDBConfig
	RabbitMQ  RabbitMQConfig
	Telegram  TelegramConfig
	Scheduler SchedulerConfig
	Delivery  DeliveryConfig
	Server    ServerConfig
}

// MongoDBConfig holds MongoDB configuration
type MongoDBConfig struct {
	URI      string
	Database string
}

// RabbitMQConfig holds RabbitMQ configuration. An empty URL disables the
// event consumer and the broker-backed alert sink.
type RabbitMQConfig struct {
	URL string
}

// TelegramConfig holds messaging gateway configuration
type TelegramConfig struct {
	APIBaseURL string
	BotToken   string
}

// SchedulerConfig holds poller and health monitor configuration
type SchedulerConfig struct {
	PollInterval        time.Duration
	HealthCheckSchedule string
}

// DeliveryConfig holds delivery executor configuration
type DeliveryConfig struct {
	MaxRetries     int
	BackoffBase    time.Duration
	BackoffMax     time.Duration
	AttemptTimeout time.Duration
	MaxConcurrent  int
	AlertThreshold int
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port             string
	RateLimitPerUser float64
	RateLimitBurst   int
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	pollInterval, _ := time.ParseDuration(getEnv("SCHEDULER_POLL_INTERVAL", "60s"))
	if pollInterval <= 0 {
		pollInterval = 60 * time.Second
	}

	maxRetries, _ := strconv.Atoi(getEnv("DELIVERY_MAX_RETRIES", "3"))
	backoffBase, _ := time.ParseDuration(getEnv("DELIVERY_BACKOFF_BASE", "2s"))
	backoffMax, _ := time.ParseDuration(getEnv("DELIVERY_BACKOFF_MAX", "60s"))
	attemptTimeout, _ := time.ParseDuration(getEnv("DELIVERY_ATTEMPT_TIMEOUT", "10s"))
	maxConcurrent, _ := strconv.Atoi(getEnv("DELIVERY_MAX_CONCURRENT", "16"))
	alertThreshold, _ := strconv.Atoi(getEnv("DELIVERY_ALERT_THRESHOLD", "5"))

	rateLimitPerUser, _ := strconv.ParseFloat(getEnv("RATE_LIMIT_PER_USER", "10"), 64)
	rateLimitBurst, _ := strconv.Atoi(getEnv("RATE_LIMIT_BURST", "20"))

	return &Config{
		MongoDB: MongoDBConfig{
			URI:      getEnv("MONGODB_URI", "mongodb://localhost:27017"),
			Database: getEnv("MONGODB_DATABASE", "reminder_service"),
		},
		RabbitMQ: RabbitMQConfig{
			URL: getEnv("RABBITMQ_URL", ""),
		},
		Telegram: TelegramConfig{
			APIBaseURL: getEnv("TELEGRAM_API_BASE_URL", "https://api.telegram.org"),
			BotToken:   getEnv("TELEGRAM_BOT_TOKEN", ""),
		},
		Scheduler: SchedulerConfig{
			PollInterval:        pollInterval,
			HealthCheckSchedule: getEnv("HEALTH_CHECK_SCHEDULE", "@every 3m"),
		},
		Delivery: DeliveryConfig{
			MaxRetries:     maxRetries,
			BackoffBase:    backoffBase,
			BackoffMax:     backoffMax,
			AttemptTimeout: attemptTimeout,
			MaxConcurrent:  maxConcurrent,
			AlertThreshold: alertThreshold,
		},
		Server: ServerConfig{
			Port:             getEnv("REMINDER_SERVICE_PORT", "8086"),
			RateLimitPerUser: rateLimitPerUser,
			RateLimitBurst:   rateLimitBurst,
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
