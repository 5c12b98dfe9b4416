package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds the full service configuration
type Config struct {
	Port      int
	LogLevel  string
	Env       string
	DB        DBConfig
	Kafka     KafkaConfig
	Payment   PaymentConfig
	RateLimit RateLimitConfig
}

// DBConfig holds the database configuration
type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

// KafkaConfig holds the Kafka configuration
type KafkaConfig struct {
	Brokers       []string
	EventsTopic   string
	ConsumerGroup string
}

// PaymentConfig holds the payment gateway configuration
type PaymentConfig struct {
	GatewayURL string
}

// RateLimitConfig holds the request rate limiting configuration
type RateLimitConfig struct {
	GlobalMaxTokens  float64
	GlobalRefillRate float64
	IPMaxTokens      float64
	IPRefillRate     float64
}

// getEnv retrieves an environment variable or returns a default value if not set
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}

	return defaultValue
}

// Load reads the configuration from environment variables
func Load() (*Config, error) {
	port, err := strconv.Atoi(getEnv("PORT", "8080"))

	if err != nil {
		return nil, fmt.Errorf("invalid PORT: %w", err)
	}

	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))

	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	return &Config{
		Port:     port,
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Env:      getEnv("APP_ENV", "development"),
		DB: DBConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     dbPort,
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			Name:     getEnv("DB_NAME", "uberpharma"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Kafka: KafkaConfig{
			Brokers:       strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
			EventsTopic:   getEnv("KAFKA_EVENTS_TOPIC", "pharmacy.order-events"),
			ConsumerGroup: getEnv("KAFKA_CONSUMER_GROUP", "pharmacy-api"),
		},
		Payment: PaymentConfig{
			GatewayURL: getEnv("PAYMENT_GATEWAY_URL", "http://localhost:9090"),
		},
		RateLimit: RateLimitConfig{
			GlobalMaxTokens:  getEnvFloat("RATE_LIMIT_GLOBAL_MAX", 100),
			GlobalRefillRate: getEnvFloat("RATE_LIMIT_GLOBAL_REFILL", 50),
			IPMaxTokens:      getEnvFloat("RATE_LIMIT_IP_MAX", 20),
			IPRefillRate:     getEnvFloat("RATE_LIMIT_IP_REFILL", 5),
		},
	}, nil
}

// getEnvFloat retrieves a float environment variable or returns a default
func getEnvFloat(key string, defaultValue float64) float64 {
	value, exists := os.LookupEnv(key)

	if !exists {
		return defaultValue
	}

	parsed, err := strconv.ParseFloat(value, 64)

	if err != nil {
		return defaultValue
	}

	return parsed
}

// GetDBConnString returns the database connection string
func (c *Config) GetDBConnString() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host, c.DB.Port, c.DB.User, c.DB.Password, c.DB.Name, c.DB.SSLMode)
}
