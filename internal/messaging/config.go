package messaging

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// RabbitMQConfig covers the fulfillment notification channel: one topic
// exchange, publish-only.
type RabbitMQConfig struct {
	Host       string
	Port       int
	Username   string
	Password   string
	VHost      string
	Exchange   string
	RetryCount int
	RetryDelay time.Duration
}

func NewRabbitMQConfig() *RabbitMQConfig {
	return &RabbitMQConfig{
		Host:       envOr("RABBITMQ_HOST", "localhost"),
		Port:       envInt("RABBITMQ_PORT", 5672),
		Username:   envOr("RABBITMQ_USERNAME", "guest"),
		Password:   envOr("RABBITMQ_PASSWORD", "guest"),
		VHost:      envOr("RABBITMQ_VHOST", "/"),
		Exchange:   envOr("RABBITMQ_EXCHANGE", "orders.fulfillment"),
		RetryCount: envInt("RABBITMQ_RETRY_COUNT", 3),
		RetryDelay: envDuration("RABBITMQ_RETRY_DELAY", 5*time.Second),
	}
}

func (c *RabbitMQConfig) ConnectionURL() string {
	vhost := c.VHost
	if !strings.HasPrefix(vhost, "/") {
		vhost = "/" + vhost
	}
	return fmt.Sprintf("amqp://%s:%s@%s:%d%s",
		c.Username, c.Password, c.Host, c.Port, vhost)
}

func envOr(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func envInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func envDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
