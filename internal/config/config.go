package config

import (
	"os"
)

type Config struct {
	HTTP_PORT string `env:"HTTP_PORT"`
	DB_STRING string `env:"DB_STRING"`

	PUBLIC_BASE_URL string `env:"PUBLIC_BASE_URL"`

	WEBPAY_BASE_URL      string `env:"WEBPAY_BASE_URL"`
	WEBPAY_COMMERCE_CODE string `env:"WEBPAY_COMMERCE_CODE"`
	WEBPAY_API_KEY       string `env:"WEBPAY_API_KEY"`

	KHIPU_BASE_URL    string `env:"KHIPU_BASE_URL"`
	KHIPU_RECEIVER_ID string `env:"KHIPU_RECEIVER_ID"`
	KHIPU_SECRET      string `env:"KHIPU_SECRET"`

	KAFKA_BROKERS             string `env:"KAFKA_BROKERS"`
	KAFKA_EVENTS_TOPIC        string `env:"KAFKA_EVENTS_TOPIC"`
	KAFKA_NOTIFICATIONS_TOPIC string `env:"KAFKA_NOTIFICATIONS_TOPIC"`
	KAFKA_GROUP_ID            string `env:"KAFKA_GROUP_ID"`
}

func LoadConfig() (*Config, error) {
	cfg := &Config{
		HTTP_PORT: os.Getenv("HTTP_PORT"),
		DB_STRING: os.Getenv("DB_STRING"),

		PUBLIC_BASE_URL: os.Getenv("PUBLIC_BASE_URL"),

		WEBPAY_BASE_URL:      os.Getenv("WEBPAY_BASE_URL"),
		WEBPAY_COMMERCE_CODE: os.Getenv("WEBPAY_COMMERCE_CODE"),
		WEBPAY_API_KEY:       os.Getenv("WEBPAY_API_KEY"),

		KHIPU_BASE_URL:    os.Getenv("KHIPU_BASE_URL"),
		KHIPU_RECEIVER_ID: os.Getenv("KHIPU_RECEIVER_ID"),
		KHIPU_SECRET:      os.Getenv("KHIPU_SECRET"),

		KAFKA_BROKERS:             os.Getenv("KAFKA_BROKERS"),
		KAFKA_EVENTS_TOPIC:        os.Getenv("KAFKA_EVENTS_TOPIC"),
		KAFKA_NOTIFICATIONS_TOPIC: os.Getenv("KAFKA_NOTIFICATIONS_TOPIC"),
		KAFKA_GROUP_ID:            os.Getenv("KAFKA_GROUP_ID"),
	}

	if cfg.HTTP_PORT == "" {
		cfg.HTTP_PORT = "8080"
	}
	if cfg.PUBLIC_BASE_URL == "" {
		cfg.PUBLIC_BASE_URL = "http://localhost:" + cfg.HTTP_PORT
	}
	if cfg.WEBPAY_BASE_URL == "" {
		// integration environment
		cfg.WEBPAY_BASE_URL = "https://webpay3gint.transbank.cl"
	}
	if cfg.KHIPU_BASE_URL == "" {
		cfg.KHIPU_BASE_URL = "https://khipu.com/api/2.0"
	}
	if cfg.KAFKA_EVENTS_TOPIC == "" {
		cfg.KAFKA_EVENTS_TOPIC = "payments.outcomes"
	}
	if cfg.KAFKA_NOTIFICATIONS_TOPIC == "" {
		cfg.KAFKA_NOTIFICATIONS_TOPIC = "payments.notifications"
	}
	if cfg.KAFKA_GROUP_ID == "" {
		cfg.KAFKA_GROUP_ID = "orders-service"
	}

	return cfg, nil
}
