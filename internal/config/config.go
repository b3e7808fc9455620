package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	HTTP_PORT        string `env:"HTTP_PORT"`
	DB_STRING        string `env:"DB_STRING"`
	KAFKA_BROKERS    string `env:"KAFKA_BROKERS"`
	KAFKA_EVENTS     string `env:"KAFKA_EVENTS_TOPIC"`
	KAFKA_RIDER_PUSH string `env:"KAFKA_RIDER_PUSH_TOPIC"`
	ROUTING_URL      string `env:"ROUTING_URL"`

	DispatchInterval time.Duration `env:"DISPATCH_INTERVAL"`

	// Pricing knobs, all money in cents.
	RatePerKmCents   int64   `env:"RATE_PER_KM_CENTS"`
	UrgencyFeeCents  int64   `env:"URGENCY_FEE_CENTS"`
	ServiceChargePct float64 `env:"SERVICE_CHARGE_PCT"`
}

func LoadConfig() (*Config, error) {
	cfg := &Config{
		HTTP_PORT:        os.Getenv("HTTP_PORT"),
		DB_STRING:        os.Getenv("DB_STRING"),
		KAFKA_BROKERS:    os.Getenv("KAFKA_BROKERS"),
		KAFKA_EVENTS:     os.Getenv("KAFKA_EVENTS_TOPIC"),
		KAFKA_RIDER_PUSH: os.Getenv("KAFKA_RIDER_PUSH_TOPIC"),
		ROUTING_URL:      os.Getenv("ROUTING_URL"),
	}

	if cfg.HTTP_PORT == "" {
		cfg.HTTP_PORT = "8080"
	}
	if cfg.KAFKA_EVENTS == "" {
		cfg.KAFKA_EVENTS = "dispatch.events"
	}
	if cfg.KAFKA_RIDER_PUSH == "" {
		cfg.KAFKA_RIDER_PUSH = "dispatch.rider-push"
	}

	cfg.DispatchInterval = 10 * time.Minute
	if v := os.Getenv("DISPATCH_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.DispatchInterval = d
		}
	}

	cfg.RatePerKmCents = envInt64("RATE_PER_KM_CENTS", 150)
	cfg.UrgencyFeeCents = envInt64("URGENCY_FEE_CENTS", 50000)
	cfg.ServiceChargePct = envFloat("SERVICE_CHARGE_PCT", 10)

	return cfg, nil
}

func envInt64(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
