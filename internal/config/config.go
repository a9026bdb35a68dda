package config

import (
	"os"
	"strconv"
)

type Config struct {
	Port        int
	NatsURL     string
	NatsToken   string
	DatabaseURL string
	RedisAddr   string
	RulesPath   string
	LogLevel    string
	APIToken    string
}

func Load() Config {
	return Config{
		Port:        envInt("ASSESSOR_PORT", 8760),
		NatsURL:     envStr("NATS_URL", "nats://localhost:4222"),
		NatsToken:   envStr("NATS_TOKEN", ""),
		DatabaseURL: envStr("DATABASE_URL", ""),
		RedisAddr:   envStr("REDIS_ADDR", ""),
		RulesPath:   envStr("ASSESSOR_RULES_PATH", ""),
		LogLevel:    envStr("LOG_LEVEL", "info"),
		APIToken:    envStr("ASSESSOR_API_TOKEN", ""),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
