// Package config reads process configuration from the environment.
package config

import (
	"os"
	"strconv"
)

// Config is the server's process-level configuration. Room-level game
// settings come from the create-room request, not from here.
type Config struct {
	Port                 string
	RedisAddr            string // empty means in-memory snapshots
	DatabaseURL          string // empty means in-memory gallery stats
	LogLevel             string
	ShutdownGraceSeconds int
}

func Load() Config {
	return Config{
		Port:                 getEnv("PORT", "8080"),
		RedisAddr:            getEnv("REDIS_ADDR", ""),
		DatabaseURL:          getEnv("DATABASE_URL", ""),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		ShutdownGraceSeconds: getEnvInt("SHUTDOWN_GRACE_SECONDS", 5),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
