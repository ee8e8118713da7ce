// Package config loads server settings from the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds every tunable the server reads at startup.
type Config struct {
	Port     string
	LogLevel string

	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	RedisKeyPrefix string

	// RoomStoreTTL is how long room records live in Redis after their last write.
	RoomStoreTTL time.Duration
	// RoomIdleTimeout is how long a room may sit untouched before the sweep evicts it.
	RoomIdleTimeout time.Duration
	// RoomSweepSpec is the cron spec for the eviction sweep.
	RoomSweepSpec string
	// StoreTimeout bounds each call to the external store.
	StoreTimeout time.Duration

	AllowedOrigins []string
}

// Load reads the configuration from environment variables, falling back to defaults.
func Load() *Config {
	return &Config{
		Port:            getEnv("PORT", "8080"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		RedisAddr:       getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		RedisDB:         getEnvInt("REDIS_DB", 0),
		RedisKeyPrefix:  getEnv("REDIS_KEY_PREFIX", "pileup"),
		RoomStoreTTL:    getEnvDuration("ROOM_STORE_TTL", 4*time.Hour),
		RoomIdleTimeout: getEnvDuration("ROOM_IDLE_TIMEOUT", 2*time.Hour),
		RoomSweepSpec:   getEnv("ROOM_SWEEP_SPEC", "@every 10m"),
		StoreTimeout:    getEnvDuration("STORE_TIMEOUT", 2*time.Second),
		AllowedOrigins:  splitList(getEnv("ALLOWED_ORIGINS", "*")),
	}
}

// getEnv is a helper to read an environment variable or return a default value.
func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

// getEnvInt is a helper to parse an environment variable as integer, else a default value.
func getEnvInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
