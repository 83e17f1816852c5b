// Package config loads service configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/modboard/modboard/pkg/kv"
	"github.com/modboard/modboard/pkg/password"
)

// Config holds all application configuration.
type Config struct {
	Server  ServerConfig
	Storage kv.Config

	// InitToken gates POST /system/init. Empty disables bootstrap.
	InitToken string

	// SessionTTL is the lifetime of issued sessions.
	SessionTTL time.Duration

	// PasswordIterations is the PBKDF2 iteration count for new digests.
	PasswordIterations int

	LogLevel string
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// Load reads configuration from the environment. A .env file in the
// working directory is applied first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	storage := kv.DefaultConfig()
	storage.Type = getEnv("BOARD_STORAGE_TYPE", storage.Type)
	storage.RedisURL = getEnv("BOARD_REDIS_URL", storage.RedisURL)
	storage.RedisPassword = getEnv("BOARD_REDIS_PASSWORD", "")
	storage.RedisDB = getEnvInt("BOARD_REDIS_DB", storage.RedisDB)
	storage.RedisPoolSize = getEnvInt("BOARD_REDIS_POOL_SIZE", 0)
	storage.ScanCount = getEnvInt("BOARD_SCAN_COUNT", storage.ScanCount)

	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("BOARD_HOST", "0.0.0.0"),
			Port:            getEnv("BOARD_PORT", "8080"),
			ReadTimeout:     getEnvDuration("BOARD_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvDuration("BOARD_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     getEnvDuration("BOARD_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("BOARD_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Storage:            storage,
		InitToken:          getEnv("BOARD_INIT_TOKEN", ""),
		SessionTTL:         getEnvDuration("BOARD_SESSION_TTL", 24*time.Hour),
		PasswordIterations: getEnvInt("BOARD_PASSWORD_ITERATIONS", password.DefaultIterations),
		LogLevel:           getEnv("BOARD_LOG_LEVEL", "info"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration for inconsistencies.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	switch c.Storage.Type {
	case kv.BackendMemory:
		// No further settings needed.
	case kv.BackendRedis:
		if c.Storage.RedisURL == "" {
			return fmt.Errorf("redis URL is required for redis storage")
		}
	default:
		return fmt.Errorf("invalid storage type: %s (must be memory or redis)", c.Storage.Type)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("session TTL must be positive")
	}
	if c.PasswordIterations <= 0 || c.PasswordIterations > password.MaxIterations {
		return fmt.Errorf("password iterations must be in (0, %d]", password.MaxIterations)
	}
	return nil
}

// Addr is the listen address for the HTTP server.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + c.Port
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
