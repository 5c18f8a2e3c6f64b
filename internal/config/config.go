// Package config loads the device configuration from the environment,
// with a .env file as an optional local override.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server ServerConfig
	Logger LoggerConfig
	DB     DBConfig
	Remote RemoteConfig
	Sync   SyncConfig
}

type ServerConfig struct {
	AppEnv string
}

type LoggerConfig struct {
	Level    string
	Encoding string
}

type DBConfig struct {
	// Path is the tenant data store; DevicePath holds device-level
	// state that survives tenant purges.
	Path       string
	DevicePath string
}

type RemoteConfig struct {
	BaseURL      string
	DeviceID     string
	DeviceSecret string
	MaxRetries   int
	Timeout      time.Duration
}

type SyncConfig struct {
	CatalogInterval time.Duration
	DrainInterval   time.Duration
	MaxAttempts     int
	CacheTTL        time.Duration
}

// Load reads the configuration from the environment. A .env file in
// the working directory is loaded first if present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Server: ServerConfig{
			AppEnv: getEnv("APP_ENV", "dev"),
		},
		Logger: LoggerConfig{
			Level:    getEnv("LOGGER_LEVEL", "info"),
			Encoding: getEnv("LOGGER_ENCODING", "console"),
		},
		DB: DBConfig{
			Path:       getEnv("DB_PATH", "counterline.db"),
			DevicePath: getEnv("DEVICE_DB_PATH", "counterline-device.db"),
		},
		Remote: RemoteConfig{
			BaseURL:      getEnv("REMOTE_BASE_URL", ""),
			DeviceID:     getEnv("DEVICE_ID", ""),
			DeviceSecret: getEnv("DEVICE_SECRET", ""),
			MaxRetries:   getEnvInt("REMOTE_MAX_RETRIES", 4),
			Timeout:      getEnvDuration("REMOTE_TIMEOUT", 10*time.Second),
		},
		Sync: SyncConfig{
			CatalogInterval: getEnvDuration("CATALOG_SYNC_INTERVAL", 15*time.Minute),
			DrainInterval:   getEnvDuration("OUTBOX_DRAIN_INTERVAL", 30*time.Second),
			MaxAttempts:     getEnvInt("OUTBOX_MAX_ATTEMPTS", 10),
			CacheTTL:        getEnvDuration("CATALOG_CACHE_TTL", 5*time.Minute),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
