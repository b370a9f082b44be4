// Package config loads process configuration from the environment, with a
// .env file picked up when present.
package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config is the full process configuration.
type Config struct {
	Server  ServerConfig
	Storage StorageConfig
	Redis   RedisConfig
	Logging LoggingConfig
	Engine  EngineConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string
	Port int
}

// StorageConfig selects and configures the level snapshot backend.
type StorageConfig struct {
	Backend     string // "sqlite" or "postgres"
	SQLitePath  string
	PostgresDSN string
}

// RedisConfig holds the optional result cache settings.
type RedisConfig struct {
	Enabled  bool
	Address  string
	Password string
	DB       int
	PoolSize int
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Level  string
	Pretty bool
}

// EngineConfig holds detection defaults.
type EngineConfig struct {
	DefaultEngine  string // confluence_swing, pivot_extremum, zone_quality
	BaseTimeframe  string
	CacheTTLSecond int
}

// Load reads configuration from the environment. Missing variables fall
// back to defaults suitable for local development.
func Load() (*Config, error) {
	// Ignore a missing .env; explicit env vars always win.
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: getEnvInt("SERVER_PORT", 8080),
		},
		Storage: StorageConfig{
			Backend:     getEnv("STORAGE_BACKEND", "sqlite"),
			SQLitePath:  getEnv("SQLITE_PATH", "levels.db"),
			PostgresDSN: getEnv("POSTGRES_DSN", ""),
		},
		Redis: RedisConfig{
			Enabled:  getEnvBool("REDIS_ENABLED", false),
			Address:  getEnv("REDIS_ADDRESS", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			PoolSize: getEnvInt("REDIS_POOL_SIZE", 10),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Pretty: getEnvBool("LOG_PRETTY", false),
		},
		Engine: EngineConfig{
			DefaultEngine:  getEnv("ENGINE_DEFAULT", "confluence_swing"),
			BaseTimeframe:  getEnv("ENGINE_BASE_TIMEFRAME", "15m"),
			CacheTTLSecond: getEnvInt("ENGINE_CACHE_TTL_SECONDS", 60),
		},
	}
	return cfg, nil
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

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
