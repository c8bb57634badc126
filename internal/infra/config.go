package infra

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv          string
	Port            string
	DatabaseURL     string
	StoragePath     string
	GeoIPDBPath     string
	GatewayBaseURL  string
	PollInterval    time.Duration
	PollMaxInterval time.Duration
	PollBackoff     float64
	HTTPReadTimeout time.Duration
	HTTPIdleTimeout time.Duration
	FFmpegPath      string
}

// LoadConfig loads configuration from environment variables and applies
// defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:          getEnv("APP_ENV", "development"),
		Port:            getEnv("PORT", "8080"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		StoragePath:     getEnv("STORAGE_PATH", "./storage"),
		GeoIPDBPath:     os.Getenv("GEOIP_DB_PATH"),
		GatewayBaseURL:  getEnv("GATEWAY_BASE_URL", "https://api.openai.com/v1"),
		PollInterval:    time.Millisecond * time.Duration(getEnvInt("POLL_INTERVAL_MS", 2500)),
		PollMaxInterval: time.Millisecond * time.Duration(getEnvInt("POLL_MAX_INTERVAL_MS", 30000)),
		PollBackoff:     getEnvFloat("POLL_BACKOFF_FACTOR", 1.5),
		HTTPReadTimeout: time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPIdleTimeout: time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		FFmpegPath:      getEnv("FFMPEG_PATH", "ffmpeg"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.PollBackoff <= 1 {
		return nil, fmt.Errorf("POLL_BACKOFF_FACTOR must be greater than 1")
	}
	if cfg.PollMaxInterval < cfg.PollInterval {
		return nil, fmt.Errorf("POLL_MAX_INTERVAL_MS must not be below POLL_INTERVAL_MS")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}
