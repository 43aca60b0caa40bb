package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr      string
	LogLevel      string
	LogFormat     string
	SessionCookie string

	// MaxUploadBytes caps the request body size for file uploads.
	MaxUploadBytes int64
	PlanCacheSize  int

	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := parsePositiveDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	requestTimeout, err := parsePositiveDuration("REQUEST_TIMEOUT", "60s")
	if err != nil {
		return nil, err
	}

	maxUploadBytes, err := parseMaxUploadBytes()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		SessionCookie:   envOrDefault("SESSION_COOKIE", "atlas_session"),
		MaxUploadBytes:  maxUploadBytes,
		PlanCacheSize:   parsePlanCacheSize(),
		RequestTimeout:  requestTimeout,
		ShutdownTimeout: shutdownTimeout,
	}

	return cfg, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(envOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive duration", key)
	}
	return d, nil
}

// parseMaxUploadBytes defaults to 100 MiB, matching the largest survey
// spreadsheets the service is expected to receive.
func parseMaxUploadBytes() (int64, error) {
	s := envOrDefault("MAX_UPLOAD_BYTES", "104857600")
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid MAX_UPLOAD_BYTES: must be a positive integer")
	}
	return n, nil
}

func parsePlanCacheSize() int {
	if s := os.Getenv("PLAN_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 256
}
