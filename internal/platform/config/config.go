package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
)

// Config holds the client-side settings. Everything is env-driven with
// development defaults; only a broken override is an error.
type Config struct {
	App        string
	LogLevel   string
	APIBaseURL string
	PageSize   int
	DevAPI     DevAPIConfig
}

// DevAPIConfig configures the local API emulator (cmd/devapi).
type DevAPIConfig struct {
	Addr      string
	JWTSecret string
}

func Load() (Config, error) {
	cfg := Config{
		App:        getenv("VB_APP", "venueboard"),
		LogLevel:   getenv("VB_LOG_LEVEL", "info"),
		APIBaseURL: getenv("VB_API_BASE_URL", "http://localhost:8080"),
		PageSize:   20,
		DevAPI: DevAPIConfig{
			Addr:      getenv("VB_DEVAPI_ADDR", ":8080"),
			JWTSecret: getenv("VB_DEVAPI_JWT_SECRET", "dev-secret"),
		},
	}
	if raw := strings.TrimSpace(os.Getenv("VB_PAGE_SIZE")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return Config{}, errors.New("VB_PAGE_SIZE must be a positive integer")
		}
		cfg.PageSize = n
	}
	return cfg, nil
}

func getenv(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}
