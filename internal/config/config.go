// Package config loads the frame daemon configuration from environment
// variables, with an optional .env file for development setups.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the frame daemon.
type Config struct {
	APIURL   string // metadata endpoint returning the image reference
	ImageDir string // cache directory for downloaded images
	LogFile  string // optional append-only log file ("" = stderr only)
	HTTPAddr string // listen address for the status API

	GPIOChip      string // GPIO character device, e.g. "gpiochip0"
	ButtonOffsets []int  // BCM line offsets for buttons A..D
	TriggerButton string // button label that drives a refresh

	Saturation         float64       // e-paper saturation, 0..1
	MinRefreshInterval time.Duration // floor between two refreshes
}

// Defaults matching the deployed Raspberry Pi frame.
const (
	defaultAPIURL     = "https://muses.robr.app/entry"
	defaultImageDir   = "images"
	defaultHTTPAddr   = ":8080"
	defaultGPIOChip   = "gpiochip0"
	defaultTrigger    = "B"
	defaultSaturation = 0.8
	defaultMinRefresh = 30 * time.Second
)

// Load reads configuration from the environment. envFile, when non-empty,
// is loaded first (missing file is not an error, matching godotenv usage
// for optional .env files).
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		_ = godotenv.Load(envFile)
	} else {
		_ = godotenv.Load()
	}

	cfg := &Config{
		APIURL:             getEnv("MUSES_API_URL", defaultAPIURL),
		ImageDir:           getEnv("MUSES_IMAGE_DIR", defaultImageDir),
		LogFile:            getEnv("MUSES_LOG_FILE", ""),
		HTTPAddr:           getEnv("MUSES_HTTP_ADDR", defaultHTTPAddr),
		GPIOChip:           getEnv("MUSES_GPIO_CHIP", defaultGPIOChip),
		TriggerButton:      getEnv("MUSES_TRIGGER_BUTTON", defaultTrigger),
		Saturation:         getEnvAsFloat("MUSES_SATURATION", defaultSaturation),
		MinRefreshInterval: getEnvAsDuration("MUSES_MIN_REFRESH_INTERVAL", defaultMinRefresh),
	}

	offsets, err := parseOffsets(getEnv("MUSES_BUTTON_OFFSETS", "5,6,16,24"))
	if err != nil {
		return nil, fmt.Errorf("MUSES_BUTTON_OFFSETS: %w", err)
	}
	cfg.ButtonOffsets = offsets

	if cfg.Saturation < 0 || cfg.Saturation > 1 {
		return nil, fmt.Errorf("MUSES_SATURATION must be in [0,1], got %v", cfg.Saturation)
	}

	return cfg, nil
}

// parseOffsets parses a comma-separated list of GPIO line offsets.
func parseOffsets(s string) ([]int, error) {
	parts := strings.Split(s, ",")
	offsets := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("invalid offset %q", p)
		}
		offsets = append(offsets, n)
	}
	if len(offsets) == 0 {
		return nil, fmt.Errorf("no offsets configured")
	}
	return offsets, nil
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsFloat gets an environment variable as float64 or returns a default value.
func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvAsDuration gets an environment variable as a duration or returns a default value.
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
