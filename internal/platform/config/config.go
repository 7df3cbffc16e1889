package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"
)

var (
	errInvalidAPIURL          = errors.New("config: API_BASE_URL must be an absolute http(s) URL")
	errInvalidWSURL           = errors.New("config: WS_URL must be an absolute ws(s) URL")
	errAttemptsOutOfRange     = errors.New("config: MAX_RECONNECT_ATTEMPTS must be 1-100")
	errPageSizeOutOfRange     = errors.New("config: PAGE_SIZE must be 1-100")
	errNonPositiveDuration    = errors.New("config: durations must be positive")
	errNegativeDebounceWindow = errors.New("config: DEBOUNCE_WINDOW must not be negative")
)

// Config holds all dashboard configuration loaded from environment variables.
type Config struct {
	APIBaseURL           string
	WSURL                string
	APIKey               string
	LogLevel             string
	ReconnectInterval    time.Duration
	MaxReconnectAttempts int
	PollInterval         time.Duration
	DebounceWindow       time.Duration
	PageSize             int
	RequestTimeout       time.Duration
	MetricsAddr          string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (Config, error) {
	cfg := Config{
		APIBaseURL:           getEnv("API_BASE_URL", "http://localhost:8080/api"),
		WSURL:                getEnv("WS_URL", "ws://localhost:8080/ws"),
		APIKey:               getEnv("API_KEY", "dev-api-key-2025"),
		LogLevel:             getEnv("LOG_LEVEL", "ERROR"),
		ReconnectInterval:    getEnvAsDuration("RECONNECT_INTERVAL", 5*time.Second),
		MaxReconnectAttempts: getEnvAsInt("MAX_RECONNECT_ATTEMPTS", 5),
		PollInterval:         getEnvAsDuration("POLL_INTERVAL", 5*time.Second),
		DebounceWindow:       getEnvAsDuration("DEBOUNCE_WINDOW", 300*time.Millisecond),
		PageSize:             getEnvAsInt("PAGE_SIZE", 10),
		RequestTimeout:       getEnvAsDuration("REQUEST_TIMEOUT", 10*time.Second),
		MetricsAddr:          getEnv("METRICS_ADDR", ""),
	}

	return cfg, cfg.validate()
}

func (c Config) validate() error {
	if !hasScheme(c.APIBaseURL, "http", "https") {
		return fmt.Errorf("%w: %q", errInvalidAPIURL, c.APIBaseURL)
	}
	if !hasScheme(c.WSURL, "ws", "wss") {
		return fmt.Errorf("%w: %q", errInvalidWSURL, c.WSURL)
	}

	if c.MaxReconnectAttempts < 1 || c.MaxReconnectAttempts > 100 {
		return fmt.Errorf("%w: got %d", errAttemptsOutOfRange, c.MaxReconnectAttempts)
	}
	if c.PageSize < 1 || c.PageSize > 100 {
		return fmt.Errorf("%w: got %d", errPageSizeOutOfRange, c.PageSize)
	}

	if c.ReconnectInterval <= 0 || c.PollInterval <= 0 || c.RequestTimeout <= 0 {
		return errNonPositiveDuration
	}
	if c.DebounceWindow < 0 {
		return errNegativeDebounceWindow
	}

	return nil
}

func hasScheme(raw string, schemes ...string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return false
	}
	for _, s := range schemes {
		if u.Scheme == s {
			return true
		}
	}
	return false
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	s := os.Getenv(key)
	if s == "" {
		return fallback
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return v
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return fallback
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return v
}
