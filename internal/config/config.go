// Package config loads and validates environment variables at startup.
// Fail-fast: an invalid value is an error, never a silent default.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store backends.
const (
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Config holds all runtime configuration for the autoapply service.
type Config struct {
	DataDir      string
	StoreBackend string
	SQLitePath   string
	DatabaseURL  string
	RedisURL     string // optional unless StoreBackend is redis; enables event publishing

	BrowserRemoteURL string
	BrowserHeadless  bool
	LocatorFile      string // YAML override of the embedded locator tables

	MaxApplications int
	ApplyMaxSteps   int
	CaptureTimeout  time.Duration // zero disables interactive capture
	CapturePoll     time.Duration

	ScrapeIntervalHours int // How often the cron job fires
	SearchLocation      string
	SearchPlatforms     []string
	SearchLimit         int
	Port                string

	AdzunaAppID   string
	AdzunaAppKey  string
	AdzunaCountry string // e.g. "fr", "gb", "us"

	// Read for the analysis collaborator; the automation core never needs them.
	GeminiAPIKey string
	BrowserLLM   string
}

// LoadDotEnv loads a .env file into the environment when one exists.
// Variables already set win.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Load reads environment variables and returns a validated Config.
func Load() (*Config, error) {
	cfg := &Config{
		DataDir:          envOr("DATA_DIR", "data"),
		StoreBackend:     strings.ToLower(envOr("STORE_BACKEND", BackendFile)),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		RedisURL:         os.Getenv("REDIS_URL"),
		BrowserRemoteURL: os.Getenv("BROWSER_REMOTE_URL"),
		LocatorFile:      os.Getenv("LOCATOR_FILE"),
		SearchLocation:   os.Getenv("SEARCH_LOCATION"),
		SearchPlatforms:  splitList(os.Getenv("SEARCH_PLATFORMS")),
		Port:             envOr("SERVE_PORT", "8083"),
		AdzunaAppID:      os.Getenv("ADZUNA_APP_ID"),
		AdzunaAppKey:     os.Getenv("ADZUNA_APP_KEY"),
		AdzunaCountry:    envOr("ADZUNA_COUNTRY", "fr"),
		GeminiAPIKey:     os.Getenv("GEMINI_API_KEY"),
		BrowserLLM:       os.Getenv("BROWSER_LLM"),
	}
	cfg.SQLitePath = envOr("SQLITE_PATH", cfg.DataDir+"/autoapply.db")

	switch cfg.StoreBackend {
	case BackendFile, BackendSQLite:
	case BackendRedis:
		if cfg.RedisURL == "" {
			return nil, fmt.Errorf("REDIS_URL is required when STORE_BACKEND=redis")
		}
	case BackendPostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required when STORE_BACKEND=postgres")
		}
	default:
		return nil, fmt.Errorf("STORE_BACKEND must be one of file, sqlite, redis, postgres, got %q", cfg.StoreBackend)
	}

	var err error
	if cfg.BrowserHeadless, err = envBool("BROWSER_HEADLESS", true); err != nil {
		return nil, err
	}
	if cfg.MaxApplications, err = envPositiveInt("MAX_APPLICATIONS", 50); err != nil {
		return nil, err
	}
	if cfg.ApplyMaxSteps, err = envPositiveInt("APPLY_MAX_STEPS", 15); err != nil {
		return nil, err
	}
	if cfg.ScrapeIntervalHours, err = envPositiveInt("SCRAPE_INTERVAL_HOURS", 6); err != nil {
		return nil, err
	}
	if cfg.SearchLimit, err = envPositiveInt("SEARCH_LIMIT", 25); err != nil {
		return nil, err
	}
	if cfg.CaptureTimeout, err = envDuration("CAPTURE_TIMEOUT", 120*time.Second, true); err != nil {
		return nil, err
	}
	if cfg.CapturePoll, err = envDuration("CAPTURE_POLL", 2*time.Second, false); err != nil {
		return nil, err
	}

	return cfg, nil
}

// AdzunaEnabled reports whether both Adzuna credentials are set.
func (c *Config) AdzunaEnabled() bool {
	return c.AdzunaAppID != "" && c.AdzunaAppKey != ""
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envPositiveInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 1 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", key, s)
	}
	return v, nil
}

func envBool(key string, def bool) (bool, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean, got %q", key, s)
	}
	return v, nil
}

func envDuration(key string, def time.Duration, allowZero bool) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	v, err := time.ParseDuration(s)
	if err != nil || v < 0 || (v == 0 && !allowZero) {
		return 0, fmt.Errorf("%s must be a positive duration such as 90s, got %q", key, s)
	}
	return v, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
