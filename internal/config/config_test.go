package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobmate/autoapply-service/internal/config"
)

var allVars = []string{
	"DATA_DIR", "STORE_BACKEND", "SQLITE_PATH", "DATABASE_URL", "REDIS_URL",
	"BROWSER_REMOTE_URL", "BROWSER_HEADLESS", "LOCATOR_FILE", "MAX_APPLICATIONS",
	"APPLY_MAX_STEPS", "CAPTURE_TIMEOUT", "CAPTURE_POLL", "SCRAPE_INTERVAL_HOURS",
	"SEARCH_LOCATION", "SEARCH_PLATFORMS", "SEARCH_LIMIT", "SERVE_PORT",
	"ADZUNA_APP_ID", "ADZUNA_APP_KEY", "ADZUNA_COUNTRY", "GEMINI_API_KEY", "BROWSER_LLM",
}

// clearEnv blanks every variable Load reads; t.Setenv restores them.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range allVars {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "data", cfg.DataDir)
	assert.Equal(t, config.BackendFile, cfg.StoreBackend)
	assert.Equal(t, "data/autoapply.db", cfg.SQLitePath)
	assert.True(t, cfg.BrowserHeadless)
	assert.Equal(t, 50, cfg.MaxApplications)
	assert.Equal(t, 15, cfg.ApplyMaxSteps)
	assert.Equal(t, 120*time.Second, cfg.CaptureTimeout)
	assert.Equal(t, 2*time.Second, cfg.CapturePoll)
	assert.Equal(t, 6, cfg.ScrapeIntervalHours)
	assert.Equal(t, 25, cfg.SearchLimit)
	assert.Equal(t, "8083", cfg.Port)
	assert.Equal(t, "fr", cfg.AdzunaCountry)
	assert.False(t, cfg.AdzunaEnabled())
	assert.Empty(t, cfg.SearchPlatforms)
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("STORE_BACKEND", "SQLite")
	t.Setenv("SQLITE_PATH", "/tmp/x.db")
	t.Setenv("BROWSER_HEADLESS", "false")
	t.Setenv("MAX_APPLICATIONS", "5")
	t.Setenv("CAPTURE_TIMEOUT", "0s")
	t.Setenv("SEARCH_PLATFORMS", "LinkedIn, Indeed,,")
	t.Setenv("ADZUNA_APP_ID", "id")
	t.Setenv("ADZUNA_APP_KEY", "key")
	t.Setenv("GEMINI_API_KEY", "g")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, config.BackendSQLite, cfg.StoreBackend)
	assert.Equal(t, "/tmp/x.db", cfg.SQLitePath)
	assert.False(t, cfg.BrowserHeadless)
	assert.Equal(t, 5, cfg.MaxApplications)
	assert.Zero(t, cfg.CaptureTimeout, "zero disables capture")
	assert.Equal(t, []string{"LinkedIn", "Indeed"}, cfg.SearchPlatforms)
	assert.True(t, cfg.AdzunaEnabled())
	assert.Equal(t, "g", cfg.GeminiAPIKey)
}

func TestLoad_Rejects(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
	}{
		{"unknown backend", map[string]string{"STORE_BACKEND": "mongo"}},
		{"redis without url", map[string]string{"STORE_BACKEND": "redis"}},
		{"postgres without url", map[string]string{"STORE_BACKEND": "postgres"}},
		{"zero cap", map[string]string{"MAX_APPLICATIONS": "0"}},
		{"non-numeric steps", map[string]string{"APPLY_MAX_STEPS": "many"}},
		{"negative interval", map[string]string{"SCRAPE_INTERVAL_HOURS": "-1"}},
		{"bad bool", map[string]string{"BROWSER_HEADLESS": "maybe"}},
		{"bad duration", map[string]string{"CAPTURE_TIMEOUT": "two minutes"}},
		{"zero poll", map[string]string{"CAPTURE_POLL": "0s"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := config.Load()
			assert.Error(t, err)
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("DATA_DIR=/srv/jobs\nSERVE_PORT=9000\n"), 0o600))
	t.Setenv("SERVE_PORT", "7000")
	// godotenv skips variables that exist at all, even empty ones.
	require.NoError(t, os.Unsetenv("DATA_DIR"))

	require.NoError(t, config.LoadDotEnv(path))
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "/srv/jobs", cfg.DataDir)
	assert.Equal(t, "7000", cfg.Port, "already-set variables win")
}

func TestLoadDotEnv_MissingFileIsFine(t *testing.T) {
	assert.NoError(t, config.LoadDotEnv(filepath.Join(t.TempDir(), "nope.env")))
}
