package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/transport"
)

// clearEnv isolates a test from the caller's environment and any .env file.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"CONFIG_FILE", "STOREFRONT_API_URL", "STOREFRONT_API_KEY", "SESSION_FILE",
		"SESSION_COOKIE", "TRANSPORT", "REQUEST_TIMEOUT", "MIN_API_VERSION",
		"PORT", "ENVIRONMENT", "LOG_LEVEL", "GCP_PROJECT", "SECRET_NAME",
		"RATE_LIMIT", "RATE_BURST",
	} {
		t.Setenv(k, "")
	}
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, DefaultAPIURL, cfg.API.URL)
	assert.Equal(t, transport.KindStandard, cfg.API.Transport)
	assert.Equal(t, 30*time.Second, cfg.API.RequestTimeout)
	assert.Equal(t, "shop_session-id", cfg.Session.CookieName)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, DefaultRateLimit, cfg.RateLimit)
	assert.Equal(t, DefaultRateBurst, cfg.RateBurst)
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("STOREFRONT_API_URL", "https://shop.example.com/api")
	t.Setenv("STOREFRONT_API_KEY", "key_123")
	t.Setenv("TRANSPORT", "chrome")
	t.Setenv("REQUEST_TIMEOUT", "5s")
	t.Setenv("MIN_API_VERSION", "2025-01-01")
	t.Setenv("SESSION_FILE", "/tmp/storefront-session.json")
	t.Setenv("SESSION_COOKIE", "sid")
	t.Setenv("PORT", "9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("RATE_LIMIT", "0")
	t.Setenv("RATE_BURST", "5")

	cfg, err := Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "https://shop.example.com/api", cfg.API.URL)
	assert.Equal(t, "key_123", cfg.API.APIKey)
	assert.Equal(t, transport.KindChrome, cfg.API.Transport)
	assert.Equal(t, 5*time.Second, cfg.API.RequestTimeout)
	assert.Equal(t, "2025-01-01", cfg.API.MinAPIVersion)
	assert.Equal(t, "/tmp/storefront-session.json", cfg.Session.File)
	assert.Equal(t, "sid", cfg.Session.CookieName)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Zero(t, cfg.RateLimit)
	assert.Equal(t, 5, cfg.RateBurst)
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)

	envFile := filepath.Join(t.TempDir(), ".env")
	content := "STOREFRONT_API_URL=http://dotenv.local:9098\nPORT=7070\n"
	require.NoError(t, os.WriteFile(envFile, []byte(content), 0600))
	t.Setenv("ENV_FILE", envFile)
	t.Setenv("PORT", "6060") // set variables win over .env

	// godotenv skips keys that exist at all, even empty ones, and writes
	// straight into the process environment.
	os.Unsetenv("STOREFRONT_API_URL")
	t.Cleanup(func() { os.Unsetenv("STOREFRONT_API_URL") })

	cfg, err := Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "http://dotenv.local:9098", cfg.API.URL, "value from .env")
	assert.Equal(t, "6060", cfg.Port)
}

func TestLoadFromFile(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{
			name: "json",
			file: "config.json",
			content: `{
				"port": "9000",
				"log_level": "debug",
				"api": {"url": "https://api.shop.test", "transport": "chrome", "request_timeout": "10s"},
				"session": {"file": "/var/lib/storefront/session.json"}
			}`,
		},
		{
			name: "yaml",
			file: "config.yaml",
			content: `port: "9000"
log_level: debug
api:
  url: https://api.shop.test
  transport: chrome
  request_timeout: 10s
session:
  file: /var/lib/storefront/session.json
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			path := filepath.Join(t.TempDir(), tt.file)
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0600))
			t.Setenv("CONFIG_FILE", path)
			t.Setenv("STOREFRONT_API_URL", "http://ignored:1") // file wins

			cfg, err := Load(context.Background())
			require.NoError(t, err)

			assert.Equal(t, "9000", cfg.Port)
			assert.Equal(t, "https://api.shop.test", cfg.API.URL)
			assert.Equal(t, transport.KindChrome, cfg.API.Transport)
			assert.Equal(t, 10*time.Second, cfg.API.RequestTimeout)
			assert.Equal(t, "/var/lib/storefront/session.json", cfg.Session.File)
			assert.Equal(t, "shop_session-id", cfg.Session.CookieName, "default kept")
		})
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{"relative url", map[string]string{"STOREFRONT_API_URL": "/api"}, "invalid api url"},
		{"ftp url", map[string]string{"STOREFRONT_API_URL": "ftp://shop.example.com"}, "invalid api url"},
		{"unknown transport", map[string]string{"TRANSPORT": "firefox"}, "unknown transport"},
		{"bad timeout", map[string]string{"REQUEST_TIMEOUT": "soon"}, "invalid request timeout"},
		{"negative timeout", map[string]string{"REQUEST_TIMEOUT": "-1s"}, "must be positive"},
		{"negative rate limit", map[string]string{"RATE_LIMIT": "-1"}, "invalid rate limit"},
		{"zero burst", map[string]string{"RATE_BURST": "0"}, "invalid rate burst"},
		{"production without project", map[string]string{"ENVIRONMENT": "production"}, "GCP_PROJECT required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load(context.Background())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	clearEnv(t)
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "nope.json"))

	_, err := Load(context.Background())
	assert.Error(t, err)
}

func TestApplySecret(t *testing.T) {
	cfg := &Config{API: APIConfig{URL: DefaultAPIURL, APIKey: "env-key"}}

	require.NoError(t, cfg.applySecret([]byte(`{"api_url":"https://prod.shop.example.com"}`)))
	assert.Equal(t, "https://prod.shop.example.com", cfg.API.URL)
	assert.Equal(t, "env-key", cfg.API.APIKey, "env value kept")

	assert.Error(t, cfg.applySecret([]byte(`not json`)), "malformed secret")
}
