// Package config handles loading and validation of client configuration.
// Supports both development (env vars, .env, config file) and production (Secret Manager) modes.
package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"storefront/internal/session"
	"storefront/internal/transport"
)

// Defaults applied when a setting is absent.
const (
	DefaultAPIURL         = "http://localhost:9098"
	DefaultPort           = "8080"
	DefaultRequestTimeout = 30 * time.Second
	DefaultSecretName     = "storefront-api"
	DefaultRateLimit      = 10.0
	DefaultRateBurst      = 20
)

// Config holds all client and server configuration.
// Environment determines whether API credentials load from env vars (development) or Secret Manager (production).
type Config struct {
	// Server settings (storefront-mcp only)
	Port        string
	Environment string // "development" or "production"
	LogLevel    string // "debug", "info", "warn", "error"

	// Per-client MCP request rate; 0 disables limiting.
	RateLimit float64
	RateBurst int

	// GCP settings (required in production)
	GCPProject string
	SecretName string

	API     APIConfig
	Session SessionConfig
}

// APIConfig describes how to reach the storefront API.
// In production, URL and APIKey are loaded from Secret Manager as JSON.
type APIConfig struct {
	URL            string         `json:"api_url" yaml:"url"`
	APIKey         string         `json:"api_key" yaml:"api_key"`
	Transport      transport.Kind `json:"transport" yaml:"transport"`
	RequestTimeout time.Duration  `json:"-" yaml:"-"`
	MinAPIVersion  string         `json:"min_api_version" yaml:"min_api_version"`
}

// SessionConfig controls where the session token lives.
type SessionConfig struct {
	File       string `json:"file" yaml:"file"`
	CookieName string `json:"cookie" yaml:"cookie"`
}

// Load reads configuration from .env, file, environment, or Secret Manager.
// Priority: CONFIG_FILE (if set) → ENV vars / Secret Manager. Variables already
// set in the environment win over .env entries.
// Validates all fields and returns an error if any are invalid.
func Load(ctx context.Context) (*Config, error) {
	if err := loadDotEnv(envOrDefault("ENV_FILE", ".env")); err != nil {
		return nil, err
	}

	// If CONFIG_FILE is set, load everything from the file
	if configPath := os.Getenv("CONFIG_FILE"); configPath != "" {
		return loadFromFile(configPath)
	}

	timeout, err := parseTimeout(os.Getenv("REQUEST_TIMEOUT"))
	if err != nil {
		return nil, err
	}
	rateLimit, rateBurst, err := parseRateLimit(os.Getenv("RATE_LIMIT"), os.Getenv("RATE_BURST"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Port:        envOrDefault("PORT", DefaultPort),
		Environment: envOrDefault("ENVIRONMENT", "development"),
		LogLevel:    envOrDefault("LOG_LEVEL", "info"),
		RateLimit:   rateLimit,
		RateBurst:   rateBurst,
		GCPProject:  os.Getenv("GCP_PROJECT"),
		SecretName:  envOrDefault("SECRET_NAME", DefaultSecretName),
		API: APIConfig{
			URL:            envOrDefault("STOREFRONT_API_URL", DefaultAPIURL),
			APIKey:         os.Getenv("STOREFRONT_API_KEY"),
			Transport:      transport.Kind(envOrDefault("TRANSPORT", string(transport.KindStandard))),
			RequestTimeout: timeout,
			MinAPIVersion:  os.Getenv("MIN_API_VERSION"),
		},
		Session: SessionConfig{
			File:       os.Getenv("SESSION_FILE"),
			CookieName: envOrDefault("SESSION_COOKIE", session.DefaultCookieName),
		},
	}

	if cfg.Environment == "production" {
		if cfg.GCPProject == "" {
			return nil, fmt.Errorf("GCP_PROJECT required in production environment")
		}
		if err := cfg.loadFromSecretManager(ctx); err != nil {
			return nil, fmt.Errorf("loading API config: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadDotEnv loads KEY=value pairs from path into the environment.
// A missing file is not an error.
func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("loading %s: %w", path, err)
}

// fileConfig matches the JSON and YAML config file layout.
type fileConfig struct {
	Port        string `json:"port" yaml:"port"`
	Environment string `json:"environment" yaml:"environment"`
	LogLevel    string `json:"log_level" yaml:"log_level"`
	RateLimit   string `json:"rate_limit" yaml:"rate_limit"`
	RateBurst   string `json:"rate_burst" yaml:"rate_burst"`
	API         struct {
		URL            string `json:"url" yaml:"url"`
		APIKey         string `json:"api_key" yaml:"api_key"`
		Transport      string `json:"transport" yaml:"transport"`
		RequestTimeout string `json:"request_timeout" yaml:"request_timeout"`
		MinAPIVersion  string `json:"min_api_version" yaml:"min_api_version"`
	} `json:"api" yaml:"api"`
	Session SessionConfig `json:"session" yaml:"session"`
}

// loadFromFile reads all configuration from a JSON or YAML file.
// The format follows the extension; anything other than .yaml/.yml is JSON.
func loadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var fc fileConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return nil, fmt.Errorf("parsing YAML config file: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &fc); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	timeout, err := parseTimeout(fc.API.RequestTimeout)
	if err != nil {
		return nil, err
	}
	rateLimit, rateBurst, err := parseRateLimit(fc.RateLimit, fc.RateBurst)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Port:        withDefault(fc.Port, DefaultPort),
		Environment: withDefault(fc.Environment, "development"),
		LogLevel:    withDefault(fc.LogLevel, "info"),
		RateLimit:   rateLimit,
		RateBurst:   rateBurst,
		API: APIConfig{
			URL:            withDefault(fc.API.URL, DefaultAPIURL),
			APIKey:         fc.API.APIKey,
			Transport:      transport.Kind(withDefault(fc.API.Transport, string(transport.KindStandard))),
			RequestTimeout: timeout,
			MinAPIVersion:  fc.API.MinAPIVersion,
		},
		Session: SessionConfig{
			File:       fc.Session.File,
			CookieName: withDefault(fc.Session.CookieName, session.DefaultCookieName),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// withDefault returns val if non-empty, otherwise defaultVal.
func withDefault(val, defaultVal string) string {
	if val != "" {
		return val
	}
	return defaultVal
}

// parseTimeout parses a Go duration, defaulting to DefaultRequestTimeout.
func parseTimeout(s string) (time.Duration, error) {
	if s == "" {
		return DefaultRequestTimeout, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid request timeout %q: %w", s, err)
	}
	return d, nil
}

// parseRateLimit parses requests per second and burst, applying defaults.
func parseRateLimit(limit, burst string) (float64, int, error) {
	l, b := DefaultRateLimit, DefaultRateBurst
	if limit != "" {
		v, err := strconv.ParseFloat(limit, 64)
		if err != nil || v < 0 {
			return 0, 0, fmt.Errorf("invalid rate limit %q: want requests per second >= 0", limit)
		}
		l = v
	}
	if burst != "" {
		v, err := strconv.Atoi(burst)
		if err != nil || v < 1 {
			return 0, 0, fmt.Errorf("invalid rate burst %q: want a positive integer", burst)
		}
		b = v
	}
	return l, b, nil
}

// loadFromSecretManager fetches the API URL and key from GCP Secret Manager.
// Secret name format: projects/{project}/secrets/{secret_name}/versions/latest
// Fields absent from the secret keep their environment values.
func (c *Config) loadFromSecretManager(ctx context.Context) error {
	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return fmt.Errorf("creating secret manager client: %w", err)
	}
	defer client.Close()

	secretName := fmt.Sprintf("projects/%s/secrets/%s/versions/latest",
		c.GCPProject, c.SecretName)

	result, err := client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: secretName,
	})
	if err != nil {
		return fmt.Errorf("accessing secret %s: %w", secretName, err)
	}

	return c.applySecret(result.Payload.Data)
}

// applySecret overlays the secret JSON onto the API settings.
func (c *Config) applySecret(data []byte) error {
	var secret struct {
		URL    string `json:"api_url"`
		APIKey string `json:"api_key"`
	}
	if err := json.Unmarshal(data, &secret); err != nil {
		return fmt.Errorf("parsing secret JSON: %w", err)
	}

	c.API.URL = withDefault(secret.URL, c.API.URL)
	c.API.APIKey = withDefault(secret.APIKey, c.API.APIKey)
	return nil
}

// validate checks that all configuration fields are usable.
func (c *Config) validate() error {
	u, err := url.Parse(c.API.URL)
	if err != nil {
		return fmt.Errorf("invalid api url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
		return fmt.Errorf("invalid api url %q: need http(s)://host", c.API.URL)
	}

	if !c.API.Transport.Valid() {
		return fmt.Errorf("unknown transport %q (standard or chrome)", c.API.Transport)
	}
	if c.API.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive")
	}
	if c.Session.CookieName == "" {
		return fmt.Errorf("session cookie name is required")
	}
	return nil
}

// envOrDefault returns the environment variable value or the default if not set.
func envOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
