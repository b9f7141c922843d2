// Package config loads process configuration from the environment.
// Required settings are validated together so a misconfigured deploy
// reports every missing variable at once instead of one per restart.
package config

import (
	"fmt"
	"os"
	"strings"
)

// Config is everything the process reads from the environment.
type Config struct {
	// Google OAuth client material.
	GoogleClientID     string
	GoogleClientSecret string

	// OpenAI API key for insight generation.
	OpenAIAPIKey string

	// SessionSecret signs session cookies. Rotating it invalidates
	// every live session.
	SessionSecret string

	// BaseURL is the externally visible origin used to build the OAuth
	// redirect URL. Defaults to http://HOST:PORT for local runs.
	BaseURL string

	Host string
	Port string

	DBPath      string
	BatchesFile string

	// S3-compatible avatar storage. Leaving the bucket empty disables
	// uploads without failing startup.
	StorageBucket    string
	StorageEndpoint  string
	StorageRegion    string
	StorageAccessKey string
	StorageSecretKey string
}

// Load reads the environment and validates required settings. The
// error lists every missing variable.
func Load() (*Config, error) {
	cfg := &Config{
		GoogleClientID:     strings.TrimSpace(os.Getenv("GOOGLE_CLIENT_ID")),
		GoogleClientSecret: strings.TrimSpace(os.Getenv("GOOGLE_CLIENT_SECRET")),
		OpenAIAPIKey:       strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
		SessionSecret:      strings.TrimSpace(os.Getenv("SESSION_SECRET")),
		BaseURL:            strings.TrimRight(strings.TrimSpace(os.Getenv("BASE_URL")), "/"),
		Host:               os.Getenv("HOST"),
		Port:               os.Getenv("PORT"),
		DBPath:             os.Getenv("SPARKY_DB_PATH"),
		BatchesFile:        os.Getenv("SPARKY_BATCHES_FILE"),
		StorageBucket:      os.Getenv("STORAGE_BUCKET"),
		StorageEndpoint:    strings.TrimRight(os.Getenv("STORAGE_ENDPOINT"), "/"),
		StorageRegion:      os.Getenv("STORAGE_REGION"),
		StorageAccessKey:   os.Getenv("STORAGE_ACCESS_KEY"),
		StorageSecretKey:   os.Getenv("STORAGE_SECRET_KEY"),
	}

	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if cfg.DBPath == "" {
		cfg.DBPath = "sparky.db"
	}
	if cfg.StorageRegion == "" {
		cfg.StorageRegion = "auto"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://" + cfg.Addr()
	}

	var missing []string
	for _, v := range []struct{ name, value string }{
		{"GOOGLE_CLIENT_ID", cfg.GoogleClientID},
		{"GOOGLE_CLIENT_SECRET", cfg.GoogleClientSecret},
		{"OPENAI_API_KEY", cfg.OpenAIAPIKey},
		{"SESSION_SECRET", cfg.SessionSecret},
	} {
		if v.value == "" {
			missing = append(missing, v.name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	return cfg, nil
}

// Addr is the host:port the server listens on.
func (c *Config) Addr() string {
	return c.Host + ":" + c.Port
}

// RedirectURL is the OAuth callback URL registered with Google.
func (c *Config) RedirectURL() string {
	return c.BaseURL + "/auth/oauth2callback"
}

// StorageEnabled reports whether avatar uploads are configured.
func (c *Config) StorageEnabled() bool {
	return c.StorageBucket != ""
}
