// Package config provides application configuration.
package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	PrimaryURL     string // Python chat API, probed directly
	BackendURL     string // authenticated backend in front of the primary
	BearerToken    string
	ConversationID string
	UserInput      string
	Timeout        time.Duration // 0 = no client timeout
	NoColor        bool
	LogLevel       string
	Stub           StubConfig
}

// StubConfig controls the offline stub services.
type StubConfig struct {
	PrimaryAddr string
	BackendAddr string
	PrimaryURL  string            // where the stub backend forwards turns
	DBPath      string
	Tokens      map[string]string // bearer token -> user id
	TLSCert     string
	TLSKey      string
	TTL         time.Duration // idle conversations older than this are swept; 0 disables
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	timeout, err := getEnvDuration("PROBE_TIMEOUT", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	ttl, err := getEnvDuration("STUB_CONVERSATION_TTL", 24*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	tokens, err := ParseTokens(getEnv("STUB_TOKENS", ""))
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	cfg := &Config{
		PrimaryURL:     getEnv("PRIMARY_URL", "http://localhost:5000"),
		BackendURL:     getEnv("BACKEND_URL", "https://localhost:7205"),
		BearerToken:    getEnv("BACKEND_TOKEN", "fake-token"),
		ConversationID: getEnv("PROBE_CONVERSATION_ID", "test-123"),
		UserInput:      getEnv("PROBE_USER_INPUT", "Hello"),
		Timeout:        timeout,
		NoColor:        os.Getenv("NO_COLOR") != "" || !getEnvBool("PROBE_COLOR", true),
		LogLevel:       getEnv("LOG_LEVEL", "warn"),
		Stub: StubConfig{
			PrimaryAddr: getEnv("STUB_PRIMARY_ADDR", ":5000"),
			BackendAddr: getEnv("STUB_BACKEND_ADDR", ":7205"),
			PrimaryURL:  getEnv("STUB_PRIMARY_URL", "http://localhost:5000"),
			DBPath:      getEnv("STUB_DB_PATH", "./data/stub.db"),
			Tokens:      tokens,
			TLSCert:     getEnv("STUB_TLS_CERT", ""),
			TLSKey:      getEnv("STUB_TLS_KEY", ""),
			TTL:         ttl,
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if err := validateURL("PRIMARY_URL", c.PrimaryURL); err != nil {
		return err
	}
	if err := validateURL("BACKEND_URL", c.BackendURL); err != nil {
		return err
	}
	if strings.TrimSpace(c.BearerToken) == "" {
		return fmt.Errorf("BACKEND_TOKEN cannot be empty")
	}
	if c.ConversationID == "" {
		return fmt.Errorf("PROBE_CONVERSATION_ID cannot be empty")
	}
	if c.Timeout < 0 {
		return fmt.Errorf("PROBE_TIMEOUT must be >= 0")
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if err := validateURL("STUB_PRIMARY_URL", c.Stub.PrimaryURL); err != nil {
		return err
	}
	if c.Stub.DBPath == "" {
		return fmt.Errorf("STUB_DB_PATH cannot be empty")
	}
	if c.Stub.TTL < 0 {
		return fmt.Errorf("STUB_CONVERSATION_TTL must be >= 0")
	}
	if (c.Stub.TLSCert == "") != (c.Stub.TLSKey == "") {
		return fmt.Errorf("STUB_TLS_CERT and STUB_TLS_KEY must be set together")
	}
	return nil
}

// Level returns the slog level for LogLevel, falling back to warn.
func (c *Config) Level() slog.Level {
	lvl, err := ParseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelWarn
	}
	return lvl
}

// ParseLevel maps a level name to a slog level.
func ParseLevel(name string) (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(name))); err != nil {
		return 0, fmt.Errorf("LOG_LEVEL %q is not a valid level", name)
	}
	return lvl, nil
}

// ParseTokens parses "token=user,token2=user2" into a lookup map.
func ParseTokens(raw string) (map[string]string, error) {
	tokens := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		token, user, ok := strings.Cut(pair, "=")
		token, user = strings.TrimSpace(token), strings.TrimSpace(user)
		if !ok || token == "" || user == "" {
			return nil, fmt.Errorf("STUB_TOKENS entry %q must look like token=user", pair)
		}
		tokens[token] = user
	}
	return tokens, nil
}

func validateURL(key, raw string) error {
	if raw == "" {
		return fmt.Errorf("%s cannot be empty", key)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s must be an http or https URL, got %q", key, raw)
	}
	if u.Host == "" {
		return fmt.Errorf("%s has no host: %q", key, raw)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
