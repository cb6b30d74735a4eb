// Package config loads application configuration from a YAML file and the
// environment. Environment values win over the file; the two backend
// credentials are required and missing either is fatal at startup.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the application configuration.
type Config struct {
	SupabaseURL     string        `yaml:"supabase_url" env:"SUPABASE_URL"`
	SupabaseAnonKey string        `yaml:"supabase_anon_key" env:"SUPABASE_ANON_KEY"`
	SessionDir      string        `yaml:"session_dir" env:"SESSION_DIR"`
	RequestTimeout  time.Duration `yaml:"request_timeout" env:"REQUEST_TIMEOUT"`
	PollInterval    time.Duration `yaml:"poll_interval" env:"POLL_INTERVAL"`
	LogLevel        string        `yaml:"log_level" env:"LOG_LEVEL"`
}

// Load builds the configuration: optional .env file, optional YAML file,
// then environment overrides.
func Load(yamlPath string) (*Config, error) {
	// A local .env is a development convenience; absence is not an error.
	_ = godotenv.Load()

	cfg := &Config{}

	if yamlPath != "" {
		data, err := os.ReadFile(yamlPath)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config file: %w", err)
			}
		}
	}

	if err := envdecode.Decode(cfg); err != nil && err != envdecode.ErrNoTargetFieldsAreSet {
		return nil, fmt.Errorf("decode environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.SessionDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home dir: %w", err)
		}
		cfg.SessionDir = home + "/.pawsadopt"
	}
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = 5 * time.Second
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	return cfg, nil
}

// Validate checks the required values.
func (c *Config) Validate() error {
	if c.SupabaseURL == "" {
		return fmt.Errorf("SUPABASE_URL is required")
	}
	if c.SupabaseAnonKey == "" {
		return fmt.Errorf("SUPABASE_ANON_KEY is required")
	}
	return nil
}
