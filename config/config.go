// Package config handles loading and managing application configuration
// from YAML files, .env files and environment variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// RenderDefaults are the values every new session starts with.
type RenderDefaults struct {
	Size            int    `yaml:"size"`
	Margin          int    `yaml:"margin"`
	Foreground      string `yaml:"foreground"`
	Background      string `yaml:"background"`
	ErrorCorrection string `yaml:"error_correction"`
	Format          string `yaml:"format"`
	LogoSize        int    `yaml:"logo_size"`
}

// Config holds all application configuration values.
type Config struct {
	Port             int            `yaml:"port"`
	DataDir          string         `yaml:"data_dir"`
	LogLevel         string         `yaml:"log_level"`
	SessionTTL       Duration       `yaml:"session_ttl"`
	SweepInterval    Duration       `yaml:"sweep_interval"`
	ExportLog        bool           `yaml:"export_log"`
	ExportWebhookURL string         `yaml:"export_webhook_url"`
	Defaults         RenderDefaults `yaml:"defaults"`
}

// Duration is a wrapper around time.Duration that supports YAML unmarshalling
// from human-readable strings like "30s", "5m", "1h".
type Duration struct {
	time.Duration
}

// UnmarshalYAML implements the yaml.Unmarshaler interface for Duration.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

// MarshalYAML implements the yaml.Marshaler interface for Duration.
func (d Duration) MarshalYAML() (interface{}, error) {
	return d.Duration.String(), nil
}

// defaults returns a Config populated with sensible default values.
func defaults() *Config {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}
	return &Config{
		Port:          8556,
		DataDir:       filepath.Join(homeDir, ".qrstudio"),
		LogLevel:      "info",
		SessionTTL:    Duration{30 * time.Minute},
		SweepInterval: Duration{time.Minute},
		ExportLog:     true,
		Defaults: RenderDefaults{
			Size:            256,
			Margin:          4,
			Foreground:      "#000000",
			Background:      "#FFFFFF",
			ErrorCorrection: "M",
			Format:          "png",
			LogoSize:        25,
		},
	}
}

// Load reads configuration from the YAML file at path, falling back to
// defaults if the file does not exist. A .env file in the working directory
// is loaded first; environment variables with the QRS_ prefix override any
// file or default values.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading .env file: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// File doesn't exist, proceed with defaults.
	} else {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// applyEnvOverrides applies QRS_* environment variable overrides to cfg.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("QRS_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Port = p
		}
	}
	if v := os.Getenv("QRS_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("QRS_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("QRS_SESSION_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.SessionTTL = Duration{d}
		}
	}
	if v := os.Getenv("QRS_SWEEP_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.SweepInterval = Duration{d}
		}
	}
	if v := os.Getenv("QRS_EXPORT_WEBHOOK_URL"); v != "" {
		cfg.ExportWebhookURL = v
	}
	if v := os.Getenv("QRS_EXPORT_LOG"); v != "" {
		switch strings.ToLower(v) {
		case "true", "1", "yes":
			cfg.ExportLog = true
		case "false", "0", "no":
			cfg.ExportLog = false
		}
	}
}

// EnsureDataDir creates the DataDir if it does not already exist.
func (c *Config) EnsureDataDir() error {
	if err := os.MkdirAll(c.DataDir, 0o755); err != nil {
		return fmt.Errorf("creating data dir %s: %w", c.DataDir, err)
	}
	return nil
}

// ExportDBPath returns the location of the export log database.
func (c *Config) ExportDBPath() string {
	return filepath.Join(c.DataDir, "exports.db")
}
