// Package config provides configuration loading and validation for the CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Environment variables consulted by ApplyEnv.
const (
	EnvDatabaseURL    = "DATABASE_URL"
	EnvIsolationLevel = "CATALOG_ISOLATION_LEVEL"
	EnvLogLevel       = "LOG_LEVEL"
	EnvLogFormat      = "LOG_FORMAT"
)

// Config represents the CLI configuration that can be loaded from a JSON file.
// All fields are optional; missing values use defaults or must be provided via CLI flags.
type Config struct {
	// Storage
	DatabaseURL    string `json:"database_url,omitempty"`    // PostgreSQL connection URL
	IsolationLevel string `json:"isolation_level,omitempty"` // read_committed, repeatable_read or serializable

	// Logging
	LogLevel  string `json:"log_level,omitempty"`  // debug, info, warn, error
	LogFormat string `json:"log_format,omitempty"` // text or json
	Verbose   bool   `json:"verbose,omitempty"`    // Print detailed summaries

	// Reports
	ReportDays  int `json:"report_days,omitempty"`  // Days of daily scrape stats to report
	ExportLimit int `json:"export_limit,omitempty"` // Max active products in the XLSX export
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// Validate checks that the configuration has valid values.
// Required fields are checked by the commands that need them.
func (c *Config) Validate() error {
	switch normalize(c.IsolationLevel) {
	case "", "read_committed", "repeatable_read", "serializable":
	default:
		return fmt.Errorf("config error: unknown 'isolation_level' %q", c.IsolationLevel)
	}

	switch strings.ToLower(c.LogLevel) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config error: unknown 'log_level' %q", c.LogLevel)
	}

	switch strings.ToLower(c.LogFormat) {
	case "", "text", "json":
	default:
		return fmt.Errorf("config error: 'log_format' must be text or json")
	}

	if c.ReportDays < 0 {
		return fmt.Errorf("config error: 'report_days' must be non-negative")
	}
	if c.ExportLimit < 0 {
		return fmt.Errorf("config error: 'export_limit' must be non-negative")
	}

	return nil
}

// ApplyEnv fills empty fields from the environment.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if c.DatabaseURL == "" {
		c.DatabaseURL = getenv(EnvDatabaseURL)
	}
	if c.IsolationLevel == "" {
		c.IsolationLevel = getenv(EnvIsolationLevel)
	}
	if c.LogLevel == "" {
		c.LogLevel = getenv(EnvLogLevel)
	}
	if c.LogFormat == "" {
		c.LogFormat = getenv(EnvLogFormat)
	}
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}
	if result.IsolationLevel == "" {
		result.IsolationLevel = defaults.IsolationLevel
	}
	if result.LogLevel == "" {
		result.LogLevel = defaults.LogLevel
	}
	if result.LogFormat == "" {
		result.LogFormat = defaults.LogFormat
	}
	if result.ReportDays == 0 {
		result.ReportDays = defaults.ReportDays
	}
	if result.ExportLimit == 0 {
		result.ExportLimit = defaults.ExportLimit
	}

	// Bool fields: cannot distinguish unset from false, so we don't merge
	// (CLI flags should always win for bools)

	return result
}

// Defaults returns the built-in configuration defaults.
func Defaults() Config {
	return Config{
		IsolationLevel: "read_committed",
		LogLevel:       "info",
		LogFormat:      "text",
		ReportDays:     30,
		ExportLimit:    5000,
	}
}

func normalize(s string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), " ", "_"))
}
