package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_ValidJSON(t *testing.T) {
	// Create temp config file
	content := `{
		"database_url": "postgres://localhost/catalog",
		"isolation_level": "repeatable_read",
		"log_format": "json",
		"report_days": 14,
		"verbose": true
	}`

	tmpFile := filepath.Join(t.TempDir(), "config.json")
	err := os.WriteFile(tmpFile, []byte(content), 0644)
	require.NoError(t, err)

	cfg, err := LoadConfig(tmpFile)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "postgres://localhost/catalog", cfg.DatabaseURL)
	assert.Equal(t, "repeatable_read", cfg.IsolationLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 14, cfg.ReportDays)
	assert.True(t, cfg.Verbose)
}

func TestLoadConfig_InvalidJSON(t *testing.T) {
	content := `{ invalid json }`

	tmpFile := filepath.Join(t.TempDir(), "config.json")
	err := os.WriteFile(tmpFile, []byte(content), 0644)
	require.NoError(t, err)

	cfg, err := LoadConfig(tmpFile)
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to parse config JSON")
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	cfg, err := LoadConfig("/nonexistent/path/config.json")
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoadConfig_EmptyPath(t *testing.T) {
	cfg, err := LoadConfig("")
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "config path is empty")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{name: "empty config", cfg: Config{}},
		{name: "defaults", cfg: Defaults()},
		{name: "isolation with spaces", cfg: Config{IsolationLevel: "Repeatable Read"}},
		{name: "unknown isolation", cfg: Config{IsolationLevel: "snapshot"}, wantErr: "isolation_level"},
		{name: "unknown log level", cfg: Config{LogLevel: "trace"}, wantErr: "log_level"},
		{name: "unknown log format", cfg: Config{LogFormat: "xml"}, wantErr: "log_format"},
		{name: "negative report days", cfg: Config{ReportDays: -1}, wantErr: "report_days"},
		{name: "negative export limit", cfg: Config{ExportLimit: -5}, wantErr: "export_limit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		EnvDatabaseURL:    "postgres://env/db",
		EnvIsolationLevel: "serializable",
		EnvLogLevel:       "debug",
	}
	getenv := func(k string) string { return env[k] }

	cfg := Config{LogLevel: "warn"}
	cfg.ApplyEnv(getenv)

	assert.Equal(t, "postgres://env/db", cfg.DatabaseURL)
	assert.Equal(t, "serializable", cfg.IsolationLevel)
	assert.Equal(t, "warn", cfg.LogLevel, "explicit values win over the environment")
	assert.Empty(t, cfg.LogFormat)
}

func TestMergeWithDefaults(t *testing.T) {
	partial := Config{
		DatabaseURL: "postgres://custom/db",
		ReportDays:  7,
	}

	merged := partial.MergeWithDefaults(Defaults())

	// Custom values should be preserved
	assert.Equal(t, "postgres://custom/db", merged.DatabaseURL)
	assert.Equal(t, 7, merged.ReportDays)

	// Default values should fill in empty fields
	assert.Equal(t, "read_committed", merged.IsolationLevel)
	assert.Equal(t, "info", merged.LogLevel)
	assert.Equal(t, "text", merged.LogFormat)
	assert.Equal(t, 5000, merged.ExportLimit)
}

func TestMergeWithDefaults_EmptyDefaults(t *testing.T) {
	cfg := Config{LogFormat: "json"}

	merged := cfg.MergeWithDefaults(Config{})

	assert.Equal(t, "json", merged.LogFormat)
	assert.Empty(t, merged.DatabaseURL)
}
