package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/catalog-tracker/internal/config"
	"github.com/jonathan/catalog-tracker/internal/db"
	"github.com/jonathan/catalog-tracker/internal/observability"
)

var (
	configPath  string
	databaseURL string
	verbose     bool
	logFormat   string
	logLevel    string
)

// settings is the resolved configuration of the running command.
var settings config.Config

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "Path to config.json file (values can be overridden by other flags)")
	flags.StringVar(&databaseURL, "db-url", "", "PostgreSQL connection URL (optional, defaults to DATABASE_URL env var)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Print detailed output")
	flags.StringVar(&logFormat, "log-format", "", "Log format: text or json")
	flags.StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn or error")
}

func loadSettings(cmd *cobra.Command, _ []string) error {
	cfg, err := resolveConfig(configPath, cmd.Flags().Changed, os.Getenv)
	if err != nil {
		return err
	}

	logger, err := observability.NewLogger(os.Stderr, cfg.LogFormat, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to configure logging: %w", err)
	}
	slog.SetDefault(logger)

	settings = cfg
	if cfg.Verbose && configPath != "" {
		_, _ = fmt.Fprintf(os.Stdout, "Loaded config from: %s\n", configPath)
	}
	return nil
}

// resolveConfig layers the config file, explicitly set flags, the environment
// and the defaults, in that order of priority after flags.
func resolveConfig(path string, changed func(string) bool, getenv func(string) string) (config.Config, error) {
	var cfg config.Config
	if path != "" {
		loaded, err := config.LoadConfig(path)
		if err != nil {
			return config.Config{}, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = *loaded
	}

	// Only override if the flag was explicitly set
	if changed("db-url") {
		cfg.DatabaseURL = databaseURL
	}
	if changed("verbose") {
		cfg.Verbose = verbose
	}
	if changed("log-format") {
		cfg.LogFormat = logFormat
	}
	if changed("log-level") {
		cfg.LogLevel = logLevel
	}

	cfg.ApplyEnv(getenv)
	cfg = cfg.MergeWithDefaults(config.Defaults())

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// openDB connects with the resolved settings.
func openDB(ctx context.Context) (*db.DB, error) {
	if settings.DatabaseURL == "" {
		return nil, fmt.Errorf("database URL is required (use --db-url or set %s)", config.EnvDatabaseURL)
	}

	database, err := db.Connect(ctx, settings.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := database.SetIsolationLevel(settings.IsolationLevel); err != nil {
		database.Close()
		return nil, err
	}
	return database, nil
}

func newPrinter() *observability.Printer {
	p := observability.NewPrinter(os.Stdout)
	p.SetVerbose(settings.Verbose)
	return p
}
