// Package cli provides common initialization shared by cmd/htracker and
// cmd/htracker-worker.
package cli

import (
	"os"

	"github.com/joho/godotenv"

	"htracker/internal/config"
	applog "htracker/internal/log"
	"htracker/internal/storage"
)

// SetupLogger initializes structured logging and installs it as default.
func SetupLogger(component string) *applog.Logger {
	cfg := applog.DefaultConfig()
	cfg.Component = component
	logger := applog.New(cfg)
	applog.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Exits the process on validation failure.
func LoadAndValidateConfig(logger *applog.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// InitStore opens the SQLite store at the given path.
// Exits the process on failure.
func InitStore(logger *applog.Logger, dbPath string) *storage.Store {
	store, err := storage.New(dbPath)
	if err != nil {
		logger.Error("Failed to initialize storage", applog.FieldError, err, "path", dbPath)
		os.Exit(1)
	}
	return store
}
