// Package main provides the main entry point for the relief reporting admin CLI tool.
package main

import (
	"context"
	"fmt"
	"os"

	"reliefapp/cmd/adm/commands"
	"reliefapp/internal/config"
	"reliefapp/internal/database"
	"reliefapp/internal/observability"
	"reliefapp/internal/services"

	"github.com/spf13/cobra"
)

// Global variables for shared resources
var (
	cfg         *config.Config
	logger      *observability.Logger
	userService *services.UserService
)

func main() {
	ctx := context.Background()

	// Set default config file if not already set
	if os.Getenv("RELIEF_CONFIG_FILE") == "" {
		defaultPaths := []string{
			"../config.yaml",
			"../../config.yaml",
			"config.yaml",
		}

		for _, path := range defaultPaths {
			if _, err := os.Stat(path); err == nil {
				if err := os.Setenv("RELIEF_CONFIG_FILE", path); err != nil {
					fmt.Fprintf(os.Stderr, "Failed to set RELIEF_CONFIG_FILE environment variable: %v\n", err)
					os.Exit(1)
				}
				break
			}
		}
	}

	// Load configuration
	var err error
	cfg, err = config.NewConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Override log level for admin tool
	cfg.Server.LogLevel = "error"

	// Disable all OpenTelemetry features for admin CLI to avoid connection errors
	cfg.OpenTelemetry.EnableTracing = false
	cfg.OpenTelemetry.EnableMetrics = false
	cfg.OpenTelemetry.EnableLogging = false

	tp, mp, loggerInstance, err := observability.SetupObservability(&cfg.OpenTelemetry, "relief-admin")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize observability: %v\n", err)
		os.Exit(1)
	}

	logger = loggerInstance

	defer func() {
		if s, ok := tp.(interface{ Shutdown(context.Context) error }); ok {
			if err := s.Shutdown(context.TODO()); err != nil {
				logger.Warn(ctx, "Error shutting down tracer provider", map[string]interface{}{"error": err.Error(), "provider": "tracer"})
			}
		}
		if mp != nil {
			if err := mp.Shutdown(context.TODO()); err != nil {
				logger.Warn(ctx, "Error shutting down meter provider", map[string]interface{}{"error": err.Error(), "provider": "meter"})
			}
		}
	}()

	// Initialize database connection (no migrations for admin tool)
	dbManager := database.NewManager(logger)
	db, err := dbManager.InitDBWithoutMigrations(cfg.Database)
	if err != nil {
		logger.Error(ctx, "Failed to connect to database", err, map[string]interface{}{"db_url": cfg.Database.URL})
		os.Exit(1)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Warn(ctx, "Warning: failed to close database connection", map[string]interface{}{"error": err.Error(), "db_url": cfg.Database.URL})
		}
	}()

	userService = services.NewUserServiceWithLogger(db, cfg, logger)

	rootCmd := &cobra.Command{
		Use:   "adm",
		Short: "Relief Reporting Administration Tool",
		Long: `Relief Reporting Administration Tool

A CLI tool for administering the relief reporting application.
Provides commands for organization and user management and database operations.`,

		Run: func(cmd *cobra.Command, _ []string) {
			if err := cmd.Help(); err != nil {
				fmt.Printf("Error showing help: %v\n", err)
			}
		},
	}

	rootCmd.AddCommand(commands.OrgCommands(userService, logger))
	rootCmd.AddCommand(commands.UserCommands(userService, logger, cfg.Database.URL))
	rootCmd.AddCommand(commands.DatabaseCommands(logger, cfg, db))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
