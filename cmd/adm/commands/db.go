package commands

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"

	"reliefapp/internal/config"
	"reliefapp/internal/observability"
	"reliefapp/internal/services"
	contextutils "reliefapp/internal/utils"

	"github.com/spf13/cobra"
)

// DatabaseCommands returns the database management commands
func DatabaseCommands(logger *observability.Logger, cfg *config.Config, db *sql.DB) *cobra.Command {
	dbCmd := &cobra.Command{
		Use:   "db",
		Short: "Database management commands",
		Long: `Database management commands for the relief reporting application.

Available commands:
  stats         - Show database statistics
  prune-exports - Delete export records past the retention window`,
	}

	dbCmd.AddCommand(statsCmd(logger, db))
	dbCmd.AddCommand(pruneExportsCmd(logger, cfg, db))

	return dbCmd
}

// statsCmd returns the stats command
func statsCmd(logger *observability.Logger, db *sql.DB) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show database statistics",
		Long:  `Show row counts for the main application tables.`,
		RunE:  runStats(logger, db),
	}
}

// pruneExportsCmd returns the prune-exports command
func pruneExportsCmd(logger *observability.Logger, cfg *config.Config, db *sql.DB) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "prune-exports",
		Short: "Delete export records past the retention window",
		Long: `Delete export history records older than the configured retention window.

Use --dry-run to see how many records would be deleted without deleting them.`,
		RunE: runPruneExports(logger, cfg, &dryRun, db),
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show what would be deleted without deleting it")

	return cmd
}

// runStats returns a function that shows database statistics
func runStats(logger *observability.Logger, db *sql.DB) func(cmd *cobra.Command, args []string) error {
	return func(_ *cobra.Command, _ []string) error {
		ctx := context.Background()

		logger.Info(ctx, "Diagnostic info", map[string]interface{}{"config_file": os.Getenv("RELIEF_CONFIG_FILE"), "database": getDatabaseInfo(db)})

		tables := []string{"organizations", "users", "reports", "sections", "assessments", "export_records", "audit_logs"}

		fmt.Printf("%-20s %s\n", "Table", "Rows")
		fmt.Println(strings.Repeat("-", 30))
		for _, table := range tables {
			var count int64
			// Table names come from the fixed list above, not user input
			if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&count); err != nil {
				return contextutils.WrapErrorf(err, "failed to count rows in %s", table)
			}
			fmt.Printf("%-20s %d\n", table, count)
		}

		return nil
	}
}

// runPruneExports returns a function that prunes expired export records
func runPruneExports(logger *observability.Logger, cfg *config.Config, dryRun *bool, db *sql.DB) func(cmd *cobra.Command, args []string) error {
	return func(_ *cobra.Command, _ []string) error {
		ctx := context.Background()

		logger.Info(ctx, "Diagnostic info", map[string]interface{}{"config_file": os.Getenv("RELIEF_CONFIG_FILE"), "database": getDatabaseInfo(db)})

		if *dryRun {
			var count int64
			err := db.QueryRowContext(ctx,
				"SELECT COUNT(*) FROM export_records WHERE created_at < NOW() - $1::interval",
				fmt.Sprintf("%d seconds", int64(cfg.ExportRecordRetention().Seconds()))).Scan(&count)
			if err != nil {
				return contextutils.WrapError(err, "failed to count expired export records")
			}
			fmt.Printf("Dry run: would delete %d expired export records\n", count)
			return nil
		}

		reportService := services.NewReportService(db, cfg, logger)
		auditService := services.NewAuditService(db, logger)
		exportService := services.NewExportService(db, cfg, logger, reportService, auditService)

		deleted, err := exportService.PruneExpiredRecords(ctx)
		if err != nil {
			logger.Error(ctx, "Failed to prune export records", err, nil)
			return contextutils.WrapError(err, "failed to prune export records")
		}

		fmt.Printf("Deleted %d expired export records\n", deleted)
		logger.Info(ctx, "Export record prune completed", map[string]interface{}{
			"deleted_count": deleted,
		})
		return nil
	}
}
