package cmd

import (
	"fmt"

	"directory-sync/core/config"
	"directory-sync/core/database"
	"directory-sync/core/logger"
	"directory-sync/feature/users/models"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// migrateCmd creates the default user tables, mostly for local development
// against sqlite.
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the default source and directory tables",
	Long: `Creates the source user table and, for a database target, the directory
table using the default column layout. Existing tables gain missing columns.
Custom column mappings are not applied.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		l, err := logger.New(&cfg.Log)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		defer l.Sync()

		srcDB, err := database.Connect(cfg.Source.Database)
		if err != nil {
			return fmt.Errorf("source: %w", err)
		}
		table := cfg.Source.Table.TableName(models.SourceTable)
		if err := srcDB.Table(table).AutoMigrate(&models.SourceUser{}); err != nil {
			return fmt.Errorf("failed to migrate %s: %w", table, err)
		}
		l.Info("Migrated source table", zap.String("table", table))

		if cfg.Target.Kind != config.TargetDatabase {
			return nil
		}
		dstDB, err := database.Connect(cfg.Target.Database)
		if err != nil {
			return fmt.Errorf("target: %w", err)
		}
		table = cfg.Target.Table.TableName(models.DirectoryTable)
		if err := dstDB.Table(table).AutoMigrate(&models.DirectoryUser{}); err != nil {
			return fmt.Errorf("failed to migrate %s: %w", table, err)
		}
		l.Info("Migrated directory table", zap.String("table", table))
		return nil
	},
}

func init() {
	RootCmd.AddCommand(migrateCmd)
}
