package cmd

import (
	"fmt"
	"os"

	"directory-sync/core/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// configPath is the directory holding .env and config.yaml.
var configPath string

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "directory-sync",
	Short: "User directory synchronization",
	Long: `Directory Sync reconciles user records from the HR database into a
target directory. Passes are dry runs unless explicitly applied.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	if err := RootCmd.Execute(); err != nil {
		// Use the application's standard logger for error reporting
		// We default to console format to match user expectations (CLI tool)
		cfg := &logger.Config{
			Level:  "debug",
			Format: "console",
		}

		l, logErr := logger.New(cfg)
		if logErr == nil {
			l.Error("command failed", zap.Error(err))
			_ = l.Sync()
		} else {
			// Absolute fallback if logger creation fails (rare)
			fmt.Println(err)
		}
		os.Exit(1)
	}
}

func init() {
	RootCmd.PersistentFlags().StringVar(&configPath, "config", ".", "Directory containing .env and config.yaml")
}
