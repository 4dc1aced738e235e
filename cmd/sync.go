package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"directory-sync/core/reconcile"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Flags for the sync command
	applySync  bool
	dryRunSync bool
	yesConfirm bool
	jsonOutput bool
	skipVerify bool
	streamSync bool
)

// syncCmd runs a reconciliation pass from the command line.
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Reconcile source users into the target directory",
	Long: `Reconcile users from the HR database into the target directory.

Every user is looked up in the target by the configured identifier and
compared on the mapped fields. Without --apply (and with sync.dry_run left
at its default) the pass only reports what it would change.

Examples:
  # Report only (dry-run)
  sync

  # Preview, confirm interactively, then apply
  sync --apply

  # Apply without a prompt
  sync --apply --yes

  # Print the report as JSON
  sync --json

  # Stream every decision as a JSON line to stderr
  sync --stream`,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().BoolVar(&applySync, "apply", false, "Persist updates to the target directory")
	syncCmd.Flags().BoolVar(&dryRunSync, "dry-run", false, "Force dry-run (no updates even with --apply)")
	syncCmd.Flags().BoolVar(&yesConfirm, "yes", false, "Auto-confirm updates (non-interactive)")
	syncCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the final report as JSON to stdout")
	syncCmd.Flags().BoolVar(&skipVerify, "skip-verify", false, "Skip checking source and target columns")
	syncCmd.Flags().BoolVar(&streamSync, "stream", false, "Stream decisions as JSON lines to stderr while the pass runs")

	RootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	var observers []reconcile.Observer
	if streamSync {
		observers = append(observers, streamObserver(os.Stderr))
	}

	app, err := newApplication(ctx, observers...)
	if err != nil {
		return err
	}
	defer app.Close()
	l := app.logger

	if !skipVerify {
		if err := app.service.Verify(ctx); err != nil {
			return fmt.Errorf("layout check failed: %w", err)
		}
	}

	dryRun := app.service.DefaultDryRun()
	if applySync {
		dryRun = false
	}
	if dryRunSync {
		dryRun = true
	}

	// Step 1: Preview (always runs)
	l.Info("Planning synchronization...")
	preview, err := app.service.Sync(ctx, true)
	if err != nil {
		return fmt.Errorf("failed to plan synchronization: %w", err)
	}
	printSyncReport(l, preview)

	if dryRun {
		l.Info("Dry-run mode: No changes were made. Use --apply to persist updates.")
		return writeJSON(preview)
	}

	if preview.Summary.WouldUpdate == 0 {
		l.Info("No updates required.")
		return writeJSON(preview)
	}

	// Step 2: Confirm
	if !confirmUpdates(preview.Summary.WouldUpdate) {
		l.Warn("Operation cancelled by user. No changes were made.")
		return nil
	}

	// Step 3: Apply
	l.Info("Applying updates...")
	report, err := app.service.Sync(ctx, false)
	if report != nil {
		printSyncReport(l, report)
	}
	if err != nil {
		return fmt.Errorf("failed to apply synchronization: %w", err)
	}
	l.Info("Successfully updated users", zap.Int("count", report.Summary.Updated))
	return writeJSON(report)
}

// printSyncReport prints a formatted pass report using logger.
func printSyncReport(l *zap.Logger, report *reconcile.Report) {
	s := report.Summary

	l.Info("Synchronization report",
		zap.String("pass_id", report.PassID),
		zap.Bool("dry_run", report.DryRun),
		zap.Int("total", s.Total),
		zap.Int("not_found", s.NotFound),
		zap.Int("would_update", s.WouldUpdate),
		zap.Int("updated", s.Updated),
		zap.Int("up_to_date", s.UpToDate),
		zap.Int("failed", s.Failed),
	)

	// Show sample of changes (max 5 for logger)
	const maxShow = 5
	shown, hidden := 0, 0
	for _, ev := range report.Decisions {
		if ev.Outcome == reconcile.OutcomeUpToDate {
			continue
		}
		if shown == maxShow {
			hidden++
			continue
		}
		shown++
		l.Info("Sample decision",
			zap.String("identifier", ev.Identifier),
			zap.String("outcome", string(ev.Outcome)),
			zap.Strings("changed", ev.Changed),
			zap.String("reason", ev.Reason),
		)
	}
	if hidden > 0 {
		l.Info("Additional decisions not shown", zap.Int("count", hidden))
	}
}

// streamObserver writes each decision event to w as one JSON line.
func streamObserver(w io.Writer) reconcile.Observer {
	enc := json.NewEncoder(w)
	return reconcile.ObserverFunc(func(ev reconcile.Event) {
		_ = enc.Encode(ev)
	})
}

func writeJSON(report *reconcile.Report) error {
	if !jsonOutput {
		return nil
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

// confirmUpdates prompts the user for confirmation or uses --yes flag.
func confirmUpdates(count int) bool {
	if yesConfirm {
		fmt.Println("\n✓ Auto-confirmed via --yes flag")
		return true
	}

	fmt.Printf("\n⚠️  %d user(s) will be updated. Type 'yes' to confirm: ", count)
	reader := bufio.NewReader(os.Stdin)
	response, err := reader.ReadString('\n')
	if err != nil {
		return false
	}

	return strings.TrimSpace(response) == "yes"
}
