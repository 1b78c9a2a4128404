package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"mdqsync/internal/syncrun"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run one synchronization pass",
		Long: "Diff incoming metadata against the seen snapshot, queue changes, and fetch\n" +
			"as many signed documents as this hour's budget allows.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			runCtx, stop := signalContext(cmd.Context())
			defer stop()

			summary, err := syncrun.Run(runCtx, cfg, logger, syncrun.Options{})
			if err != nil {
				return err
			}
			printRunSummary(cmd.OutOrStdout(), summary)
			return nil
		},
	}
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func printRunSummary(out io.Writer, summary syncrun.Summary) {
	mode := "incremental"
	if summary.FullSync {
		mode = "bootstrap"
	}
	report := summary.Report
	fmt.Fprintf(out, "Run %s complete (%s)\n", shortID(summary.RunID), mode)
	if report.Changed() {
		fmt.Fprintf(out, "  Queued:   %d (bootstrap %d, new %d, modified %d)\n",
			report.Queued(), len(report.Bootstrap), len(report.New), len(report.Modified))
		fmt.Fprintf(out, "  Removed:  %d\n", len(report.Removed))
	} else {
		fmt.Fprintln(out, "  Incoming metadata unchanged")
	}
	if len(report.Skipped) > 0 {
		fmt.Fprintf(out, "  Skipped:  %d unparseable\n", len(report.Skipped))
	}
	if summary.Plan.Idle() {
		fmt.Fprintln(out, "  No updates to fetch")
		return
	}
	fmt.Fprintf(out, "  Budget:   %d of %d pending (%d runs left today)\n",
		summary.Plan.Operations, summary.Plan.Pending, summary.Plan.RunsLeft)
	fmt.Fprintf(out, "  Fetched:  %d\n", summary.Result.Fetched)
	if summary.Result.Skipped > 0 {
		fmt.Fprintf(out, "  Vanished: %d removed upstream before fetch\n", summary.Result.Skipped)
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
