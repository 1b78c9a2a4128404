package main

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"

	"mdqsync/internal/mdq"
	"mdqsync/internal/syncrun"
	"mdqsync/internal/watch"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Run continuously, syncing whenever incoming metadata changes",
		Long: "Run once, then again whenever incoming_metadata settles after a change\n" +
			"and at least every 60/runs_per_hour minutes. Runs never overlap.\n" +
			"A rejected metadata query response stops the command with an error.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return err
			}

			watchCtx, stop := signalContext(cmd.Context())
			defer stop()

			return watch.Loop(watchCtx, watch.Options{
				Dir:      cfg.IncomingDir(),
				Debounce: time.Duration(cfg.Watch.DebounceSeconds) * time.Second,
				Interval: watch.IntervalFor(cfg.Schedule.RunsPerHour),
				Fatal:    isFatalRunError,
				Logger:   logger,
			}, func(runCtx context.Context) error {
				_, err := syncrun.Run(runCtx, cfg, logger, syncrun.Options{})
				return err
			})
		},
	}
}

// isFatalRunError matches failures that end watch mode like they end a
// single run.
func isFatalRunError(err error) bool {
	return errors.Is(err, mdq.ErrFatalFetch)
}
