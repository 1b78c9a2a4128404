package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"mdqsync/internal/preflight"
	"mdqsync/internal/queue"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify directories, queue databases and the metadata query service",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			client := &http.Client{Timeout: time.Duration(cfg.MDQ.RequestTimeout) * time.Second}
			results := preflight.RunAll(cmd.Context(), cfg, client)

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			if _, err := os.Stat(cfg.QueueDir()); errors.Is(err, os.ErrNotExist) {
				fmt.Fprintln(out, renderStatusLine("Queues", statusInfo, "not created yet", colorize))
			} else {
				err := ctx.withQueues(func(queues *queue.Pair) error {
					for _, store := range queues.Stores() {
						results = append(results, preflight.CheckQueue(cmd.Context(), store))
					}
					return nil
				})
				if err != nil {
					results = append(results, preflight.Result{Name: "Queues", Detail: err.Error()})
				}
			}

			for _, result := range results {
				kind := statusOK
				if !result.Passed {
					kind = statusError
				}
				fmt.Fprintln(out, renderStatusLine(result.Name, kind, result.Detail, colorize))
			}
			return preflight.Failed(results)
		},
	}
}
