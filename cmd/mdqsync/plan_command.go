package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"mdqsync/internal/syncrun"
)

func newPlanCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "plan",
		Short: "Show the fetch budget the next run would use",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			plan, err := syncrun.PlanNext(cmd.Context(), cfg, time.Now())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Pending messages:    %d\n", plan.Pending)
			fmt.Fprintf(out, "Runs left today:     %d\n", plan.RunsLeft)
			if plan.Idle() {
				fmt.Fprintln(out, "Operations next run: 0 (queues are empty)")
				return nil
			}
			fmt.Fprintf(out, "Operations next run: %d\n", plan.Operations)
			return nil
		},
	}
}
