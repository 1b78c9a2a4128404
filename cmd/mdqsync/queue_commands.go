package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"mdqsync/internal/queue"
	"mdqsync/internal/syncrun"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the incremental and bootstrap queues",
	}

	queueCmd.AddCommand(newQueueStatusCommand(ctx))
	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueClearCommand(ctx))

	return queueCmd
}

func newQueueStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show message counts per queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withQueues(func(queues *queue.Pair) error {
				rows := make([][]string, 0, 2)
				for _, store := range queues.Stores() {
					stats, err := store.Stats(cmd.Context())
					if err != nil {
						return err
					}
					rows = append(rows, []string{
						store.Name(),
						strconv.Itoa(stats.Pending),
						strconv.Itoa(stats.CheckedOut),
						strconv.Itoa(stats.Total()),
					})
				}
				fmt.Fprint(cmd.OutOrStdout(), renderTable(
					[]string{"Queue", "Pending", "Checked out", "Total"},
					rows,
					[]columnAlignment{alignLeft, alignRight, alignRight, alignRight},
				))
				return nil
			})
		},
	}
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var queueName string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List queued messages in delivery order",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withQueues(func(queues *queue.Pair) error {
				stores, err := selectedQueues(queues, queueName)
				if err != nil {
					return err
				}
				var rows [][]string
				for _, store := range stores {
					messages, err := store.List(cmd.Context(), limit)
					if err != nil {
						return err
					}
					for _, msg := range messages {
						rows = append(rows, messageRow(store.Name(), msg))
					}
				}
				if len(rows) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Queues are empty")
					return nil
				}
				fmt.Fprint(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Queue", "File", "Entity ID", "Status", "Enqueued"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&queueName, "queue", "q", "", "Only list this queue (incremental or bootstrap)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Maximum messages per queue (0 for all)")
	return cmd
}

func newQueueClearCommand(ctx *commandContext) *cobra.Command {
	var queueName string

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove all messages from one or both queues",
		Long: "Remove queued messages. Cleared changes are not fetched until the file\n" +
			"changes again or the next bootstrap.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			lock, err := syncrun.AcquireLock(cfg)
			if err != nil {
				return err
			}
			defer lock.Unlock()

			return ctx.withQueues(func(queues *queue.Pair) error {
				stores, err := selectedQueues(queues, queueName)
				if err != nil {
					return err
				}
				for _, store := range stores {
					removed, err := store.Clear(cmd.Context())
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d messages from %s queue\n", removed, store.Name())
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&queueName, "queue", "q", "", "Only clear this queue (incremental or bootstrap)")
	return cmd
}

func messageRow(queueName string, msg *queue.Message) []string {
	return []string{
		strconv.FormatInt(msg.ID, 10),
		queueName,
		msg.File,
		msg.EntityID,
		string(msg.Status),
		msg.EnqueuedAt.Local().Format(time.DateTime),
	}
}
