package cli

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/counterline/counterline/internal/outbox"
	"github.com/counterline/counterline/internal/store"
)

// NewOutboxCommand creates the outbox command group: inspect the queue,
// unpark entries, and drain once by hand.
func NewOutboxCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "outbox",
		Short: "Inspect and manage the mutation queue",
	}
	cmd.AddCommand(newOutboxListCommand())
	cmd.AddCommand(newOutboxRetryCommand(rootOpts))
	cmd.AddCommand(newOutboxDrainCommand(rootOpts))
	return cmd
}

func newOutboxListCommand() *cobra.Command {
	var parked bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List queued mutations",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			entries, err := store.ListOutbox(cmdContext(cmd), a.DB, parked)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty.")
				return nil
			}
			for _, e := range entries {
				state := "pending"
				if e.Parked {
					state = "parked"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%6d  %-8s  %-20s  %-24s  attempts=%d  %s\n",
					e.ID, state, e.Action, e.Resource, e.Attempts,
					time.UnixMilli(e.Timestamp).Format(time.RFC3339))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&parked, "parked", false, "show only parked entries")
	return cmd
}

func newOutboxRetryCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "retry <id>",
		Short: "Unpark a queued mutation and drain the queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid outbox id %q", args[0])
			}

			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmdContext(cmd)
			if _, err := a.Resolve(ctx, rootOpts); err != nil {
				return err
			}
			if err := store.UnparkOutbox(ctx, a.DB, id); err != nil {
				return err
			}
			return drainNow(ctx, a, cmd)
		},
	}
}

func newOutboxDrainCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "drain",
		Short: "Attempt delivery of every pending mutation once",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmdContext(cmd)
			if _, err := a.Resolve(ctx, rootOpts); err != nil {
				return err
			}
			return drainNow(ctx, a, cmd)
		},
	}
}

func drainNow(ctx context.Context, a *app, cmd *cobra.Command) error {
	drainer := outbox.NewDrainer(a.DB, a.Deliver(), a.Logger)
	drainer.MaxAttempts = int64(a.Config.Sync.MaxAttempts)
	if err := drainer.DrainOnce(ctx); err != nil {
		return err
	}

	remaining, err := store.PendingOutbox(ctx, a.DB)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Drained; %d entries still pending.\n", len(remaining))
	return nil
}

// cmdContext returns the command's context, defaulting to Background
// when cobra was invoked without one.
func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
