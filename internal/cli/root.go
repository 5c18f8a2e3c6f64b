// Package cli wires the counterline commands: the long-running till
// service plus one-shot maintenance commands for sync and the outbox.
package cli

import (
	"github.com/spf13/cobra"
)

// RootOptions holds global flags shared by all commands.
type RootOptions struct {
	Email    string
	TenantID string
}

// NewRootCommand creates the counterline root command.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "counterline",
		Short: "Offline-first point-of-sale till",
		Long: `Counterline is an offline-first point-of-sale till. It keeps a local
SQLite copy of the tenant's catalog, queues mutations while the backend
is unreachable, and replays them in order once it returns.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.Email, "email", "", "tenant account email for resolution")
	cmd.PersistentFlags().StringVar(&opts.TenantID, "tenant", "", "explicit tenant id (overrides cached pointer)")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewSyncCommand(opts))
	cmd.AddCommand(NewOutboxCommand(opts))
	cmd.AddCommand(NewTicketsCommand(opts))
	cmd.AddCommand(NewStaffCommand(opts))

	return cmd
}
