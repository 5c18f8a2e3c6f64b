package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/counterline/counterline/internal/model"
	"github.com/counterline/counterline/internal/store"
)

// NewTicketsCommand creates the tickets command group.
func NewTicketsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tickets",
		Short: "Inspect open tickets",
	}
	cmd.AddCommand(newTicketsListCommand())
	cmd.AddCommand(newTicketsShowCommand())
	return cmd
}

func newTicketsListCommand() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tickets",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmdContext(cmd)
			status := model.TicketStatusOpen
			if all {
				status = ""
			}
			tickets, err := store.ListTickets(ctx, a.DB, status)
			if err != nil {
				return err
			}
			if len(tickets) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No tickets.")
				return nil
			}
			for _, t := range tickets {
				qty, total, err := store.TicketTotals(ctx, a.DB, t.ID)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %-8s  %-24s  %3d items  %8s  opened %s by %s\n",
					t.ID, t.Status, t.Name, qty, formatCents(total),
					time.UnixMilli(t.OpenedAt).Format("15:04:05"), t.OpenedBy)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "include closed tickets")
	return cmd
}

func newTicketsShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a ticket's lines",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmdContext(cmd)
			t, err := store.GetTicket(ctx, a.DB, args[0])
			if err != nil {
				return err
			}
			if t == nil {
				return fmt.Errorf("ticket %s not found", args[0])
			}

			items, err := store.GetTicketItems(ctx, a.DB, t.ID)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", t.Name, t.Status)
			var total int64
			for _, item := range items {
				fmt.Fprintf(cmd.OutOrStdout(), "  %3d x %-24s %8s  %8s\n",
					item.Qty, item.Name, formatCents(item.Price), formatCents(item.LineTotal))
				total += item.LineTotal
			}
			fmt.Fprintf(cmd.OutOrStdout(), "  %41s  %8s\n", "total", formatCents(total))
			return nil
		},
	}
}

// formatCents renders a cent amount as dollars.
func formatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s$%d.%02d", sign, cents/100, cents%100)
}
