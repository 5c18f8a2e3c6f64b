package cli

import (
	"fmt"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/counterline/counterline/internal/model"
	"github.com/counterline/counterline/internal/staff"
	"github.com/counterline/counterline/internal/store"
)

// NewStaffCommand creates the staff command group.
func NewStaffCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "staff",
		Short: "Manage till operator profiles",
	}
	cmd.AddCommand(newStaffListCommand())
	cmd.AddCommand(newStaffAddCommand(rootOpts))
	cmd.AddCommand(newStaffPINCommand(rootOpts))
	return cmd
}

func newStaffListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List staff profiles",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			profiles, err := store.ListStaff(cmdContext(cmd), a.DB)
			if err != nil {
				return err
			}
			for _, p := range profiles {
				pin := "no pin"
				if p.PinHash != "" {
					pin = "pin set"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %-24s  %-8s  %s\n", p.ID, p.Name, p.Role, pin)
			}
			return nil
		},
	}
}

func newStaffAddCommand(rootOpts *RootOptions) *cobra.Command {
	var role, email string

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Create a staff profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmdContext(cmd)
			tctx, err := a.Resolve(ctx, rootOpts)
			if err != nil {
				return err
			}

			svc := staff.NewService(a.DB, a.Deliver(), a.Logger)
			p, err := svc.Save(ctx, tctx, model.StaffProfile{
				Name:  args[0],
				Email: email,
				Role:  role,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s (%s)\n", p.Name, p.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&role, "role", model.StaffRoleCashier, "profile role (manager|cashier)")
	cmd.Flags().StringVar(&email, "staff-email", "", "staff member's email")
	return cmd
}

func newStaffPINCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set-pin <id>",
		Short: "Set a staff member's PIN",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmdContext(cmd)
			tctx, err := a.Resolve(ctx, rootOpts)
			if err != nil {
				return err
			}

			fmt.Fprint(cmd.OutOrStdout(), "New PIN: ")
			pin, err := term.ReadPassword(int(syscall.Stdin))
			fmt.Fprintln(cmd.OutOrStdout())
			if err != nil {
				return fmt.Errorf("reading pin: %w", err)
			}

			svc := staff.NewService(a.DB, a.Deliver(), a.Logger)
			if err := svc.SetPIN(ctx, tctx, args[0], string(pin)); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "PIN updated.")
			return nil
		},
	}
}
