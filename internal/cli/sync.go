package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/counterline/counterline/internal/catalog"
)

// NewSyncCommand creates the one-shot catalog sync command.
func NewSyncCommand(rootOpts *RootOptions) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Sync the catalog once and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			tctx, err := a.Resolve(ctx, rootOpts)
			if err != nil {
				return err
			}

			engine := catalog.NewEngine(a.DB, a.Fetch(), a.Logger)
			engine.CacheTTL = a.Config.Sync.CacheTTL

			result, err := engine.Sync(ctx, tctx, catalog.Options{Force: force})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Synced %d menu items, %d categories (%d units, %d inventory rows applied)\n",
				result.MenuCount, result.CategoryCount, result.UnitsApplied, result.InventoryApplied)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "bypass the response cache")
	return cmd
}
