package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/counterline/counterline/internal/catalog"
	"github.com/counterline/counterline/internal/imaging"
	"github.com/counterline/counterline/internal/outbox"
	"github.com/counterline/counterline/internal/store"
)

// NewServeCommand creates the serve command: resolve the tenant, then
// run the catalog sync loop and the outbox drainer until interrupted.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the till service",
		Long: `Resolve the active tenant, then keep the local catalog in sync and
drain queued mutations on their configured intervals until stopped.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, rootOpts)
		},
	}
	return cmd
}

func runServe(cmd *cobra.Command, rootOpts *RootOptions) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case sig := <-sigChan:
			a.Logger.Info("shutting down", zap.String("signal", sig.String()))
			cancel()
		case <-ctx.Done():
		}
	}()

	tctx, err := a.Resolve(ctx, rootOpts)
	if err != nil {
		return err
	}
	a.Logger.Info("tenant resolved", zap.String("tenant", tctx.ID))

	engine := catalog.NewEngine(a.DB, a.Fetch(), a.Logger)
	engine.CacheTTL = a.Config.Sync.CacheTTL

	drainer := outbox.NewDrainer(a.DB, a.Deliver(), a.Logger)
	drainer.MaxAttempts = int64(a.Config.Sync.MaxAttempts)

	images := imaging.NewCache(a.DB, a.Logger)

	syncOnce := func(force bool) {
		result, err := engine.Sync(ctx, tctx, catalog.Options{Force: force})
		if err != nil {
			a.Logger.Warn("catalog sync incomplete", zap.Error(err))
		}
		a.Logger.Info("catalog sync",
			zap.Int("menu", result.MenuCount),
			zap.Int("categories", result.CategoryCount),
			zap.Int("units", result.UnitsApplied),
			zap.Int("inventory", result.InventoryApplied))
		warmImages(ctx, a, images)
		// A fresh catalog often means the backend is reachable again.
		drainer.Kick()
	}

	go drainer.Run(ctx, a.Config.Sync.DrainInterval)

	syncOnce(true)
	ticker := time.NewTicker(a.Config.Sync.CatalogInterval)
	defer ticker.Stop()

	fmt.Fprintln(cmd.OutOrStdout(), "Till service running. Press Ctrl-C to stop.")
	for {
		select {
		case <-ctx.Done():
			a.Logger.Info("till service stopped")
			return nil
		case <-ticker.C:
			syncOnce(false)
		}
	}
}

// warmImages caches thumbnails for every menu item with an image ref.
func warmImages(ctx context.Context, a *app, images *imaging.Cache) {
	items, err := store.ListMenuItems(ctx, a.DB)
	if err != nil {
		a.Logger.Warn("listing menu for image warmup", zap.Error(err))
		return
	}
	var refs []string
	for _, item := range items {
		if item.ImageRef != "" {
			refs = append(refs, item.ImageRef)
		}
	}
	if len(refs) == 0 {
		return
	}
	cached := images.Warm(ctx, refs)
	a.Logger.Debug("image cache warmed", zap.Int("cached", cached), zap.Int("refs", len(refs)))
}
