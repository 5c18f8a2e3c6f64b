package cli

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/url"

	"go.uber.org/zap"

	"github.com/counterline/counterline/internal/config"
	"github.com/counterline/counterline/internal/db"
	"github.com/counterline/counterline/internal/logging"
	"github.com/counterline/counterline/internal/outbox"
	"github.com/counterline/counterline/internal/remote"
	"github.com/counterline/counterline/internal/tenant"
)

// app holds the shared wiring every command needs: config, logger, the
// two databases, and the remote client.
type app struct {
	Config *config.Config
	Logger *zap.Logger
	DB     *sql.DB
	Device *sql.DB
	Client *remote.Client
}

// newApp loads configuration, opens both databases, runs migrations on
// the tenant store, and builds the remote client.
func newApp() (*app, error) {
	cfg := config.Load()

	logger, err := logging.New(cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}

	database, err := db.Open(cfg.DB.Path)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(database); err != nil {
		database.Close()
		return nil, err
	}

	device, err := db.OpenDevice(cfg.DB.DevicePath)
	if err != nil {
		database.Close()
		return nil, err
	}

	client := remote.NewClient(cfg.Remote.BaseURL, cfg.Remote.DeviceID, cfg.Remote.DeviceSecret, logger)
	client.MaxRetries = uint64(cfg.Remote.MaxRetries)
	client.HTTPClient.Timeout = cfg.Remote.Timeout

	return &app{
		Config: cfg,
		Logger: logger,
		DB:     database,
		Device: device,
		Client: client,
	}, nil
}

// Close releases the app's database handles and flushes the logger.
func (a *app) Close() {
	a.DB.Close()
	a.Device.Close()
	_ = a.Logger.Sync()
}

// Resolve determines the active tenant and scopes the remote client to
// it, so every subsequent request carries the tenant in its token.
func (a *app) Resolve(ctx context.Context, opts *RootOptions) (tenant.Context, error) {
	resolver := tenant.NewResolver(a.DB, a.Device, a.Client, a.Logger)
	tctx, err := resolver.Resolve(ctx, opts.Email, opts.TenantID)
	if err != nil {
		return tenant.Context{}, err
	}
	a.Client.TenantID = tctx.ID
	return tctx, nil
}

// Deliver adapts the remote client's mutation call to the outbox
// delivery signature.
func (a *app) Deliver() outbox.DeliverFunc {
	return func(ctx context.Context, action string, payload json.RawMessage) error {
		var body map[string]any
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &body); err != nil {
				return fmt.Errorf("decoding queued payload: %w", err)
			}
		}
		_, err := a.Client.Mutate(ctx, action, body)
		return err
	}
}

// Fetch adapts the remote client's read call for the catalog engine.
func (a *app) Fetch() func(ctx context.Context, action string) ([]json.RawMessage, error) {
	return func(ctx context.Context, action string) ([]json.RawMessage, error) {
		return a.Client.Fetch(ctx, action, url.Values{})
	}
}
