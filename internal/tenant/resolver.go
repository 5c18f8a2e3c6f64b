package tenant

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/counterline/counterline/internal/db"
	"github.com/counterline/counterline/internal/model"
	"github.com/counterline/counterline/internal/remote"
	"github.com/counterline/counterline/internal/store"
)

// ConfigSource is the remote capability the resolver needs: direct
// lookup, the recovery directory, and write-back.
type ConfigSource interface {
	FetchTenantConfig(ctx context.Context, tenantID, email string) (*model.TenantConfig, error)
	FetchTenantDirectory(ctx context.Context) ([]model.TenantConfig, error)
	PushTenantConfig(ctx context.Context, cfg model.TenantConfig) error
}

// Resolver produces the single authoritative tenant context for this
// device, purging local data when the active tenant changes.
type Resolver struct {
	DB     *sql.DB // tenant-scoped store
	Device *sql.DB // device-level state, survives purges
	Remote ConfigSource
	Logger *zap.Logger

	now func() time.Time
}

// NewResolver wires a resolver over the two databases and the remote.
func NewResolver(database, device *sql.DB, rc ConfigSource, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{DB: database, Device: device, Remote: rc, Logger: logger, now: time.Now}
}

// Resolve determines the active tenant from an optional account email
// and/or explicit tenant id, merges local cache, remote config, and the
// directory, persists the result, and marks it active. Switching to a
// different tenant purges all tenant-scoped local data first.
func (r *Resolver) Resolve(ctx context.Context, email, tenantID string) (Context, error) {
	email = NormalizeEmail(email)

	activeID, err := db.GetDeviceState(ctx, r.Device, db.ActiveTenantKey)
	if err != nil {
		return Context{}, err
	}
	if tenantID == "" {
		tenantID = activeID
	}

	// Local cache first.
	var local *model.TenantConfig
	if tenantID != "" {
		local, err = store.GetTenantConfig(ctx, r.DB, tenantID)
	} else if email != "" {
		local, err = store.FindTenantConfigByEmail(ctx, r.DB, email)
	}
	if err != nil {
		return Context{}, err
	}

	// Remote lookup; network failure degrades to whatever we have.
	var remoteCfg *model.TenantConfig
	remoteCfg, err = r.Remote.FetchTenantConfig(ctx, tenantID, email)
	if err != nil {
		if !errors.Is(err, remote.ErrRemote) {
			return Context{}, err
		}
		r.Logger.Warn("tenant lookup degraded to local cache", zap.Error(err))
		remoteCfg = nil
	}

	// Directory recovery only when the direct paths both missed.
	var dirCfg *model.TenantConfig
	if local == nil && remoteCfg == nil {
		dirCfg = r.lookupDirectory(ctx, tenantID, email)
	}

	merged, changed := mergeConfig(local, remoteCfg, dirCfg, email)
	if merged.TenantID == "" {
		return Context{}, fmt.Errorf("no config for tenant %q / email %q: %w", tenantID, email, ErrUnresolved)
	}

	// Strict isolation: switching tenants purges before hydration.
	if activeID != "" && activeID != merged.TenantID {
		r.Logger.Info("switching tenants, purging local data",
			zap.String("from", activeID), zap.String("to", merged.TenantID))
		// The purge takes the outgoing tenant's queued mutations with
		// it. That is unavoidable, but never invisible.
		if queued, err := store.ListOutbox(ctx, r.DB, false); err != nil {
			return Context{}, err
		} else if len(queued) > 0 {
			r.Logger.Error("tenant switch discarding undelivered queued mutations",
				zap.String("tenant", activeID), zap.Int("entries", len(queued)))
		}
		if err := store.PurgeTenantData(ctx, r.DB); err != nil {
			return Context{}, err
		}
	}
	if activeID != merged.TenantID {
		if err := db.SetDeviceState(ctx, r.Device, db.ActiveTenantKey, merged.TenantID); err != nil {
			return Context{}, err
		}
	}

	now := r.now().UnixMilli()
	if merged.CreatedAt == 0 {
		merged.CreatedAt = now
	}
	merged = r.defaultBootstrap(ctx, merged)

	if err := store.UpsertTenantConfig(ctx, r.DB, merged); err != nil {
		return Context{}, err
	}

	// Write back when the local copy was stale or incomplete; failure
	// falls back to the outbox like every other mutation.
	if changed && (remoteCfg == nil || !configsEqual(*remoteCfg, merged)) {
		if err := r.Remote.PushTenantConfig(ctx, merged); err != nil {
			if !errors.Is(err, remote.ErrRemote) {
				return Context{}, err
			}
			payload, _ := json.Marshal(remote.TenantSavePayload(merged))
			if _, qerr := store.EnqueueOutbox(ctx, r.DB, remote.ActionTenantSave,
				"tenant:"+merged.TenantID, payload, now); qerr != nil {
				return Context{}, qerr
			}
			r.Logger.Warn("tenant config write-back queued", zap.String("tenant", merged.TenantID))
		}
	}

	return Context{ID: merged.TenantID, Config: merged}, nil
}

// lookupDirectory scans the tenant directory for a row matching the id
// or normalized email. Directory failures are non-fatal: it is a
// recovery source, not a requirement.
func (r *Resolver) lookupDirectory(ctx context.Context, tenantID, email string) *model.TenantConfig {
	listing, err := r.Remote.FetchTenantDirectory(ctx)
	if err != nil {
		r.Logger.Warn("tenant directory unavailable", zap.Error(err))
		return nil
	}
	for i := range listing {
		if tenantID != "" && listing[i].TenantID == tenantID {
			return &listing[i]
		}
		if email != "" && NormalizeEmail(listing[i].AccountEmail) == email {
			return &listing[i]
		}
	}
	return nil
}

// defaultBootstrap fills in the bootstrap flag when the config carries
// no metadata: a device that already holds menu rows is bootstrapped.
func (r *Resolver) defaultBootstrap(ctx context.Context, cfg model.TenantConfig) model.TenantConfig {
	if len(cfg.Metadata) > 0 {
		return cfg
	}
	n, err := store.CountMenuItems(ctx, r.DB)
	if err != nil {
		r.Logger.Warn("bootstrap default check failed", zap.Error(err))
		return cfg
	}
	meta, _ := json.Marshal(model.TenantMetadata{BootstrapComplete: n > 0})
	cfg.Metadata = meta
	return cfg
}
