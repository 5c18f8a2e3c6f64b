package tenant

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/counterline/counterline/internal/db"
	"github.com/counterline/counterline/internal/model"
	"github.com/counterline/counterline/internal/remote"
	"github.com/counterline/counterline/internal/store"
)

// fakeSource scripts the remote side of resolution.
type fakeSource struct {
	config    *model.TenantConfig
	directory []model.TenantConfig
	offline   bool
	pushed    []model.TenantConfig
	pushFail  bool
}

func (f *fakeSource) FetchTenantConfig(ctx context.Context, tenantID, email string) (*model.TenantConfig, error) {
	if f.offline {
		return nil, remote.ErrRemote
	}
	if f.config == nil {
		return nil, nil
	}
	if tenantID != "" && f.config.TenantID != tenantID {
		return nil, nil
	}
	if tenantID == "" && email != "" && NormalizeEmail(f.config.AccountEmail) != email {
		return nil, nil
	}
	cfg := *f.config
	return &cfg, nil
}

func (f *fakeSource) FetchTenantDirectory(ctx context.Context) ([]model.TenantConfig, error) {
	if f.offline {
		return nil, remote.ErrRemote
	}
	return f.directory, nil
}

func (f *fakeSource) PushTenantConfig(ctx context.Context, cfg model.TenantConfig) error {
	if f.offline || f.pushFail {
		return remote.ErrRemote
	}
	f.pushed = append(f.pushed, cfg)
	return nil
}

func newTestResolver(t *testing.T, src ConfigSource) *Resolver {
	t.Helper()
	return NewResolver(db.NewTestDB(t), db.NewTestDeviceDB(t), src, nil)
}

func TestResolveFromRemote(t *testing.T) {
	src := &fakeSource{config: &model.TenantConfig{
		TenantID:     "ten-a",
		AccountEmail: "owner@example.com",
		SettingsRef:  "sheet-1",
		Metadata:     []byte(`{"bootstrap_complete":true}`),
	}}
	r := newTestResolver(t, src)
	ctx := context.Background()

	tc, err := r.Resolve(ctx, "owner@example.com", "")
	require.NoError(t, err)
	assert.Equal(t, "ten-a", tc.ID)
	assert.True(t, tc.Bootstrapped())

	// The device pointer and local cache were both written.
	active, _ := db.GetDeviceState(ctx, r.Device, db.ActiveTenantKey)
	assert.Equal(t, "ten-a", active)
	cached, _ := store.GetTenantConfig(ctx, r.DB, "ten-a")
	require.NotNil(t, cached)
	assert.Equal(t, "sheet-1", cached.SettingsRef)
}

func TestResolveOfflineDegradesToCache(t *testing.T) {
	src := &fakeSource{offline: true}
	r := newTestResolver(t, src)
	ctx := context.Background()

	require.NoError(t, store.UpsertTenantConfig(ctx, r.DB, model.TenantConfig{
		TenantID: "ten-a", AccountEmail: "owner@example.com", SettingsRef: "sheet-1", UpdatedAt: 100,
	}))
	require.NoError(t, db.SetDeviceState(ctx, r.Device, db.ActiveTenantKey, "ten-a"))

	tc, err := r.Resolve(ctx, "", "")
	require.NoError(t, err)
	assert.Equal(t, "ten-a", tc.ID)
	assert.Equal(t, "sheet-1", tc.Config.SettingsRef)
}

func TestResolveOfflineNoCacheFails(t *testing.T) {
	r := newTestResolver(t, &fakeSource{offline: true})

	_, err := r.Resolve(context.Background(), "owner@example.com", "")
	assert.ErrorIs(t, err, ErrUnresolved)
}

func TestResolveDirectoryRecovery(t *testing.T) {
	src := &fakeSource{directory: []model.TenantConfig{
		{TenantID: "ten-x", AccountEmail: "other@example.com"},
		{TenantID: "ten-a", AccountEmail: "Owner@Example.com", SettingsRef: "dir-sheet"},
	}}
	r := newTestResolver(t, src)

	tc, err := r.Resolve(context.Background(), "owner@example.com", "")
	require.NoError(t, err)
	assert.Equal(t, "ten-a", tc.ID)
	assert.Equal(t, "dir-sheet", tc.Config.SettingsRef)

	// Recovered configs are pushed back to the remote.
	require.Len(t, src.pushed, 1)
	assert.Equal(t, "ten-a", src.pushed[0].TenantID)
}

func TestResolveSwitchPurgesTenantData(t *testing.T) {
	src := &fakeSource{config: &model.TenantConfig{TenantID: "ten-b", AccountEmail: "b@example.com"}}
	r := newTestResolver(t, src)
	ctx := context.Background()

	// Device was on tenant A with menu data.
	require.NoError(t, db.SetDeviceState(ctx, r.Device, db.ActiveTenantKey, "ten-a"))
	store.UpsertTenantConfig(ctx, r.DB, model.TenantConfig{TenantID: "ten-a"})
	store.ReplaceMenuItems(ctx, r.DB, []model.MenuItem{
		{ID: "m1", Name: "Coffee", UpdatedAt: 100},
		{ID: "m2", Name: "Tea", UpdatedAt: 100},
	}, false)

	tc, err := r.Resolve(ctx, "", "ten-b")
	require.NoError(t, err)
	assert.Equal(t, "ten-b", tc.ID)

	// Zero tenant-A rows visible under tenant B.
	items, _ := store.ListMenuItems(ctx, r.DB)
	assert.Empty(t, items)
	active, _ := db.GetDeviceState(ctx, r.Device, db.ActiveTenantKey)
	assert.Equal(t, "ten-b", active)
}

func TestResolveSwitchReportsDiscardedQueue(t *testing.T) {
	src := &fakeSource{config: &model.TenantConfig{TenantID: "ten-b", AccountEmail: "b@example.com"}}
	core, logs := observer.New(zap.ErrorLevel)
	r := NewResolver(db.NewTestDB(t), db.NewTestDeviceDB(t), src, zap.New(core))
	ctx := context.Background()

	// Tenant A left undelivered mutations in the queue.
	require.NoError(t, db.SetDeviceState(ctx, r.Device, db.ActiveTenantKey, "ten-a"))
	store.UpsertTenantConfig(ctx, r.DB, model.TenantConfig{TenantID: "ten-a"})
	store.EnqueueOutbox(ctx, r.DB, "ticket.close", "ticket:t1", nil, 1000)
	store.EnqueueOutbox(ctx, r.DB, "staff.pin", "staff:s1", nil, 1001)

	_, err := r.Resolve(ctx, "", "ten-b")
	require.NoError(t, err)

	// The entries are gone with the purge, but their loss is logged at
	// error level with a count.
	pending, _ := store.ListOutbox(ctx, r.DB, false)
	assert.Empty(t, pending)

	entries := logs.FilterMessage("tenant switch discarding undelivered queued mutations").All()
	require.Len(t, entries, 1)
	assert.Equal(t, int64(2), entries[0].ContextMap()["entries"])
}

func TestResolveWriteBackQueuedWhenPushFails(t *testing.T) {
	src := &fakeSource{
		config:   &model.TenantConfig{TenantID: "ten-a", AccountEmail: "owner@example.com"},
		pushFail: true,
	}
	r := newTestResolver(t, src)
	ctx := context.Background()

	_, err := r.Resolve(ctx, "owner@example.com", "")
	require.NoError(t, err)

	pending, _ := store.PendingOutbox(ctx, r.DB)
	require.Len(t, pending, 1)
	assert.Equal(t, remote.ActionTenantSave, pending[0].Action)
	assert.Equal(t, "tenant:ten-a", pending[0].Resource)
}

func TestResolveBootstrapDefaultFromLocalData(t *testing.T) {
	src := &fakeSource{config: &model.TenantConfig{TenantID: "ten-a"}}
	r := newTestResolver(t, src)
	ctx := context.Background()

	// No metadata, no local menu rows: bootstrap incomplete.
	tc, err := r.Resolve(ctx, "", "ten-a")
	require.NoError(t, err)
	assert.False(t, tc.Bootstrapped())

	// With menu rows present, the default flips.
	store.ReplaceMenuItems(ctx, r.DB, []model.MenuItem{{ID: "m1", Name: "Coffee", UpdatedAt: 100}}, false)
	store.UpsertTenantConfig(ctx, r.DB, model.TenantConfig{TenantID: "ten-a"})
	tc, err = r.Resolve(ctx, "", "ten-a")
	require.NoError(t, err)
	assert.True(t, tc.Bootstrapped())
}
