package tenant

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/counterline/counterline/internal/model"
)

func TestMergeConfigPrecedence(t *testing.T) {
	local := &model.TenantConfig{
		TenantID:    "ten-a",
		SettingsRef: "local-sheet",
	}
	directory := &model.TenantConfig{
		TenantID:     "ten-a",
		AccountEmail: "dir@example.com",
		SettingsRef:  "dir-sheet",
		MenuRef:      "dir-menu",
	}
	remote := &model.TenantConfig{
		TenantID:     "ten-a",
		AccountEmail: "remote@example.com",
		SettingsRef:  "remote-sheet",
	}

	merged, changed := mergeConfig(local, remote, directory, "")
	assert.True(t, changed)
	// Remote beats directory beats local.
	assert.Equal(t, "remote@example.com", merged.AccountEmail)
	assert.Equal(t, "remote-sheet", merged.SettingsRef)
	// Directory fills what remote left empty.
	assert.Equal(t, "dir-menu", merged.MenuRef)
}

func TestMergeConfigEmptyNeverOverwrites(t *testing.T) {
	local := &model.TenantConfig{
		TenantID:     "ten-a",
		AccountEmail: "owner@example.com",
		SettingsRef:  "sheet-1",
		MenuRef:      "menu-1",
	}
	remote := &model.TenantConfig{TenantID: "ten-a"}

	merged, changed := mergeConfig(local, remote, nil, "")
	assert.False(t, changed)
	assert.Equal(t, "owner@example.com", merged.AccountEmail)
	assert.Equal(t, "sheet-1", merged.SettingsRef)
	assert.Equal(t, "menu-1", merged.MenuRef)
}

func TestMergeConfigFallbackEmail(t *testing.T) {
	remote := &model.TenantConfig{TenantID: "ten-a"}

	merged, _ := mergeConfig(nil, remote, nil, "  Owner@Example.COM ")
	assert.Equal(t, "owner@example.com", merged.AccountEmail)

	// Fallback loses to any source-provided email.
	remote.AccountEmail = "real@example.com"
	merged, _ = mergeConfig(nil, remote, nil, "owner@example.com")
	assert.Equal(t, "real@example.com", merged.AccountEmail)
}

func TestMergeConfigNoSources(t *testing.T) {
	merged, changed := mergeConfig(nil, nil, nil, "")
	assert.True(t, merged.IsEmpty())
	assert.True(t, changed)
}

func TestMergeConfigMetadataFromHigherSource(t *testing.T) {
	local := &model.TenantConfig{TenantID: "ten-a"}
	remote := &model.TenantConfig{
		TenantID: "ten-a",
		Metadata: []byte(`{"bootstrap_complete":true}`),
	}

	merged, changed := mergeConfig(local, remote, nil, "")
	assert.True(t, changed)
	assert.True(t, merged.ParsedMetadata().BootstrapComplete)
}
