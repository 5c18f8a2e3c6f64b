package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/counterline/counterline/internal/model"
)

// Remote actions for tenant resolution.
const (
	ActionTenantConfig    = "tenantConfig"
	ActionTenantDirectory = "tenantDirectory"
	ActionTenantSave      = "tenantSave"
)

// tenantRow is the remote wire shape of a tenant config. Timestamps may
// arrive as numbers or strings; FlexInt64 absorbs both.
type tenantRow struct {
	TenantID     string          `json:"tenantId"`
	AccountEmail string          `json:"accountEmail"`
	SettingsRef  string          `json:"settingsRef"`
	MenuRef      string          `json:"menuRef"`
	DriveRef     string          `json:"driveRef"`
	Metadata     json.RawMessage `json:"metadata"`
	CreatedAt    FlexInt64       `json:"createdAt"`
	UpdatedAt    FlexInt64       `json:"updatedAt"`
}

func (r tenantRow) toModel() model.TenantConfig {
	return model.TenantConfig{
		TenantID:     strings.TrimSpace(r.TenantID),
		AccountEmail: strings.TrimSpace(r.AccountEmail),
		SettingsRef:  strings.TrimSpace(r.SettingsRef),
		MenuRef:      strings.TrimSpace(r.MenuRef),
		DriveRef:     strings.TrimSpace(r.DriveRef),
		Metadata:     r.Metadata,
		CreatedAt:    int64(r.CreatedAt),
		UpdatedAt:    int64(r.UpdatedAt),
	}
}

// FetchTenantConfig looks a tenant up by id or account email. Returns
// nil when the remote does not know the tenant.
func (c *Client) FetchTenantConfig(ctx context.Context, tenantID, email string) (*model.TenantConfig, error) {
	params := url.Values{}
	if tenantID != "" {
		params.Set("tenantId", tenantID)
	}
	if email != "" {
		params.Set("email", email)
	}

	rows, err := c.Fetch(ctx, ActionTenantConfig, params)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	var row tenantRow
	if err := json.Unmarshal(rows[0], &row); err != nil {
		return nil, fmt.Errorf("decoding tenant config: %w", err)
	}
	cfg := row.toModel()
	if cfg.IsEmpty() {
		return nil, nil
	}
	return &cfg, nil
}

// FetchTenantDirectory returns the full listing of known tenants. Used
// only as a recovery source when direct lookups miss.
func (c *Client) FetchTenantDirectory(ctx context.Context) ([]model.TenantConfig, error) {
	rows, err := c.Fetch(ctx, ActionTenantDirectory, nil)
	if err != nil {
		return nil, err
	}

	configs := make([]model.TenantConfig, 0, len(rows))
	for _, raw := range rows {
		var row tenantRow
		if err := json.Unmarshal(raw, &row); err != nil {
			// One malformed directory row must not sink the listing.
			c.Logger.Warn("skipping malformed directory row")
			continue
		}
		cfg := row.toModel()
		if cfg.IsEmpty() {
			continue
		}
		configs = append(configs, cfg)
	}
	return configs, nil
}

// PushTenantConfig writes a merged config back to the remote system.
func (c *Client) PushTenantConfig(ctx context.Context, cfg model.TenantConfig) error {
	_, err := c.Mutate(ctx, ActionTenantSave, TenantSavePayload(cfg))
	return err
}

// TenantSavePayload is the wire payload for a tenant config save. It is
// shared with the outbox path so queued saves serialize identically.
func TenantSavePayload(cfg model.TenantConfig) map[string]any {
	return map[string]any{
		"tenantId":     cfg.TenantID,
		"accountEmail": cfg.AccountEmail,
		"settingsRef":  cfg.SettingsRef,
		"menuRef":      cfg.MenuRef,
		"driveRef":     cfg.DriveRef,
		"metadata":     cfg.Metadata,
		"updatedAt":    cfg.UpdatedAt,
	}
}

// FlexInt64 decodes a JSON number, numeric string, or null into int64.
// Remote exports are inconsistent about numeric typing.
type FlexInt64 int64

func (f *FlexInt64) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" || s == `""` {
		*f = 0
		return nil
	}
	s = strings.Trim(s, `"`)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		*f = 0
		return nil
	}
	*f = FlexInt64(int64(v))
	return nil
}
