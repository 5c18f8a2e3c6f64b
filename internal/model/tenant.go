package model

import "encoding/json"

// TenantConfig describes one tenant known to this device. The device may
// cache configs for several tenants, but only one is active at a time.
type TenantConfig struct {
	TenantID     string          `json:"tenant_id"`
	AccountEmail string          `json:"account_email"`
	SettingsRef  string          `json:"settings_ref"`
	MenuRef      string          `json:"menu_ref,omitempty"`
	DriveRef     string          `json:"drive_ref,omitempty"`
	Metadata     json.RawMessage `json:"metadata,omitempty"`
	CreatedAt    int64           `json:"created_at"`
	UpdatedAt    int64           `json:"updated_at"`
}

// TenantMetadata is the parsed form of TenantConfig.Metadata.
type TenantMetadata struct {
	BootstrapComplete bool `json:"bootstrap_complete"`
}

// ParsedMetadata decodes the metadata blob. An empty or malformed blob
// yields the zero value (bootstrap incomplete).
func (c TenantConfig) ParsedMetadata() TenantMetadata {
	var m TenantMetadata
	if len(c.Metadata) > 0 {
		json.Unmarshal(c.Metadata, &m)
	}
	return m
}

// IsEmpty reports whether the config carries no identifying information.
func (c TenantConfig) IsEmpty() bool {
	return c.TenantID == "" && c.AccountEmail == "" && c.SettingsRef == ""
}
