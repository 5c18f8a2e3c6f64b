package tenant

import (
	"bytes"
	"strings"

	"github.com/counterline/counterline/internal/model"
)

// mergeConfig combines up to three partial views of a tenant config with
// deterministic precedence: remote beats directory beats local. A field
// present in a higher-priority source overwrites a placeholder or empty
// value; a non-empty value is never replaced by an empty one. The
// fallback email fills AccountEmail only when every source left it
// blank. Reports whether the result differs from the local input.
func mergeConfig(local, remote, directory *model.TenantConfig, fallbackEmail string) (model.TenantConfig, bool) {
	var merged model.TenantConfig
	if local != nil {
		merged = *local
	}

	// Lowest priority first so higher sources overwrite.
	for _, src := range []*model.TenantConfig{directory, remote} {
		if src == nil {
			continue
		}
		mergeField(&merged.TenantID, src.TenantID)
		mergeField(&merged.AccountEmail, src.AccountEmail)
		mergeField(&merged.SettingsRef, src.SettingsRef)
		mergeField(&merged.MenuRef, src.MenuRef)
		mergeField(&merged.DriveRef, src.DriveRef)
		if len(src.Metadata) > 0 {
			merged.Metadata = src.Metadata
		}
		if src.CreatedAt > 0 && merged.CreatedAt == 0 {
			merged.CreatedAt = src.CreatedAt
		}
		if src.UpdatedAt > merged.UpdatedAt {
			merged.UpdatedAt = src.UpdatedAt
		}
	}

	if merged.AccountEmail == "" && fallbackEmail != "" {
		merged.AccountEmail = NormalizeEmail(fallbackEmail)
	}

	changed := local == nil || !configsEqual(*local, merged)
	return merged, changed
}

// mergeField overwrites dst with src when src is non-empty. Empty never
// wins.
func mergeField(dst *string, src string) {
	if src != "" {
		*dst = src
	}
}

func configsEqual(a, b model.TenantConfig) bool {
	return a.TenantID == b.TenantID &&
		a.AccountEmail == b.AccountEmail &&
		a.SettingsRef == b.SettingsRef &&
		a.MenuRef == b.MenuRef &&
		a.DriveRef == b.DriveRef &&
		bytes.Equal(a.Metadata, b.Metadata)
}

// NormalizeEmail lowercases and trims an email for matching.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
