// Package tenant resolves which isolated dataset a device operates
// against and enforces strict isolation between tenants.
package tenant

import (
	"errors"

	"github.com/counterline/counterline/internal/model"
)

// ErrUnresolved means no tenant could be determined from local cache,
// remote lookup, or the directory. Callers must block tenant-scoped
// operations and retry on a short timer.
var ErrUnresolved = errors.New("tenant unresolved")

// Context is the resolved active tenant, threaded explicitly into every
// tenant-scoped call instead of living in ambient global state.
type Context struct {
	ID     string
	Config model.TenantConfig
}

// Bootstrapped reports whether the tenant finished provisioning. The
// catalog sync engine refuses to pull data for unbootstrapped tenants.
func (c Context) Bootstrapped() bool {
	return c.Config.ParsedMetadata().BootstrapComplete
}
