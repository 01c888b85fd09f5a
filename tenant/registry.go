package tenant

// MaxIDLength bounds tenant ids, matching the registry's column width.
const MaxIDLength = 50

// Tenant is an isolated namespace with its own storage quota.
type Tenant struct {
	ID string
	// StorageLimitBytes caps the summed key+payload size of everything
	// the tenant has stored.
	StorageLimitBytes uint64
}

// Registry answers quota lookups for the engine. Implementations must be
// safe for concurrent use.
type Registry interface {
	// Lookup returns the tenant's registration, or false if the id is
	// unknown.
	Lookup(tenantID string) (Tenant, bool)
}

// StaticRegistry is a Registry backed by a fixed set of tenants, typically
// the ones declared in the application config. It never changes after
// construction, so reads need no locking.
type StaticRegistry struct {
	tenants map[string]Tenant
}

var _ Registry = (*StaticRegistry)(nil)

// NewStaticRegistry builds a registry from the given tenants. A duplicate id
// keeps the last registration, matching how config overrides usually work.
func NewStaticRegistry(tenants []Tenant) *StaticRegistry {
	m := make(map[string]Tenant, len(tenants))
	for _, t := range tenants {
		m[t.ID] = t
	}
	return &StaticRegistry{tenants: m}
}

// Lookup returns the tenant's registration, or false if the id is unknown.
func (r *StaticRegistry) Lookup(tenantID string) (Tenant, bool) {
	t, ok := r.tenants[tenantID]
	return t, ok
}
