package engine

import (
	"fmt"

	"github.com/strivelabs/tenantkv/tenant"
)

// Usage returns the tenant's current stored size in bytes, the same figure
// the admit check reads. Expired-but-unswept records are included.
func (e *Engine) Usage(tenantID string) (uint64, error) {
	if _, ok := e.tenants.Lookup(tenantID); !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTenant, tenantID)
	}
	return e.currentSize(tenantID)
}

// currentSize returns the sum of key+payload bytes over every record the
// tenant has stored. Expired-but-unswept records still count; space only
// frees up once a record is actually deleted.
func (e *Engine) currentSize(tenantID string) (uint64, error) {
	entries, err := e.store.ScanTenant(tenantID)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	var total uint64
	for _, entry := range entries {
		total += entry.Size()
	}
	return total, nil
}

// admit reports whether the tenant can take on additionalBytes more storage
// without passing its limit. Concurrent writers for the same tenant can each
// pass their own admit check before either write lands, so the quota is
// best-effort under contention; the store's conflict detection narrows the
// window but the caller-retry contract is what keeps it honest.
func (e *Engine) admit(t tenant.Tenant, additionalBytes uint64) (bool, error) {
	current, err := e.currentSize(t.ID)
	if err != nil {
		return false, err
	}
	return current+additionalBytes <= t.StorageLimitBytes, nil
}
