package tenant

// tenant defines the read-only registry mapping a tenant id to its storage
// quota. Tenants are created and administered outside this process; the
// engine only ever looks them up.
