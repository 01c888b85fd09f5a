package engine

// engine implements the entry lifecycle manager: uniqueness, quota, TTL
// semantics, and concurrency-safe mutation for single and batch writes. It
// owns no state of its own; every fact it acts on comes from the tenant
// registry and the record store, and every conflict is resolved by the
// store's version checks rather than in-process locking. The engine never
// retries internally. A caller that receives ErrConcurrencyConflict must
// re-run the whole logical operation, since the quota and uniqueness facts
// it was admitted under may no longer hold.
