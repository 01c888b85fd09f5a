package engine

import "errors"

// The engine's caller-facing error vocabulary. The HTTP layer maps these to
// status codes; within this module they are checked with errors.Is.
var (
	// ErrInvalidTenant means the tenant id has no registry record.
	// A caller error, not retryable.
	ErrInvalidTenant = errors.New("invalid tenant ID")

	// ErrInvalidRequest means the request itself is malformed: an empty
	// or oversized batch, a missing or over-long key, a negative TTL.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrQuotaExceeded means the write would push the tenant past its
	// storage limit. Retrying only helps after the tenant frees space.
	ErrQuotaExceeded = errors.New("storage limit exceeded for tenant")

	// ErrKeyConflict means a create found the (tenant, key) already
	// occupied by some record, live or expired.
	ErrKeyConflict = errors.New("key already exists")

	// ErrNotFound means a delete targeted a (tenant, key) with no record.
	ErrNotFound = errors.New("key not found for tenant")

	// ErrConcurrencyConflict means the operation lost an optimistic
	// version race. Transient; the caller should retry the whole logical
	// operation, not just the final write.
	ErrConcurrencyConflict = errors.New("conflicting concurrent update, please retry")

	// ErrStoreUnavailable means the record store failed with an I/O
	// error. Transient; retry with backoff at the caller's discretion.
	ErrStoreUnavailable = errors.New("record store unavailable")
)
