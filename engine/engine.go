package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/strivelabs/tenantkv/metrics"
	"github.com/strivelabs/tenantkv/storage"
	"github.com/strivelabs/tenantkv/tenant"
)

const (
	// MaxBatchSize caps the number of items in one batch create.
	MaxBatchSize = 100
	// MaxKeyLength bounds keys, matching the store's column width.
	MaxKeyLength = 32
)

// CreateRequest is one item of a single or batch create.
type CreateRequest struct {
	Key  string
	Data string
	// TTL of zero means the entry never expires.
	TTL time.Duration
}

// Engine is the entry lifecycle manager. It is safe for concurrent use: it
// holds no mutable state, and all conflict resolution happens through the
// record store's version checks.
type Engine struct {
	store   storage.RecordStore
	tenants tenant.Registry
	metrics *metrics.Metrics

	// now is swappable so tests can drive TTL lapses without sleeping.
	now func() time.Time
}

// New returns an Engine reading and writing through store, with tenants
// resolved against registry.
func New(store storage.RecordStore, registry tenant.Registry, m *metrics.Metrics) *Engine {
	return &Engine{
		store:   store,
		tenants: registry,
		metrics: m,
		now:     time.Now,
	}
}

// translate maps store-level failures into the engine's error vocabulary.
// Version races become ErrConcurrencyConflict, occupied keys become
// ErrKeyConflict, and everything else is an I/O failure.
func translate(err error) error {
	switch {
	case errors.Is(err, storage.ErrVersionMismatch):
		return fmt.Errorf("%w: %v", ErrConcurrencyConflict, err)
	case errors.Is(err, storage.ErrEntryExists):
		return fmt.Errorf("%w: %v", ErrKeyConflict, err)
	default:
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
}

// validate applies the per-item request rules shared by Create and
// CreateBatch.
func validate(req CreateRequest) error {
	if req.Key == "" {
		return fmt.Errorf("%w: key must not be empty", ErrInvalidRequest)
	}
	if len(req.Key) > MaxKeyLength {
		return fmt.Errorf("%w: key exceeds %d bytes", ErrInvalidRequest, MaxKeyLength)
	}
	if req.TTL < 0 {
		return fmt.Errorf("%w: TTL must not be negative", ErrInvalidRequest)
	}
	return nil
}

// expiryFor converts a request TTL into an absolute expiry, or nil for a
// permanent entry.
func (e *Engine) expiryFor(ttl time.Duration, now time.Time) *time.Time {
	if ttl == 0 {
		return nil
	}
	at := now.Add(ttl)
	return &at
}

// Get returns the live entry for (tenantID, key), or nil if there is none.
//
// A read that discovers a lapsed TTL persists the expired flag as a side
// effect, using the version it just read. If that flip loses a race with a
// concurrent writer the read still returns nil: the entry is past its expiry
// whether or not this particular write landed, and the sweeper converges the
// flag eventually.
func (e *Engine) Get(tenantID, key string) (*storage.Entry, error) {
	e.metrics.GetsTotal.Inc()

	entry, err := e.store.Get(tenantID, key)
	if errors.Is(err, storage.ErrNoEntry) {
		return nil, nil
	}
	if err != nil {
		return nil, translate(err)
	}
	if entry.Expired {
		return nil, nil
	}

	now := e.now()
	if entry.ExpiresAt != nil && !entry.ExpiresAt.After(now) {
		flipped := entry
		flipped.Expired = true
		if _, err := e.store.Put(flipped, &entry.Version); err != nil {
			if errors.Is(err, storage.ErrVersionMismatch) || errors.Is(err, storage.ErrNoEntry) {
				log.Debug().
					Str("tenantId", tenantID).
					Str("key", key).
					Msg("lost the race to persist an expiry flip")
			} else {
				log.Warn().
					Str("tenantId", tenantID).
					Str("key", key).
					Err(err).
					Msg("couldn't persist an expiry flip")
			}
		}
		return nil, nil
	}

	return &entry, nil
}

// Create writes a new entry for the tenant. The key must be unoccupied:
// an expired-but-undeleted record still blocks its key.
func (e *Engine) Create(tenantID string, req CreateRequest) (storage.Entry, error) {
	e.metrics.CreatesTotal.Inc()

	if err := validate(req); err != nil {
		return storage.Entry{}, err
	}
	t, ok := e.tenants.Lookup(tenantID)
	if !ok {
		return storage.Entry{}, fmt.Errorf("%w: %q", ErrInvalidTenant, tenantID)
	}

	entry := storage.Entry{
		TenantID: tenantID,
		Key:      req.Key,
		Data:     req.Data,
	}
	ok, err := e.admit(t, entry.Size())
	if err != nil {
		return storage.Entry{}, err
	}
	if !ok {
		e.metrics.QuotaRejectionsTotal.Inc()
		return storage.Entry{}, fmt.Errorf("%w: %q", ErrQuotaExceeded, tenantID)
	}

	entry.ExpiresAt = e.expiryFor(req.TTL, e.now())
	stored, err := e.store.Put(entry, nil)
	if err != nil {
		err = translate(err)
		switch {
		case errors.Is(err, ErrKeyConflict):
			e.metrics.KeyConflictsTotal.Inc()
		case errors.Is(err, ErrConcurrencyConflict):
			e.metrics.VersionConflictsTotal.Inc()
		}
		return storage.Entry{}, err
	}
	return stored, nil
}

// CreateBatch writes every requested entry or none of them. The quota check
// covers the summed size of the whole batch plus the tenant's current usage,
// and each key follows the same uniqueness rule as Create: a pre-existing
// record, expired or not, or a key repeated within the batch fails the whole
// batch with ErrKeyConflict before anything is written.
func (e *Engine) CreateBatch(tenantID string, reqs []CreateRequest) error {
	e.metrics.BatchCreatesTotal.Inc()

	if len(reqs) == 0 {
		return fmt.Errorf("%w: request list cannot be empty", ErrInvalidRequest)
	}
	if len(reqs) > MaxBatchSize {
		return fmt.Errorf("%w: batch size exceeds the limit of %d items", ErrInvalidRequest, MaxBatchSize)
	}
	seen := make(map[string]struct{}, len(reqs))
	for _, req := range reqs {
		if err := validate(req); err != nil {
			return err
		}
		if _, dup := seen[req.Key]; dup {
			e.metrics.KeyConflictsTotal.Inc()
			return fmt.Errorf("%w: key %q appears twice in the batch", ErrKeyConflict, req.Key)
		}
		seen[req.Key] = struct{}{}
	}

	t, ok := e.tenants.Lookup(tenantID)
	if !ok {
		return fmt.Errorf("%w: %q", ErrInvalidTenant, tenantID)
	}

	now := e.now()
	entries := make([]storage.Entry, 0, len(reqs))
	var batchSize uint64
	for _, req := range reqs {
		entry := storage.Entry{
			TenantID:  tenantID,
			Key:       req.Key,
			Data:      req.Data,
			ExpiresAt: e.expiryFor(req.TTL, now),
		}
		batchSize += entry.Size()
		entries = append(entries, entry)
	}

	ok, err := e.admit(t, batchSize)
	if err != nil {
		return err
	}
	if !ok {
		e.metrics.QuotaRejectionsTotal.Inc()
		return fmt.Errorf("%w: %q", ErrQuotaExceeded, tenantID)
	}

	if err := e.store.PutAll(entries); err != nil {
		err = translate(err)
		switch {
		case errors.Is(err, ErrKeyConflict):
			e.metrics.KeyConflictsTotal.Inc()
		case errors.Is(err, ErrConcurrencyConflict):
			e.metrics.VersionConflictsTotal.Inc()
		}
		return err
	}
	return nil
}

// Delete removes the entry for (tenantID, key), whatever its state. The
// returned bool reports whether the entry was still live when removed, so
// callers can distinguish deleting real data from reclaiming a lapsed
// record. Deleting a key with no record at all is ErrNotFound.
func (e *Engine) Delete(tenantID, key string) (bool, error) {
	e.metrics.DeletesTotal.Inc()

	entry, err := e.store.Get(tenantID, key)
	if errors.Is(err, storage.ErrNoEntry) {
		return false, fmt.Errorf("%w: %q", ErrNotFound, key)
	}
	if err != nil {
		return false, translate(err)
	}

	wasLive := entry.Live(e.now())
	if err := e.store.DeleteIf(tenantID, key, entry.Version); err != nil {
		if errors.Is(err, storage.ErrNoEntry) {
			// The record vanished between the read and the delete;
			// treat it like any other lost race.
			e.metrics.VersionConflictsTotal.Inc()
			return false, fmt.Errorf("%w: %v", ErrConcurrencyConflict, err)
		}
		err = translate(err)
		if errors.Is(err, ErrConcurrencyConflict) {
			e.metrics.VersionConflictsTotal.Inc()
		}
		return false, err
	}
	return wasLive, nil
}
