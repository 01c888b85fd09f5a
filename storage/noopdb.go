package storage

import (
	"errors"
	"time"
)

// NoOpDB is used when we need to avoid touching the storage layer while still
// preserving our interactions with an abstract database. The strategy is to
// return whatever value will prevent the calling context from further
// interacting with the storage layer.
//
// For record operations, we always return an error, so the caller knows that
// no actual data has been read or written.
//
// For database-wide operations, such as closing the database, we always
// return a nil error. This is because, since there is nothing to close, the
// operation is always successful.
type NoOpDB struct{}

// Compile-time check to ensure NoOpDB implements RecordStore.
var _ RecordStore = (*NoOpDB)(nil)

// Get always returns an error so callers don't assume a record has been read.
func (n *NoOpDB) Get(tenantID, key string) (Entry, error) {
	return Entry{}, errors.New("unable to read from the no-op database")
}

// Put always returns an error so callers don't assume a new record has been
// written.
func (n *NoOpDB) Put(e Entry, expectedVersion *uint64) (Entry, error) {
	return Entry{}, errors.New("unable to write to the no-op database")
}

// PutAll always returns an error so callers don't assume a batch has been
// written.
func (n *NoOpDB) PutAll(entries []Entry) error {
	return errors.New("unable to write to the no-op database")
}

// DeleteIf always returns an error so callers don't assume a record has been
// removed.
func (n *NoOpDB) DeleteIf(tenantID, key string, expectedVersion uint64) error {
	return errors.New("unable to delete from the no-op database")
}

// ScanTenant always returns an error so callers don't assume a tenant has no
// records.
func (n *NoOpDB) ScanTenant(tenantID string) ([]Entry, error) {
	return nil, errors.New("unable to scan the no-op database")
}

// MarkExpired always returns an error in order to exercise the sweeper's
// wait-for-the-next-tick behavior rather than hiding the failure.
func (n *NoOpDB) MarkExpired(now time.Time) (int, error) {
	return 0, errors.New("unable to sweep the no-op database")
}

// Close is a no-op.
func (n *NoOpDB) Close() error {
	return nil
}
