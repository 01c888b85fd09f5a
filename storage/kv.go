package storage

import (
	"errors"
	"fmt"
	"time"
)

// KVConfig contains settings specific to BadgerDB connections
type KVConfig struct {
	StorageDirPath string `yaml:"storageDir" json:"storageDir"`
}

// UnmarshalYAML parses a user-provided YAML configuration, returning any
// parsing errors.
func (c *KVConfig) UnmarshalYAML(unmarshal func(interface{}) error) error {
	v := make(map[string]string)
	err := unmarshal(&v)

	if err != nil {
		return fmt.Errorf("can't parse the storage config: %v", err)
	}

	sp, ok := v["storageDir"]
	if !ok || sp == "" {
		return errors.New("storage config must include a \"storageDir\"")
	}
	c.StorageDirPath = sp

	return nil
}

// Sentinel errors returned by RecordStore implementations. Callers are
// expected to check these with errors.Is and translate them into their own
// vocabulary.
var (
	// ErrNoEntry means no record exists for the requested (tenant, key).
	ErrNoEntry = errors.New("no entry for the tenant and key")
	// ErrEntryExists means an insert found a record already occupying
	// the (tenant, key), whether or not that record is expired.
	ErrEntryExists = errors.New("an entry already exists for the tenant and key")
	// ErrVersionMismatch means a conditional mutation lost an optimistic
	// concurrency race: the record's version no longer matches the one
	// the caller read.
	ErrVersionMismatch = errors.New("the entry version does not match the expected version")
)

// Entry is one stored key/value record scoped to a tenant. The pair
// (TenantID, Key) identifies at most one entry in a store.
type Entry struct {
	TenantID string `json:"tenantId"`
	Key      string `json:"key"`
	Data     string `json:"data"`
	// ExpiresAt is nil for permanent entries.
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
	Expired   bool       `json:"expired"`
	// Version starts at 0 on insert and increases by one on every
	// successful mutation of the same logical entry.
	Version uint64 `json:"version"`
}

// Size returns the number of bytes the entry counts against its tenant's
// storage quota: the byte length of the key plus the byte length of the
// payload.
func (e Entry) Size() uint64 {
	return uint64(len(e.Key) + len(e.Data))
}

// Live reports whether the entry should be visible to readers at the given
// time: not flagged expired, and either permanent or not yet past its
// expiry.
func (e Entry) Live(now time.Time) bool {
	if e.Expired {
		return false
	}
	if e.ExpiresAt != nil && !e.ExpiresAt.After(now) {
		return false
	}
	return true
}

// RecordStore exposes a common interface for performing versioned CRUD
// operations on an underlying storage layer. Assumes some kind of durable
// store with atomic multi-record writes.
//
// Implementations need to include connection logic in code to initialize
// a store.
type RecordStore interface {
	// Get returns the record for (tenantID, key), expired or not.
	// Returns ErrNoEntry if none exists.
	Get(tenantID, key string) (Entry, error)
	// Put writes e. A nil expectedVersion means insert-only: the write
	// fails with ErrEntryExists if any record occupies (TenantID, Key).
	// A non-nil expectedVersion means a conditional update: the write
	// fails with ErrNoEntry if the record is gone, or ErrVersionMismatch
	// if its version has moved. The store assigns the stored version
	// (0 on insert, expectedVersion+1 on update) and returns the record
	// as written.
	Put(e Entry, expectedVersion *uint64) (Entry, error)
	// PutAll inserts every entry or none of them. Each insert follows
	// the insert-only rule of Put with a nil expectedVersion.
	PutAll(entries []Entry) error
	// DeleteIf removes the record for (tenantID, key) if its version
	// matches expectedVersion. Returns ErrNoEntry or ErrVersionMismatch
	// otherwise.
	DeleteIf(tenantID, key string, expectedVersion uint64) error
	// ScanTenant returns every record stored for the tenant, expired
	// included.
	ScanTenant(tenantID string) ([]Entry, error)
	// MarkExpired flips Expired to true on every record whose expiry is
	// before now and which is not already flagged, across all tenants,
	// and returns how many records it flipped. The whole pass is one
	// atomic write.
	MarkExpired(now time.Time) (int, error)
	// Close drains/tears down the connection, or something analogous
	// for an embedded database.
	Close() error
}
