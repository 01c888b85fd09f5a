package storage

import (
	"encoding/json"
	"fmt"
	"time"

	badger "github.com/dgraph-io/badger/v3"
)

// BadgerDB implements RecordStore and represents the application's
// connection to BadgerDB.
//
// Each Entry is stored as one Badger record at the key
// "tenantID 0x00 key", JSON-encoded. Tenant ids may not contain the zero
// byte, which keeps the composite key unambiguous and makes a tenant's
// records one contiguous prefix range. All conditional mutations run inside
// a single read-write transaction, so Badger's conflict detection backs the
// version checks: a transaction whose reads were invalidated by a concurrent
// commit fails with ErrVersionMismatch rather than writing a stale result.
type BadgerDB struct {
	connection *badger.DB
}

// Compile-time check to ensure BadgerDB implements RecordStore.
var _ RecordStore = (*BadgerDB)(nil)

// NewBadgerDB initializes the BadgerDB embedded database. It is up to the
// caller to close the database with Close().
func NewBadgerDB(conf *KVConfig) (*BadgerDB, error) {
	// Open the Badger database at dirPath.
	// See: https://dgraph.io/docs/badger/get-started/#opening-a-database
	db, err := badger.Open(badger.DefaultOptions(conf.StorageDirPath))

	if err != nil {
		return &BadgerDB{}, fmt.Errorf("can't open the db connection: %v", err)
	}

	return &BadgerDB{
		connection: db,
	}, nil
}

// recordKey builds the composite Badger key for one entry.
func recordKey(tenantID, key string) []byte {
	k := make([]byte, 0, len(tenantID)+1+len(key))
	k = append(k, tenantID...)
	k = append(k, 0)
	k = append(k, key...)
	return k
}

// tenantPrefix is the key range holding every record of one tenant.
func tenantPrefix(tenantID string) []byte {
	p := make([]byte, 0, len(tenantID)+1)
	p = append(p, tenantID...)
	p = append(p, 0)
	return p
}

// getEntry reads and decodes one entry within a transaction. Returns
// ErrNoEntry if no record occupies the key.
func getEntry(txn *badger.Txn, rk []byte) (Entry, error) {
	item, err := txn.Get(rk)
	if err == badger.ErrKeyNotFound {
		return Entry{}, ErrNoEntry
	}
	if err != nil {
		return Entry{}, fmt.Errorf("can't retrieve a value for the key provided: %v", err)
	}

	// We copy values rather than return them directly because item.Value()
	// is considered undefined behavior outside a transaction.
	// https://godoc.org/github.com/dgraph-io/badger#Item.Value
	buf, err := item.ValueCopy(nil)
	if err != nil {
		return Entry{}, fmt.Errorf("can't copy the value from the database: %v", err)
	}

	var e Entry
	if err := json.Unmarshal(buf, &e); err != nil {
		return Entry{}, fmt.Errorf("can't decode the stored entry: %v", err)
	}
	return e, nil
}

// setEntry encodes and writes one entry within a transaction.
func setEntry(txn *badger.Txn, e Entry) error {
	buf, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("can't encode the entry: %v", err)
	}
	if err := txn.Set(recordKey(e.TenantID, e.Key), buf); err != nil {
		return fmt.Errorf("could not set the record: %v", err)
	}
	return nil
}

// asStoreError keeps our sentinel errors intact and converts Badger's
// transaction conflicts into the version-mismatch sentinel, since both mean
// the caller acted on a stale read.
func asStoreError(err error) error {
	if err == badger.ErrConflict {
		return ErrVersionMismatch
	}
	return err
}

// Get returns the record for (tenantID, key), expired or not.
func (db *BadgerDB) Get(tenantID, key string) (Entry, error) {
	var e Entry
	// See: https://dgraph.io/docs/badger/get-started/#read-only-transactions
	err := db.connection.View(func(txn *badger.Txn) error {
		var err error
		e, err = getEntry(txn, recordKey(tenantID, key))
		return err
	})
	if err != nil {
		return Entry{}, err
	}
	return e, nil
}

// Put writes e, insert-only when expectedVersion is nil and as a
// version-checked update otherwise.
func (db *BadgerDB) Put(e Entry, expectedVersion *uint64) (Entry, error) {
	rk := recordKey(e.TenantID, e.Key)
	err := db.connection.Update(func(txn *badger.Txn) error {
		cur, err := getEntry(txn, rk)

		if expectedVersion == nil {
			if err == nil {
				return ErrEntryExists
			}
			if err != ErrNoEntry {
				return err
			}
			e.Version = 0
			return setEntry(txn, e)
		}

		if err == ErrNoEntry {
			return ErrNoEntry
		}
		if err != nil {
			return err
		}
		if cur.Version != *expectedVersion {
			return ErrVersionMismatch
		}
		e.Version = *expectedVersion + 1
		return setEntry(txn, e)
	})
	if err != nil {
		return Entry{}, asStoreError(err)
	}
	return e, nil
}

// PutAll inserts every entry in one transaction. If any key is already
// occupied the transaction aborts and nothing is written.
func (db *BadgerDB) PutAll(entries []Entry) error {
	err := db.connection.Update(func(txn *badger.Txn) error {
		for i := range entries {
			entries[i].Version = 0
			_, err := getEntry(txn, recordKey(entries[i].TenantID, entries[i].Key))
			if err == nil {
				return ErrEntryExists
			}
			if err != ErrNoEntry {
				return err
			}
			if err := setEntry(txn, entries[i]); err != nil {
				return err
			}
		}
		return nil
	})
	return asStoreError(err)
}

// DeleteIf removes the record for (tenantID, key) if its version matches.
func (db *BadgerDB) DeleteIf(tenantID, key string, expectedVersion uint64) error {
	rk := recordKey(tenantID, key)
	err := db.connection.Update(func(txn *badger.Txn) error {
		cur, err := getEntry(txn, rk)
		if err != nil {
			return err
		}
		if cur.Version != expectedVersion {
			return ErrVersionMismatch
		}
		if err := txn.Delete(rk); err != nil {
			return fmt.Errorf("could not delete the record: %v", err)
		}
		return nil
	})
	return asStoreError(err)
}

// ScanTenant returns every record stored for the tenant, expired included.
func (db *BadgerDB) ScanTenant(tenantID string) ([]Entry, error) {
	var entries []Entry
	err := db.connection.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = tenantPrefix(tenantID)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			buf, err := it.Item().ValueCopy(nil)
			if err != nil {
				return fmt.Errorf("can't copy the value from the database: %v", err)
			}
			var e Entry
			if err := json.Unmarshal(buf, &e); err != nil {
				return fmt.Errorf("can't decode the stored entry: %v", err)
			}
			entries = append(entries, e)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// MarkExpired flips Expired on every lapsed, not-yet-flagged record across
// all tenants in one transaction. Each flip bumps the record's version so a
// concurrent conditional update on the old version loses cleanly.
func (db *BadgerDB) MarkExpired(now time.Time) (int, error) {
	var flipped int
	err := db.connection.Update(func(txn *badger.Txn) error {
		flipped = 0
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			buf, err := it.Item().ValueCopy(nil)
			if err != nil {
				return fmt.Errorf("can't copy the value from the database: %v", err)
			}
			var e Entry
			if err := json.Unmarshal(buf, &e); err != nil {
				return fmt.Errorf("can't decode the stored entry: %v", err)
			}
			if e.Expired || e.ExpiresAt == nil || !e.ExpiresAt.Before(now) {
				continue
			}
			e.Expired = true
			e.Version++
			if err := setEntry(txn, e); err != nil {
				return err
			}
			flipped++
		}
		return nil
	})
	if err != nil {
		return 0, asStoreError(err)
	}
	return flipped, nil
}

// Close tears down the database connection. You should defer this.
func (db *BadgerDB) Close() error {
	if err := db.connection.Close(); err != nil {
		return fmt.Errorf("could not close the database: %v", err)
	}
	return nil
}
