package storage

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

// We test all BadgerDB read/write utility functions here against a real
// embedded database in a temp dir. While other projects define test-specific
// utility functions for, e.g., opening a BadgerDB connection (e.g., Jaeger
// [1]), all DB operations are wrapped in a helper for use by the
// application. We'll use these helpers, rather than ones defined just for
// tests.
//
// [1]: https://github.com/jaegertracing/jaeger/blob/740264bd4c7a7cca27f0eb47d80cd8f8fcbd5906/plugin/storage/badger/spanstore/cache_test.go#L109-L126
func newTestDB(t *testing.T) *BadgerDB {
	t.Helper()
	conf := KVConfig{
		StorageDirPath: t.TempDir(),
	}
	db, err := NewBadgerDB(&conf)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Fatal(err)
		}
	})
	return db
}

func TestSimpleBadgerDBReadWrite(t *testing.T) {
	db := newTestDB(t)

	e := Entry{
		TenantID: "acme",
		Key:      "greeting",
		Data:     "hello",
	}

	stored, err := db.Put(e, nil)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Version != 0 {
		t.Fatalf("a newly inserted entry must have version 0, got %d", stored.Version)
	}

	e2, err := db.Get(e.TenantID, e.Key)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(stored, e2) {
		t.Fatal("newly created and newly read entries do not match")
	}
}

func TestBadgerDBInsertOnly(t *testing.T) {
	db := newTestDB(t)

	e := Entry{TenantID: "acme", Key: "greeting", Data: "hello"}
	if _, err := db.Put(e, nil); err != nil {
		t.Fatal(err)
	}

	// A second insert for the same (tenant, key) must fail, even with
	// different data.
	e.Data = "goodbye"
	if _, err := db.Put(e, nil); !errors.Is(err, ErrEntryExists) {
		t.Fatalf("want ErrEntryExists, got %v", err)
	}

	// The same key under another tenant is a different record.
	other := Entry{TenantID: "globex", Key: "greeting", Data: "hallo"}
	if _, err := db.Put(other, nil); err != nil {
		t.Fatal(err)
	}
}

func TestBadgerDBVersionedUpdate(t *testing.T) {
	db := newTestDB(t)

	e := Entry{TenantID: "acme", Key: "counter", Data: "1"}
	stored, err := db.Put(e, nil)
	if err != nil {
		t.Fatal(err)
	}

	stored.Data = "2"
	updated, err := db.Put(stored, &stored.Version)
	if err != nil {
		t.Fatal(err)
	}
	if updated.Version != 1 {
		t.Fatalf("want version 1 after one update, got %d", updated.Version)
	}

	// Updating with the stale version must lose.
	stale := uint64(0)
	if _, err := db.Put(stored, &stale); !errors.Is(err, ErrVersionMismatch) {
		t.Fatalf("want ErrVersionMismatch, got %v", err)
	}

	// Updating a record that doesn't exist must report its absence.
	ghost := Entry{TenantID: "acme", Key: "ghost"}
	v := uint64(0)
	if _, err := db.Put(ghost, &v); !errors.Is(err, ErrNoEntry) {
		t.Fatalf("want ErrNoEntry, got %v", err)
	}
}

func TestBadgerDBDeleteIf(t *testing.T) {
	db := newTestDB(t)

	e := Entry{TenantID: "acme", Key: "doomed", Data: "x"}
	stored, err := db.Put(e, nil)
	if err != nil {
		t.Fatal(err)
	}

	if err := db.DeleteIf("acme", "doomed", stored.Version+1); !errors.Is(err, ErrVersionMismatch) {
		t.Fatalf("want ErrVersionMismatch for a stale delete, got %v", err)
	}
	if err := db.DeleteIf("acme", "doomed", stored.Version); err != nil {
		t.Fatal(err)
	}
	if _, err := db.Get("acme", "doomed"); !errors.Is(err, ErrNoEntry) {
		t.Fatalf("want ErrNoEntry after delete, got %v", err)
	}
	if err := db.DeleteIf("acme", "doomed", 0); !errors.Is(err, ErrNoEntry) {
		t.Fatalf("want ErrNoEntry for a missing record, got %v", err)
	}
}

func TestBadgerDBScanTenant(t *testing.T) {
	db := newTestDB(t)

	for _, e := range []Entry{
		{TenantID: "acme", Key: "a", Data: "1"},
		{TenantID: "acme", Key: "b", Data: "2"},
		{TenantID: "globex", Key: "a", Data: "3"},
	} {
		if _, err := db.Put(e, nil); err != nil {
			t.Fatal(err)
		}
	}

	entries, err := db.ScanTenant("acme")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("want 2 entries for acme, got %d", len(entries))
	}
	for _, e := range entries {
		if e.TenantID != "acme" {
			t.Fatalf("scan leaked a record for tenant %q", e.TenantID)
		}
	}

	entries, err = db.ScanTenant("initech")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Fatalf("want no entries for an unknown tenant, got %d", len(entries))
	}
}

func TestBadgerDBPutAllAtomic(t *testing.T) {
	db := newTestDB(t)

	if _, err := db.Put(Entry{TenantID: "acme", Key: "b", Data: "old"}, nil); err != nil {
		t.Fatal(err)
	}

	batch := []Entry{
		{TenantID: "acme", Key: "a", Data: "1"},
		{TenantID: "acme", Key: "b", Data: "2"}, // already occupied
		{TenantID: "acme", Key: "c", Data: "3"},
	}
	if err := db.PutAll(batch); !errors.Is(err, ErrEntryExists) {
		t.Fatalf("want ErrEntryExists, got %v", err)
	}

	// Nothing from the failed batch may have landed.
	entries, err := db.ScanTenant("acme")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Key != "b" || entries[0].Data != "old" {
		t.Fatalf("failed batch must leave the tenant untouched, got %+v", entries)
	}

	if err := db.PutAll([]Entry{
		{TenantID: "acme", Key: "a", Data: "1"},
		{TenantID: "acme", Key: "c", Data: "3"},
	}); err != nil {
		t.Fatal(err)
	}
	entries, err = db.ScanTenant("acme")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 3 {
		t.Fatalf("want 3 entries after a successful batch, got %d", len(entries))
	}
}

func TestBadgerDBMarkExpired(t *testing.T) {
	db := newTestDB(t)

	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	for _, e := range []Entry{
		{TenantID: "acme", Key: "lapsed", Data: "x", ExpiresAt: &past},
		{TenantID: "acme", Key: "fresh", Data: "y", ExpiresAt: &future},
		{TenantID: "globex", Key: "lapsed", Data: "z", ExpiresAt: &past},
		{TenantID: "globex", Key: "permanent", Data: "p"},
	} {
		if _, err := db.Put(e, nil); err != nil {
			t.Fatal(err)
		}
	}

	flipped, err := db.MarkExpired(now)
	if err != nil {
		t.Fatal(err)
	}
	if flipped != 2 {
		t.Fatalf("want 2 flipped records, got %d", flipped)
	}

	e, err := db.Get("acme", "lapsed")
	if err != nil {
		t.Fatal(err)
	}
	if !e.Expired {
		t.Fatal("a lapsed record must be flagged expired after the sweep")
	}
	if e.Version != 1 {
		t.Fatalf("the sweep flip must bump the version, got %d", e.Version)
	}

	// A second pass with nothing newly lapsed flips nothing.
	flipped, err = db.MarkExpired(now)
	if err != nil {
		t.Fatal(err)
	}
	if flipped != 0 {
		t.Fatalf("a repeated sweep must be idempotent, flipped %d", flipped)
	}
}
