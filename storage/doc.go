package storage

// storage contains the RecordStore interface for working with a persistent,
// versioned record store, as well as an implementation for BadgerDB. Note
// that the storage package isn't designed to decide _when_ records live or
// die; it only enforces the mechanical invariants every caller depends on:
// one record per (tenant, key) and a version token checked on every
// conditional mutation.
